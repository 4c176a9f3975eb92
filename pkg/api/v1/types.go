// Package v1 defines the request and response bodies of the ragnchat API,
// the input limits both transports enforce and the error kinds returned by
// the ingestion and query pipelines.
package v1

// PingRequest is the body for POST /api/ping/.
type PingRequest struct {
	Ping *string `json:"ping"`
}

// PingResponse echoes the input and its reversal.
type PingResponse struct {
	Ping string `json:"ping"`
	Pong string `json:"pong"`
}

// RepositoryRequest is the body for vectorize and delete.
type RepositoryRequest struct {
	Repository string `json:"repository"`
}

// VectorizeResponse reports a completed ingestion.
type VectorizeResponse struct {
	Status         string `json:"status"`
	ProcessedFiles int    `json:"processed_files"`
	Owner          string `json:"owner"`
	Repo           string `json:"repo"`
	Branch         string `json:"branch"`
}

// DeleteResponse reports a deleted namespace.
type DeleteResponse struct {
	Status     string `json:"status"`
	Repository string `json:"repository"`
}

// ChatRequest is the body for POST /api/chat/prompt/.
type ChatRequest struct {
	Prompt     *string  `json:"prompt"`
	Repository *string  `json:"repository,omitempty"`
	Context    []string `json:"context,omitempty"`
}

// ChatResponse carries the model answer.
type ChatResponse struct {
	Response string `json:"response"`
}

// ContentEntry is one item of a repository listing as returned in
// NoValidFiles diagnostics.
type ContentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error          string         `json:"error"`
	GitHubContents []ContentEntry `json:"github_contents,omitempty"`
}

// StatusSuccess is the status value of successful mutations.
const StatusSuccess = "success"
