package repository

import (
	"fmt"

	"github.com/fyrsmithlabs/ragnchat/internal/vectorstore"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

// Entry types reported by the contents API.
const (
	TypeFile = "file"
	TypeDir  = "dir"
)

// RemoteFile is one entry of a repository listing.
type RemoteFile struct {
	Name        string
	Path        string
	Type        string
	DownloadURL string
}

// EmbeddedChunk is the truncated text of one file and its embedding.
type EmbeddedChunk struct {
	FileName    string
	Content     string
	DownloadURL string
	Embedding   []float32
}

// Metadata keys stored on every record.
const (
	MetaFileName    = "file_name"
	MetaOwner       = "owner"
	MetaRepo        = "repo"
	MetaBranch      = "branch"
	MetaDownloadURL = "download_url"
	MetaContent     = vectorstore.ContentKey
)

// Result summarizes a vectorize run.
type Result struct {
	ProcessedFiles int
	Owner          string
	Repo           string
	Branch         string
}

// NoValidFilesError is returned when no file of a repository could be
// embedded. Contents is the raw listing, for diagnostics.
type NoValidFilesError struct {
	Ref      Ref
	Contents []RemoteFile
}

func (e *NoValidFilesError) Error() string {
	return fmt.Sprintf("No valid files to process in repository: %s", e.Ref.Namespace())
}

func (e *NoValidFilesError) Is(target error) bool {
	return target == v1.ErrNoValidFiles
}

// Entries converts the listing to its wire form.
func (e *NoValidFilesError) Entries() []v1.ContentEntry {
	out := make([]v1.ContentEntry, len(e.Contents))
	for i, f := range e.Contents {
		out[i] = v1.ContentEntry{Name: f.Name, Path: f.Path, Type: f.Type, DownloadURL: f.DownloadURL}
	}
	return out
}

// Progress observes a vectorize run. Implementations must be cheap; they
// are called inline.
type Progress interface {
	Listed(total int)
	FileDone(file RemoteFile, embedded bool)
}

type nopProgress struct{}

func (nopProgress) Listed(int)                 {}
func (nopProgress) FileDone(RemoteFile, bool) {}
