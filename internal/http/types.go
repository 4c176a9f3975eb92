package http

import (
	"context"

	"github.com/fyrsmithlabs/ragnchat/internal/services"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the response body for GET /api/status/.
type StatusResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Services map[string]string `json:"services"`
	Counts   StatusCounts      `json:"counts"`
}

// StatusCounts contains count information for ingested data.
type StatusCounts struct {
	Repositories int `json:"repositories"`
}

// CountRepositories returns the number of ingested namespaces, or -1 when
// the store cannot be listed.
func CountRepositories(ctx context.Context, store services.NamespaceStore) int {
	if store == nil {
		return -1
	}
	namespaces, err := store.ListNamespaces(ctx)
	if err != nil {
		return -1
	}
	return len(namespaces)
}
