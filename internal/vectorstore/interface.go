package vectorstore

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the backend could not be reached at startup.
	ErrConnectionFailed = errors.New("failed to connect to vector store")
)

// ContentKey is the metadata key holding a record's source text.
const ContentKey = "content"

// Record is one stored vector. ID is unique across all namespaces.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]string
}

// Match is a query hit, ordered by Score descending.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Backend is a vector storage engine.
//
// Implementations need not sort Namespaces and need not check existence in
// DeleteNamespace; Gateway does both.
type Backend interface {
	// Upsert writes records into namespace, replacing records with equal IDs.
	Upsert(ctx context.Context, namespace string, records []Record) error

	// Namespaces lists every namespace holding at least one record.
	Namespaces(ctx context.Context) ([]string, error)

	// DeleteNamespace removes every record of namespace.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Query returns up to k nearest records of namespace.
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error)

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error

	// Name identifies the backend in logs and metrics.
	Name() string

	Close() error
}
