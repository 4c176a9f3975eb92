package services

import (
	"context"

	"github.com/fyrsmithlabs/ragnchat/internal/chat"
	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	"github.com/fyrsmithlabs/ragnchat/internal/vectorstore"
)

// Ingester runs the ingestion pipeline.
type Ingester interface {
	VectorizeWithProgress(ctx context.Context, ref repository.Ref, progress repository.Progress) (*repository.Result, error)
}

// NamespaceStore lists and deletes ingested repositories.
type NamespaceStore interface {
	ListNamespaces(ctx context.Context) ([]string, error)
	DeleteNamespace(ctx context.Context, namespace string) error
	Health(ctx context.Context) error
}

// Answerer runs the query pipeline.
type Answerer interface {
	Answer(ctx context.Context, req chat.Request) (string, error)
}

// Registry provides access to all ragnchat services.
type Registry interface {
	Repository() Ingester
	VectorStore() NamespaceStore
	Chat() Answerer
}

// Options configures the registry with service instances.
type Options struct {
	Repository  Ingester
	VectorStore NamespaceStore
	Chat        Answerer
}

type registry struct {
	repository  Ingester
	vectorStore NamespaceStore
	chat        Answerer
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	return &registry{
		repository:  opts.Repository,
		vectorStore: opts.VectorStore,
		chat:        opts.Chat,
	}
}

func (r *registry) Repository() Ingester        { return r.repository }
func (r *registry) VectorStore() NamespaceStore { return r.vectorStore }
func (r *registry) Chat() Answerer              { return r.chat }

var (
	_ Ingester       = (*repository.Service)(nil)
	_ NamespaceStore = (*vectorstore.Gateway)(nil)
	_ Answerer       = (*chat.Service)(nil)
)
