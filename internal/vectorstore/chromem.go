package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragnchat/internal/logging"
)

// MemoryPath selects a non-persistent chromem database.
const MemoryPath = ":memory:"

// ChromemConfig holds configuration for chromem-go embedded vector database.
type ChromemConfig struct {
	// Path is the directory for persistent storage, or MemoryPath.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool
}

// ChromemStore implements Backend using chromem-go, with one collection
// per namespace. Embeddings are always precomputed.
type ChromemStore struct {
	db     *chromem.DB
	config ChromemConfig
	logger *logging.Logger
}

// errNoEmbeddingFunc is returned if chromem ever tries to embed on its own.
var errNoEmbeddingFunc = errors.New("chromem store requires precomputed embeddings")

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// NewChromemStore opens or creates the database.
func NewChromemStore(cfg ChromemConfig, logger *logging.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var db *chromem.DB
	if cfg.Path == "" || cfg.Path == MemoryPath {
		db = chromem.NewDB()
	} else {
		path, err := expandChromemPath(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
		cfg.Path = path
	}

	store := &ChromemStore{db: db, config: cfg, logger: logger.Named("chromem")}
	store.logger.Info(context.Background(), "chromem store initialized",
		zap.String("path", cfg.Path),
		zap.Bool("compress", cfg.Compress),
		zap.Int("namespaces", len(db.ListCollections())))
	return store, nil
}

// expandChromemPath expands ~ to home directory.
func expandChromemPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Name implements Backend.
func (s *ChromemStore) Name() string { return "chromem" }

// Health implements Backend.
func (s *ChromemStore) Health(context.Context) error { return nil }

// Upsert implements Backend.
func (s *ChromemStore) Upsert(ctx context.Context, namespace string, records []Record) error {
	ctx, span := tracer.Start(ctx, "ChromemStore.Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("collection", namespace), attribute.Int("document_count", len(records)))

	col, err := s.db.GetOrCreateCollection(namespace, nil, noEmbedding)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("getting/creating collection %s: %w", namespace, err)
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Metadata:  r.Metadata,
			Embedding: r.Values,
			Content:   r.Metadata[ContentKey],
		}
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents to %s: %w", namespace, err)
	}
	return nil
}

// Namespaces implements Backend.
func (s *ChromemStore) Namespaces(context.Context) ([]string, error) {
	cols := s.db.ListCollections()
	out := make([]string, 0, len(cols))
	for name, col := range cols {
		if col.Count() > 0 {
			out = append(out, name)
		}
	}
	return out, nil
}

// DeleteNamespace implements Backend.
func (s *ChromemStore) DeleteNamespace(_ context.Context, namespace string) error {
	if err := s.db.DeleteCollection(namespace); err != nil {
		return fmt.Errorf("deleting collection %s: %w", namespace, err)
	}
	return nil
}

// Query implements Backend. k is capped at the collection size, which
// chromem requires.
func (s *ChromemStore) Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	ctx, span := tracer.Start(ctx, "ChromemStore.Query")
	defer span.End()

	col := s.db.GetCollection(namespace, noEmbedding)
	if col == nil {
		return []Match{}, nil
	}
	n := min(k, col.Count())
	if n == 0 {
		return []Match{}, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", namespace, err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{ID: r.ID, Score: r.Similarity, Metadata: r.Metadata}
	}
	return matches, nil
}

// Close is a no-op; chromem persists on every write.
func (s *ChromemStore) Close() error { return nil }
