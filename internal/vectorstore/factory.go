package vectorstore

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	"github.com/fyrsmithlabs/ragnchat/internal/logging"
)

// NewBackend creates the backend named by cfg.VectorStore.Provider:
//   - "qdrant" (default): external Qdrant over gRPC
//   - "chromem": embedded, persisted under ChromemPath
//   - "pgvector": PostgreSQL with the vector extension
func NewBackend(ctx context.Context, cfg *config.Config, logger *logging.Logger) (Backend, error) {
	vs := cfg.VectorStore
	switch vs.Provider {
	case "qdrant", "":
		return NewQdrantStore(ctx, QdrantConfig{
			Host:           vs.QdrantHost,
			Port:           vs.QdrantPort,
			CollectionName: vs.QdrantCollection,
			VectorSize:     uint64(cfg.Embeddings.Dimension),
			APIKey:         vs.QdrantAPIKey,
			UseTLS:         vs.QdrantTLS,
		}, logger)
	case "chromem":
		return NewChromemStore(ChromemConfig{
			Path:     vs.ChromemPath,
			Compress: vs.ChromemCompress,
		}, logger)
	case "pgvector":
		return NewPGVectorStore(ctx, PGVectorConfig{
			DSN:        vs.PostgresDSN,
			Table:      vs.PostgresTable,
			VectorSize: cfg.Embeddings.Dimension,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported vectorstore provider %q (supported: qdrant, chromem, pgvector)", ErrInvalidConfig, vs.Provider)
	}
}

// NewGatewayFromConfig builds the backend and wraps it in a Gateway.
func NewGatewayFromConfig(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Gateway, error) {
	backend, err := NewBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewGateway(backend,
		WithBatchSize(cfg.VectorStore.BatchSize),
		WithTimeout(cfg.Timeouts.Request.Duration()),
		WithLogger(logger),
	), nil
}
