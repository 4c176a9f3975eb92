package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragnchat/internal/chat"
	"github.com/fyrsmithlabs/ragnchat/internal/config"
	"github.com/fyrsmithlabs/ragnchat/internal/embeddings"
	"github.com/fyrsmithlabs/ragnchat/internal/fetcher"
	"github.com/fyrsmithlabs/ragnchat/internal/llm"
	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	"github.com/fyrsmithlabs/ragnchat/internal/vectorstore"
)

// Fetcher lists a repository and downloads its files.
type Fetcher interface {
	repository.Lister
	embeddings.Downloader
}

// Set is an opened Registry together with the clients it owns.
type Set struct {
	Registry

	gateway  *vectorstore.Gateway
	provider embeddings.Provider
}

// Close releases the vector store connection and the embedding provider.
func (s *Set) Close() error {
	var firstErr error
	if err := s.provider.Close(); err != nil {
		firstErr = err
	}
	if err := s.gateway.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Open constructs every client from cfg and wires the pipelines.
func Open(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Set, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	f, err := NewFetcher(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating fetcher: %w", err)
	}

	pc := embeddings.FromAppConfig(cfg)
	pc.Metrics = embeddings.NewMetrics(logger.Underlying())
	provider, err := embeddings.NewProvider(pc)
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	gen, err := llm.New(cfg)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	gateway, err := vectorstore.NewGatewayFromConfig(ctx, cfg, logger)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	fileEmbedder := embeddings.NewFileEmbedder(provider, f, embeddings.FileEmbedderConfig{
		Extensions: cfg.Embeddings.Extensions,
		MaxChars:   cfg.Embeddings.MaxChars,
		Dimension:  cfg.Embeddings.Dimension,
	}, pc.Metrics, logger)

	logger.Info(ctx, "services ready",
		zap.String("fetcher", cfg.GitHub.Mode),
		zap.String("embeddings", cfg.Embeddings.Provider),
		zap.String("vectorstore", gateway.Backend()),
		zap.String("llm", cfg.LLM.Provider))

	return &Set{
		Registry: NewRegistry(Options{
			Repository:  repository.NewService(f, fileEmbedder, gateway, logger),
			VectorStore: gateway,
			Chat:        chat.NewService(gateway, fileEmbedder, gen, logger, chat.WithTopK(cfg.VectorStore.TopK)),
		}),
		gateway:  gateway,
		provider: provider,
	}, nil
}

// NewFetcher returns the fetcher selected by github.mode.
func NewFetcher(ctx context.Context, cfg *config.Config, logger *logging.Logger) (Fetcher, error) {
	opts := fetcher.Options{
		Token:             cfg.GitHub.Token,
		BaseURL:           cfg.GitHub.BaseURL,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Timeout:           cfg.Timeouts.Request.Duration(),
		Logger:            logger,
		Keep:              embeddings.NewFilter(cfg.Embeddings.Extensions).Eligible,
	}
	switch cfg.GitHub.Mode {
	case "clone":
		return fetcher.NewCloneFetcher(opts), nil
	case "api", "":
		return fetcher.NewContentsFetcher(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown github mode %q", cfg.GitHub.Mode)
	}
}
