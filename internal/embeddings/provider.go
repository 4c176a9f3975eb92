package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Embedder generates embeddings.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is an Embedder with a known output size.
type Provider interface {
	Embedder
	// Dimension returns the configured embedding dimension.
	Dimension() int
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is "openai" or "tei".
	Provider  string
	Model     string
	BaseURL   string
	APIKey    config.Secret
	Dimension int
	Timeout   time.Duration

	HTTPClient *http.Client
	Metrics    *Metrics
}

// FromAppConfig builds a ProviderConfig from application configuration.
func FromAppConfig(cfg *config.Config) ProviderConfig {
	pc := ProviderConfig{
		Provider:  cfg.Embeddings.Provider,
		Model:     cfg.Embeddings.Model,
		BaseURL:   cfg.Embeddings.BaseURL,
		Dimension: cfg.Embeddings.Dimension,
		Timeout:   cfg.Timeouts.Request.Duration(),
	}
	if pc.Provider == "openai" {
		pc.APIKey = cfg.OpenAI.APIKey
		pc.BaseURL = cfg.OpenAI.BaseURL
	}
	return pc
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Dimension <= 0 {
		cfg.Dimension = config.DefaultDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultRequestTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}

	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(cfg)
	case "tei":
		return NewTEIProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
