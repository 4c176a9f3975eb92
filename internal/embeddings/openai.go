package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

// OpenAIProvider embeds text with the OpenAI embeddings API.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	dimension int
	timeout   time.Duration
	metrics   *Metrics
}

// NewOpenAIProvider builds an OpenAI-backed provider. BaseURL overrides
// the API root, for proxies and tests.
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%w: openai api key required", ErrInvalidConfig)
	}

	oc := openai.DefaultConfig(cfg.APIKey.Value())
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.AdaEmbeddingV2)
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(oc),
		model:     model,
		dimension: cfg.Dimension,
		timeout:   cfg.Timeout,
		metrics:   cfg.Metrics,
	}, nil
}

// EmbedDocuments embeds texts in one request, preserving order.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := p.embed(ctx, texts)
	p.metrics.RecordGeneration(ctx, p.model, "embed_documents", time.Since(start), len(texts), err)
	return vectors, err
}

// EmbedQuery embeds a single text.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vectors, err := p.embed(ctx, []string{text})
	p.metrics.RecordGeneration(ctx, p.model, "embed_query", time.Since(start), 1, err)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *OpenAIProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	for _, t := range texts {
		if t == "" {
			return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, openAIError(ctx, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, v1.NewRemoteAPIError("openai", 0,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, v1.NewRemoteAPIError("openai", 0, fmt.Errorf("embedding index %d out of range", d.Index))
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimension returns the configured embedding dimension.
func (p *OpenAIProvider) Dimension() int { return p.dimension }

// Close is a no-op.
func (p *OpenAIProvider) Close() error { return nil }

// openAIError maps go-openai errors to RemoteAPIError.
func openAIError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return v1.NewRemoteAPIError("openai", 0, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return v1.NewRemoteAPIError("openai", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return v1.NewRemoteAPIError("openai", reqErr.HTTPStatusCode, err)
	}
	return v1.NewRemoteAPIError("openai", 0, err)
}
