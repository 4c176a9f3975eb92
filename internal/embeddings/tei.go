package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

// TEIProvider embeds text with a Text Embeddings Inference server.
type TEIProvider struct {
	baseURL   string
	model     string
	dimension int
	timeout   time.Duration
	client    *http.Client
	metrics   *Metrics
}

// teiRequest is the request body for TEI embed endpoint.
type teiRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// NewTEIProvider builds a TEI-backed provider.
func NewTEIProvider(cfg ProviderConfig) (*TEIProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &TEIProvider{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		timeout:   cfg.Timeout,
		client:    hc,
		metrics:   cfg.Metrics,
	}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (s *TEIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vectors, err := s.embed(ctx, texts)
	s.metrics.RecordGeneration(ctx, s.model, "embed_documents", time.Since(start), len(texts), err)
	return vectors, err
}

// EmbedQuery generates an embedding for a single query.
func (s *TEIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var vectors [][]float32
	var err error
	if text == "" {
		err = fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	} else {
		vectors, err = s.embed(ctx, []string{text})
	}
	s.metrics.RecordGeneration(ctx, s.model, "embed_query", time.Since(start), 1, err)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *TEIProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	body, err := json.Marshal(teiRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		// Transport failures and deadline expiry carry no status.
		return nil, v1.NewRemoteAPIError("tei", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, v1.NewRemoteAPIError("tei", resp.StatusCode, errors.New(strings.TrimSpace(string(respBody))))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, v1.NewRemoteAPIError("tei", 0,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors)))
	}
	return vectors, nil
}

// Dimension returns the configured embedding dimension.
func (s *TEIProvider) Dimension() int { return s.dimension }

// Close is a no-op for TEI since it uses HTTP.
func (s *TEIProvider) Close() error { return nil }
