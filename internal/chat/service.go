package chat

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	"github.com/fyrsmithlabs/ragnchat/internal/llm"
	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	"github.com/fyrsmithlabs/ragnchat/internal/vectorstore"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/ragnchat/internal/chat")

// Retriever looks up stored chunks.
type Retriever interface {
	NamespaceExists(ctx context.Context, namespace string) (bool, error)
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]vectorstore.Match, error)
}

// QueryEmbedder embeds the prompt and enforces the configured dimension.
type QueryEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Request is one chat turn.
type Request struct {
	Prompt     string
	Repository *string
	Context    []string
}

// Service runs the query pipeline.
type Service struct {
	retriever Retriever
	embedder  QueryEmbedder
	generator llm.Generator
	topK      int
	logger    *logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTopK sets how many chunks are retrieved.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// NewService wires the query pipeline.
func NewService(retriever Retriever, embedder QueryEmbedder, generator llm.Generator, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		retriever: retriever,
		embedder:  embedder,
		generator: generator,
		topK:      config.DefaultTopK,
		logger:    logger.Named("chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer validates req and returns the model reply.
func (s *Service) Answer(ctx context.Context, req Request) (string, error) {
	if err := v1.ValidateChat(req.Prompt, req.Repository, req.Context); err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, "chat.Answer")
	defer span.End()
	span.SetAttributes(attribute.Int("chat.extra_context", len(req.Context)))

	if len(req.Context) > 0 {
		s.logger.Debug(ctx, "extra context received", zap.Int("items", len(req.Context)))
	}

	if req.Repository == nil || *req.Repository == "" {
		reply, err := s.generator.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: req.Prompt}})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generation failed")
			return "", err
		}
		return reply, nil
	}

	reply, err := s.answerFromRepository(ctx, req.Prompt, *req.Repository)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return reply, nil
}

func (s *Service) answerFromRepository(ctx context.Context, prompt, repo string) (string, error) {
	ref, err := repository.ParseRef(repo)
	if err != nil {
		return "", err
	}
	ns := ref.Namespace()
	ctx = logging.WithNamespace(ctx, ns)
	start := time.Now()

	exists, err := s.retriever.NamespaceExists(ctx, ns)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", v1.NotFoundf("Repository index not found: %s", ns)
	}

	vector, err := s.embedder.EmbedText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("embedding prompt: %w", err)
	}

	matches, err := s.retriever.Query(ctx, ns, vector, s.topK)
	if err != nil {
		return "", err
	}

	messages, err := retrievalMessages(prompt, matches)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	reply, err := s.generator.Generate(ctx, messages)
	if err != nil {
		return "", err
	}

	s.logger.Info(ctx, "answered from repository",
		zap.Int("matches", len(matches)),
		zap.Duration("duration", time.Since(start)))
	return reply, nil
}
