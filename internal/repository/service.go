package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	"github.com/fyrsmithlabs/ragnchat/internal/vectorstore"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/ragnchat/internal/repository")

// Lister enumerates every entry of a repository branch.
type Lister interface {
	ListContents(ctx context.Context, owner, repo, branch string) ([]RemoteFile, error)
}

// FileEmbedder turns one listed file into an embedded chunk. A nil chunk
// with a nil error means the file is not eligible.
type FileEmbedder interface {
	EmbedFile(ctx context.Context, file RemoteFile) (*EmbeddedChunk, error)
}

// RecordWriter persists records into a namespace.
type RecordWriter interface {
	Upsert(ctx context.Context, namespace string, records []vectorstore.Record) error
}

// Service runs the ingestion pipeline.
type Service struct {
	lister   Lister
	embedder FileEmbedder
	writer   RecordWriter
	logger   *logging.Logger
}

// NewService wires the ingestion pipeline. A nil logger discards output.
func NewService(lister Lister, embedder FileEmbedder, writer RecordWriter, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		lister:   lister,
		embedder: embedder,
		writer:   writer,
		logger:   logger.Named("repository"),
	}
}

// Vectorize lists, embeds and upserts every eligible file of ref.
func (s *Service) Vectorize(ctx context.Context, ref Ref) (*Result, error) {
	return s.VectorizeWithProgress(ctx, ref, nil)
}

// VectorizeWithProgress is Vectorize with a progress observer.
func (s *Service) VectorizeWithProgress(ctx context.Context, ref Ref, progress Progress) (*Result, error) {
	if progress == nil {
		progress = nopProgress{}
	}
	ns := ref.Namespace()
	ctx = logging.WithNamespace(ctx, ns)

	ctx, span := tracer.Start(ctx, "repository.Vectorize")
	defer span.End()
	span.SetAttributes(attribute.String("repo.namespace", ns))

	start := time.Now()

	files, err := s.lister.ListContents(ctx, ref.Owner, ref.Repo, ref.Branch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing failed")
		return nil, fmt.Errorf("listing %s: %w", ns, err)
	}
	progress.Listed(len(files))
	s.logger.Info(ctx, "listed repository contents", zap.Int("entries", len(files)))

	chunks := make([]*EmbeddedChunk, 0, len(files))
	for _, f := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		chunk, err := s.embedder.EmbedFile(ctx, f)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			s.logger.Warn(ctx, "skipping file",
				zap.String("file", f.Path),
				zap.Error(err))
			progress.FileDone(f, false)
			continue
		}
		progress.FileDone(f, chunk != nil)
		if chunk != nil {
			chunks = append(chunks, chunk)
		}
	}

	if len(chunks) == 0 {
		err := &NoValidFilesError{Ref: ref, Contents: files}
		span.SetStatus(codes.Error, "no valid files")
		return nil, err
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = buildRecord(ref, c)
	}

	if err := s.writer.Upsert(ctx, ns, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return nil, fmt.Errorf("upserting into %s: %w", ns, err)
	}

	span.SetAttributes(attribute.Int("files.processed", len(records)))
	s.logger.Info(ctx, "repository vectorized",
		zap.Int("processed_files", len(records)),
		zap.Duration("duration", time.Since(start)))

	return &Result{
		ProcessedFiles: len(records),
		Owner:          ref.Owner,
		Repo:           ref.Repo,
		Branch:         ref.Branch,
	}, nil
}

func buildRecord(ref Ref, c *EmbeddedChunk) vectorstore.Record {
	return vectorstore.Record{
		ID:     ref.RecordID(c.FileName),
		Values: c.Embedding,
		Metadata: map[string]string{
			MetaFileName:    c.FileName,
			MetaOwner:       ref.Owner,
			MetaRepo:        ref.Repo,
			MetaBranch:      ref.Branch,
			MetaDownloadURL: c.DownloadURL,
			MetaContent:     c.Content,
		},
	}
}
