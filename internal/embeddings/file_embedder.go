package embeddings

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

// Downloader fetches the raw text of a listed file.
type Downloader interface {
	Download(ctx context.Context, file repository.RemoteFile) (string, error)
}

// FileEmbedderConfig configures a FileEmbedder.
type FileEmbedderConfig struct {
	// Extensions is the allow-list of file suffixes, dot included.
	Extensions []string
	// MaxChars caps the embedded text, counted in characters.
	MaxChars int
	// Dimension is the required vector length.
	Dimension int
}

// Filter decides which listed entries are embedded.
type Filter struct {
	extensions map[string]struct{}
}

// NewFilter builds a Filter over the extension allow-list, falling back to
// config.DefaultExtensions when exts is empty.
func NewFilter(exts []string) Filter {
	if len(exts) == 0 {
		exts = config.DefaultExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = struct{}{}
	}
	return Filter{extensions: set}
}

// Eligible reports whether a listed entry passes the type and extension
// filters. It performs no I/O.
func (f Filter) Eligible(file repository.RemoteFile) bool {
	return f.skipReason(file) == ""
}

func (f Filter) skipReason(file repository.RemoteFile) string {
	if file.Type != repository.TypeFile {
		return SkipNotFile
	}
	if _, ok := f.extensions[strings.ToLower(path.Ext(file.Name))]; !ok {
		return SkipExtension
	}
	return ""
}

// FileEmbedder applies ingestion rules around an Embedder.
type FileEmbedder struct {
	embedder   Embedder
	downloader Downloader
	filter     Filter
	maxChars   int
	dimension  int
	metrics    *Metrics
	logger     *logging.Logger
}

// NewFileEmbedder builds a FileEmbedder. Zero values in cfg take the
// package defaults.
func NewFileEmbedder(embedder Embedder, downloader Downloader, cfg FileEmbedderConfig, metrics *Metrics, logger *logging.Logger) *FileEmbedder {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = config.DefaultMaxChars
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = config.DefaultDimension
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileEmbedder{
		embedder:   embedder,
		downloader: downloader,
		filter:     NewFilter(cfg.Extensions),
		maxChars:   cfg.MaxChars,
		dimension:  cfg.Dimension,
		metrics:    metrics,
		logger:     logger.Named("embedder"),
	}
}

// Eligible reports whether the embedder would process file.
func (e *FileEmbedder) Eligible(file repository.RemoteFile) bool {
	return e.filter.Eligible(file)
}

// EmbedFile downloads, truncates and embeds one file. It returns nil, nil
// for files that are filtered out or empty after trimming.
func (e *FileEmbedder) EmbedFile(ctx context.Context, file repository.RemoteFile) (*repository.EmbeddedChunk, error) {
	if reason := e.filter.skipReason(file); reason != "" {
		e.metrics.RecordFile(ctx, reason)
		return nil, nil
	}

	raw, err := e.downloader.Download(ctx, file)
	if err != nil {
		e.metrics.RecordFile(ctx, SkipError)
		return nil, err
	}

	text := strings.TrimSpace(Truncate(raw, e.maxChars))
	if text == "" {
		e.metrics.RecordFile(ctx, SkipEmpty)
		e.logger.Debug(ctx, "empty file skipped", zap.String("file", file.Path))
		return nil, nil
	}

	vec, err := e.EmbedText(ctx, text)
	if err != nil {
		if errors.Is(err, v1.ErrDimensionMismatch) {
			e.metrics.RecordFile(ctx, SkipDimension)
		} else {
			e.metrics.RecordFile(ctx, SkipError)
		}
		return nil, fmt.Errorf("embedding %s: %w", file.Path, err)
	}

	e.metrics.RecordFile(ctx, "")
	return &repository.EmbeddedChunk{
		FileName:    file.Name,
		Content:     text,
		DownloadURL: file.DownloadURL,
		Embedding:   vec,
	}, nil
}

// EmbedText embeds text and checks the vector length.
func (e *FileEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != e.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", v1.ErrDimensionMismatch, e.dimension, len(vec))
	}
	return vec, nil
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
