package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/ragnchat/internal/vectorstore")

// Gateway applies namespace semantics on top of a Backend.
type Gateway struct {
	backend   Backend
	batchSize int
	timeout   time.Duration
	logger    *logging.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithBatchSize sets the maximum records per backend upsert call.
func WithBatchSize(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithTimeout bounds every backend call.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the gateway logger.
func WithLogger(l *logging.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway wraps backend.
func NewGateway(backend Backend, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		backend:   backend,
		batchSize: config.DefaultBatchSize,
		timeout:   config.DefaultRequestTimeout,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("vectorstore")
	return g
}

// Upsert writes records in sequential batches. The first failing batch
// aborts the rest; earlier batches stay committed.
func (g *Gateway) Upsert(ctx context.Context, namespace string, records []Record) error {
	ctx, span := tracer.Start(ctx, "Gateway.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("namespace", namespace),
		attribute.Int("record_count", len(records)),
		attribute.String("backend", g.backend.Name()),
	)

	for start := 0; start < len(records); start += g.batchSize {
		end := min(start+g.batchSize, len(records))
		batch := records[start:end]

		err := g.call(ctx, "upsert", func(ctx context.Context) error {
			return g.backend.Upsert(ctx, namespace, batch)
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "batch failed")
			g.logger.Error(ctx, "upsert batch failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			return fmt.Errorf("upserting records %d-%d: %w", start, end-1, err)
		}
		UpsertBatchesTotal.WithLabelValues(g.backend.Name()).Inc()
		RecordsUpserted.WithLabelValues(g.backend.Name()).Add(float64(len(batch)))
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// ListNamespaces returns every namespace, sorted.
func (g *Gateway) ListNamespaces(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Gateway.ListNamespaces")
	defer span.End()

	var namespaces []string
	err := g.call(ctx, "list", func(ctx context.Context) error {
		var err error
		namespaces, err = g.backend.Namespaces(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sort.Strings(namespaces)
	if namespaces == nil {
		namespaces = []string{}
	}
	return namespaces, nil
}

// NamespaceExists reports whether namespace holds any record.
func (g *Gateway) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	namespaces, err := g.ListNamespaces(ctx)
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(namespaces, namespace)
	return i < len(namespaces) && namespaces[i] == namespace, nil
}

// DeleteNamespace removes namespace. It fails with v1.ErrNotFound when the
// namespace does not exist.
func (g *Gateway) DeleteNamespace(ctx context.Context, namespace string) error {
	ctx, span := tracer.Start(ctx, "Gateway.DeleteNamespace")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", namespace))

	exists, err := g.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if !exists {
		OperationsTotal.WithLabelValues(g.backend.Name(), "delete", "not_found").Inc()
		span.SetStatus(codes.Error, "not found")
		return fmt.Errorf("%w: namespace %s", v1.ErrNotFound, namespace)
	}

	if err := g.call(ctx, "delete", func(ctx context.Context) error {
		return g.backend.DeleteNamespace(ctx, namespace)
	}); err != nil {
		span.RecordError(err)
		return err
	}

	g.logger.Info(ctx, "namespace deleted", zap.String("namespace", namespace))
	return nil
}

// Query returns the k nearest records of namespace.
func (g *Gateway) Query(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Query")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", namespace), attribute.Int("k", k))

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	var matches []Match
	err := g.call(ctx, "query", func(ctx context.Context) error {
		var err error
		matches, err = g.backend.Query(ctx, namespace, vector, k)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("results_count", len(matches)))
	return matches, nil
}

// Health checks the backend and updates the health gauge.
func (g *Gateway) Health(ctx context.Context) error {
	err := g.call(ctx, "health", g.backend.Health)
	if err != nil {
		HealthStatus.WithLabelValues(g.backend.Name()).Set(0)
		return err
	}
	HealthStatus.WithLabelValues(g.backend.Name()).Set(1)
	return nil
}

// Backend returns the name of the wrapped backend.
func (g *Gateway) Backend() string {
	return g.backend.Name()
}

// Close closes the backend.
func (g *Gateway) Close() error {
	return g.backend.Close()
}

// call runs fn under the per-call timeout. Expiry becomes a RemoteAPIError
// with no status.
func (g *Gateway) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	err := fn(cctx)
	elapsed := time.Since(start).Seconds()

	if err == nil {
		recordResult(g.backend.Name(), operation, "success", elapsed)
		return nil
	}
	recordResult(g.backend.Name(), operation, "error", elapsed)

	var remote *v1.RemoteAPIError
	if !errors.As(err, &remote) && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return v1.NewRemoteAPIError(g.backend.Name(), 0, err)
	}
	return err
}
