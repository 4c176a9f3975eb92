package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return newMetrics(mp.Meter(embeddingsInstrumentationName), nil), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumInt(m metricdata.Metrics) int64 {
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return -1
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordGeneration(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGeneration(ctx, "text-embedding-ada-002", "embed_documents", 100*time.Millisecond, 10, nil)
	m.RecordGeneration(ctx, "text-embedding-ada-002", "embed_query", 50*time.Millisecond, 1, nil)
	m.RecordGeneration(ctx, "text-embedding-ada-002", "embed_documents", 25*time.Millisecond, 5, errors.New("generation failed"))

	got := collect(t, reader)

	dur, ok := got["ragnchat.embedding.generation_duration_seconds"]
	require.True(t, ok, "duration histogram not found")
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
	assert.GreaterOrEqual(t, len(hist.DataPoints), 2, "one point per model/operation pair")

	_, ok = got["ragnchat.embedding.batch_size"]
	assert.True(t, ok, "batch size histogram not found")

	assert.Equal(t, int64(1), sumInt(got["ragnchat.embedding.errors_total"]))
}

func TestMetrics_RecordFile(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFile(ctx, "")
	m.RecordFile(ctx, SkipExtension)
	m.RecordFile(ctx, SkipExtension)

	got := collect(t, reader)
	files, ok := got["ragnchat.embedding.files_total"]
	require.True(t, ok)
	assert.Equal(t, int64(3), sumInt(files))
}
