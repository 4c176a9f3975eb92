package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/ragnchat/internal/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, logger.Underlying())
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format must be")
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)

	_, err = FromAppConfig(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestContextFields(t *testing.T) {
	tl := NewTestLogger()

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithNamespace(ctx, "octo/cat/main")

	tl.Info(ctx, "vectorized", zap.Int("processed_files", 2))

	tl.AssertLogged(t, zapcore.InfoLevel, "vectorized")
	tl.AssertField(t, "vectorized", "request.id", "req-1")
	tl.AssertField(t, "vectorized", "repo.namespace", "octo/cat/main")
	tl.AssertField(t, "vectorized", "trace_id", traceID.String())
	tl.AssertField(t, "vectorized", "processed_files", int64(2))
}

func TestContextHelpers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.Equal(t, ctx, WithRequestID(ctx, ""))
	assert.Equal(t, ctx, WithNamespace(ctx, ""))
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, ContextFields(ctx))

	logger := NewNop()
	assert.Same(t, logger, FromContext(WithLogger(ctx, logger)))
	assert.NotNil(t, FromContext(ctx))
}

func TestRedactingEncoder(t *testing.T) {
	cfg := NewDefaultConfig()
	enc, err := NewRedactingEncoder(newEncoder("json"), cfg.Redaction)
	require.NoError(t, err)

	var buf bytes.Buffer
	core := zapcore.NewCore(enc, zapcore.AddSync(&buf), zapcore.DebugLevel)
	z := zap.New(core).With(zap.String("token", "with-field"))

	z.Info("calling with Bearer abc.def",
		zap.String("api_key", "sk-123"),
		zap.String("header", "Bearer xyz"),
		zap.String("file", "README.md"),
		Secret("openai", config.Secret("sk-abcdef")),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "[REDACTED]", entry["token"])
	assert.Equal(t, "[REDACTED]", entry["api_key"])
	assert.Equal(t, "[REDACTED:pattern]", entry["header"])
	assert.Equal(t, "README.md", entry["file"])
	assert.Equal(t, "[REDACTED:9]", entry["openai"])
	assert.NotContains(t, entry["msg"], "abc.def")
}

func TestSamplingKeepsErrors(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Sampling = SamplingConfig{Enabled: true, Tick: time.Minute, Initial: 1, Thereafter: 0}

	core, err := newCore(cfg, nil)
	require.NoError(t, err)

	entry := zapcore.Entry{Level: zapcore.InfoLevel, Message: "same"}
	assert.NotNil(t, core.Check(entry, nil), "first info passes")
	assert.Nil(t, core.Check(entry, nil), "repeat info is sampled out")

	errEntry := zapcore.Entry{Level: zapcore.ErrorLevel, Message: "same"}
	for i := 0; i < 3; i++ {
		assert.NotNil(t, core.Check(errEntry, nil), "errors are never sampled")
	}
}

func TestNewLogger_StderrOnly(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output = OutputConfig{Stderr: true}
	require.NoError(t, cfg.Validate())

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))

	cfg.Output = OutputConfig{}
	assert.Error(t, cfg.Validate())
}
