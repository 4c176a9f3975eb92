package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	"github.com/fyrsmithlabs/ragnchat/internal/telemetry"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

func requestCount(t *testing.T, tel *telemetry.TestTelemetry, name string, want map[string]string) int64 {
	t.Helper()
	rm, err := tel.CollectMetrics(context.Background())
	require.NoError(t, err)
	m, ok := telemetry.FindMetric(rm, name)
	require.True(t, ok, "metric %s not recorded", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		if matches(dp.Attributes, want) {
			total += dp.Value
		}
	}
	return total
}

func matches(set attribute.Set, want map[string]string) bool {
	for k, v := range want {
		got, ok := set.Value(attribute.Key(k))
		if !ok || got.Emit() != v {
			return false
		}
	}
	return true
}

func TestRequestMetrics_ErrorKinds(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	tel.Install(t)
	ts := setupTestServer(t)

	ts.ingester.err = &repository.NoValidFilesError{Ref: repository.Ref{Owner: "octo", Repo: "pics", Branch: "main"}}
	rec := ts.do(t, http.MethodPost, "/api/repo/vectorize/", v1.RepositoryRequest{Repository: "octo/pics"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/chat/prompt/", map[string]any{"prompt": "hi", "repository": "x/y"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/repo/delete/", v1.RepositoryRequest{Repository: "never/created"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/ping/", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/ping/", map[string]any{"ping": "abc"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, int64(1), requestCount(t, tel, metricRequests, map[string]string{
		"route": "/api/repo/vectorize/", "status": "400", "error.kind": kindNoValidFiles,
	}))
	assert.Equal(t, int64(1), requestCount(t, tel, metricRequests, map[string]string{
		"route": "/api/chat/prompt/", "status": "400", "error.kind": kindNotFound,
	}))
	assert.Equal(t, int64(1), requestCount(t, tel, metricRequests, map[string]string{
		"route": "/api/repo/delete/", "method": http.MethodDelete, "status": "404", "error.kind": kindNotFound,
	}))
	assert.Equal(t, int64(1), requestCount(t, tel, metricRequests, map[string]string{
		"route": "/api/ping/", "status": "400", "error.kind": kindValidation,
	}))
	assert.Equal(t, int64(1), requestCount(t, tel, metricRequests, map[string]string{
		"route": "/api/ping/", "status": "200", "error.kind": "",
	}))
}

func TestRequestMetrics_RemoteFailures(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	tel.Install(t)
	ts := setupTestServer(t)

	ts.answerer.err = v1.NewRemoteAPIError("openai", 0, context.DeadlineExceeded)
	rec := ts.do(t, http.MethodPost, "/api/chat/prompt/", map[string]any{"prompt": "hi"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	assert.Equal(t, int64(1), requestCount(t, tel, metricRequests, map[string]string{
		"route": "/api/chat/prompt/", "status": "500", "error.kind": kindRemote,
	}))
	assert.Equal(t, int64(1), requestCount(t, tel, metricRemoteFailures, map[string]string{
		"route": "/api/chat/prompt/", "service": "openai",
	}))

	rm, err := tel.CollectMetrics(context.Background())
	require.NoError(t, err)
	_, ok := telemetry.FindMetric(rm, metricDuration)
	assert.True(t, ok)
}

func TestErrorKind(t *testing.T) {
	notFound := v1.NotFoundf("Repository index not found: a/b/main")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", v1.Validationf("bad"), kindValidation},
		{"invalid format", v1.ErrInvalidFormat, kindValidation},
		{"no valid files", &repository.NoValidFilesError{}, kindNoValidFiles},
		{"not found", notFound, kindNotFound},
		{"remapped not found", echo.NewHTTPError(http.StatusBadRequest, notFound.Error()).SetInternal(notFound), kindNotFound},
		{"remote", v1.NewRemoteAPIError("github", 500, nil), kindRemote},
		{"unknown route", echo.ErrNotFound, kindRoute},
		{"bad body", errInvalidBody, kindValidation},
		{"other", errors.New("boom"), kindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorKind(tt.err))
		})
	}
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "unmatched", routeLabel(""))
	assert.Equal(t, "/api/repo/list/", routeLabel("/api/repo/list/"))
}
