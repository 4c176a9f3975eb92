package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/ragnchat/internal/http"

// Metric names.
const (
	metricRequests       = "ragnchat.http.requests"
	metricDuration       = "ragnchat.http.request.duration"
	metricInFlight       = "ragnchat.http.requests.in_flight"
	metricRemoteFailures = "ragnchat.http.remote_failures"
)

// Error kinds recorded on failed requests.
const (
	kindValidation   = "validation"
	kindNoValidFiles = "no_valid_files"
	kindNotFound     = "not_found"
	kindRemote       = "remote"
	kindRoute        = "route"
	kindInternal     = "internal"
)

// ctxKeyError is where the error handler leaves the failure for the
// metrics middleware.
const ctxKeyError = "ragnchat.error"

// requestMetrics records per-route request outcomes.
type requestMetrics struct {
	logger         *zap.Logger
	requests       metric.Int64Counter
	duration       metric.Float64Histogram
	inFlight       metric.Int64UpDownCounter
	remoteFailures metric.Int64Counter
}

func newRequestMetrics(meter metric.Meter, logger *zap.Logger) *requestMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	if meter == nil {
		meter = otel.Meter(httpInstrumentationName)
	}
	m := &requestMetrics{logger: logger}

	var err error
	m.requests, err = meter.Int64Counter(metricRequests,
		metric.WithDescription("API requests by route, method, status and error kind"),
		metric.WithUnit("{request}"))
	m.warn(err, metricRequests)

	// Ingestion of a large repository runs for minutes.
	m.duration, err = meter.Float64Histogram(metricDuration,
		metric.WithDescription("API request duration by route, method, status and error kind"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 180, 600))
	m.warn(err, metricDuration)

	m.inFlight, err = meter.Int64UpDownCounter(metricInFlight,
		metric.WithDescription("API requests currently being served, by route"),
		metric.WithUnit("{request}"))
	m.warn(err, metricInFlight)

	m.remoteFailures, err = meter.Int64Counter(metricRemoteFailures,
		metric.WithDescription("Requests failed by an upstream service, by service name"),
		metric.WithUnit("{request}"))
	m.warn(err, metricRemoteFailures)

	return m
}

func (m *requestMetrics) warn(err error, name string) {
	if err != nil {
		m.logger.Warn("failed to create instrument", zap.String("name", name), zap.Error(err))
	}
}

// middleware records each request after the error handler has rendered it.
func (m *requestMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			route := routeLabel(c.Path())
			routeAttr := metric.WithAttributes(attribute.String("route", route))

			if m.inFlight != nil {
				m.inFlight.Add(ctx, 1, routeAttr)
				defer m.inFlight.Add(ctx, -1, routeAttr)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			failure, _ := c.Get(ctxKeyError).(error)
			attrs := metric.WithAttributes(
				attribute.String("route", route),
				attribute.String("method", c.Request().Method),
				attribute.String("status", strconv.Itoa(c.Response().Status)),
				attribute.String("error.kind", errorKind(failure)),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.duration != nil {
				m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			}

			var remote *v1.RemoteAPIError
			if m.remoteFailures != nil && errors.As(failure, &remote) {
				m.remoteFailures.Add(ctx, 1, metric.WithAttributes(
					attribute.String("route", route),
					attribute.String("service", remote.Service),
					attribute.Int("upstream.status", remote.StatusCode),
				))
			}
			return nil
		}
	}
}

// routeLabel is the matched route template. Unmatched paths share one label.
func routeLabel(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}
