package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragnchat/internal/logging"
	"github.com/fyrsmithlabs/ragnchat/internal/repository"
	v1 "github.com/fyrsmithlabs/ragnchat/pkg/api/v1"
)

var errInvalidBody = echo.NewHTTPError(http.StatusBadRequest, "invalid request body")

func isNotFound(err error) bool {
	return errors.Is(err, v1.ErrNotFound)
}

// errorHandler renders every failure as {"error": "..."}.
func errorHandler(logger *logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		c.Set(ctxKeyError, err)
		if c.Response().Committed {
			return
		}
		status, body := errorResponse(err)
		ctx := c.Request().Context()
		if status >= http.StatusInternalServerError {
			logger.Error(ctx, "request failed", zap.Int("status", status), zap.Error(err))
		} else {
			logger.Debug(ctx, "request rejected", zap.Int("status", status), zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Warn(ctx, "writing error response", zap.Error(err))
		}
	}
}

// errorResponse maps an error kind to a status and body.
func errorResponse(err error) (int, v1.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, v1.ErrorResponse{Error: msg}
	}

	var noFiles *repository.NoValidFilesError
	if errors.As(err, &noFiles) {
		return http.StatusBadRequest, v1.ErrorResponse{Error: noFiles.Error(), GitHubContents: noFiles.Entries()}
	}

	switch {
	case errors.Is(err, v1.ErrValidation), errors.Is(err, v1.ErrInvalidFormat):
		return http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()}
	case errors.Is(err, v1.ErrNotFound):
		return http.StatusNotFound, v1.ErrorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, v1.ErrorResponse{Error: err.Error()}
	}
}

// errorKind classifies a request failure for metrics. Handlers keep the
// domain error as the HTTPError's internal error when they remap a status.
func errorKind(err error) string {
	if err == nil {
		return ""
	}
	var noFiles *repository.NoValidFilesError
	var remote *v1.RemoteAPIError
	switch {
	case errors.As(err, &noFiles):
		return kindNoValidFiles
	case errors.Is(err, v1.ErrValidation), errors.Is(err, v1.ErrInvalidFormat):
		return kindValidation
	case errors.Is(err, v1.ErrNotFound):
		return kindNotFound
	case errors.As(err, &remote):
		return kindRemote
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch {
		case he.Code == http.StatusNotFound, he.Code == http.StatusMethodNotAllowed:
			return kindRoute
		case he.Code < http.StatusInternalServerError:
			return kindValidation
		}
	}
	return kindInternal
}
