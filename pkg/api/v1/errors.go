package v1

import (
	"errors"
	"fmt"
)

// Error kinds shared by the pipelines and the transports.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidFormat     = errors.New(`Repository string must be in format "owner/repo" or "owner/repo/branch"`)
	ErrNotFound          = errors.New("not found")
	ErrNoValidFiles      = errors.New("no valid files to process")
	ErrDimensionMismatch = errors.New("unexpected embedding dimension")
)

// RemoteAPIError reports a failed call to an external service.
// StatusCode is zero when no HTTP response was received (transport
// failure or timeout).
type RemoteAPIError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *RemoteAPIError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s API error: %d: %v", e.Service, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s API error: %d", e.Service, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s API error: %v", e.Service, e.Err)
	default:
		return fmt.Sprintf("%s API error", e.Service)
	}
}

func (e *RemoteAPIError) Unwrap() error {
	return e.Err
}

// NewRemoteAPIError builds a RemoteAPIError for service.
func NewRemoteAPIError(service string, statusCode int, err error) *RemoteAPIError {
	return &RemoteAPIError{Service: service, StatusCode: statusCode, Err: err}
}

// Validationf returns an ErrValidation wrapping a human-readable message.
func Validationf(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFoundf returns an ErrNotFound carrying a human-readable message.
func NotFoundf(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// kindError matches its sentinel kind but prints only msg.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }
