package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/airq/internal/adapters/repository"
	service "github.com/okian/airq/internal/app"
	"github.com/okian/airq/internal/domain/aqi"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("service unavailable")
)

// Error tags an API failure with the handler operation and its kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WrapKind tags err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap tags err with op, classifying it by the kinds of lower layers.
func Wrap(op string, err error) error {
	return &Error{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	switch {
	case errors.Is(err, service.ErrBackpressure):
		return ErrBackpressure
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, service.ErrNotStarted):
		return ErrUnavailable
	case errors.Is(err, aqi.ErrInvalidInput), errors.Is(err, repository.ErrInvalidLimit):
		return aqi.ErrInvalidInput
	case errors.Is(err, aqi.ErrInferenceFailure):
		return aqi.ErrInferenceFailure
	case errors.Is(err, aqi.ErrConfig):
		return aqi.ErrConfig
	default:
		return err
	}
}

// statusFor maps an error to its HTTP status and response code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, service.ErrUnknownProfile):
		return http.StatusBadRequest, "unknown_profile"
	case errors.Is(err, aqi.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, aqi.ErrInferenceFailure):
		return http.StatusBadGateway, "inference_failure"
	case errors.Is(err, aqi.ErrConfig):
		return http.StatusInternalServerError, "config_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
