package aqi

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for the classification pipeline. Callers match them
// with errors.Is regardless of the wrapping layer.
var (
	// ErrInvalidInput marks a malformed, missing or non-finite feature value.
	// Recoverable by asking the user for new input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig marks a malformed category/advisory/color table, pollutant key
	// set or schema mismatch. Fatal to the current deployment configuration.
	ErrConfig = errors.New("config error")

	// ErrInferenceFailure marks a prediction that failed or was non-finite.
	// Fatal to the current request only.
	ErrInferenceFailure = errors.New("inference failure")
)

// Error carries the operation that failed together with its kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Errorf builds an *Error of the given kind with a formatted cause.
func Errorf(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with op and kind. A nil err yields nil.
func Wrap(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
