package inference

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrLoadModel      = errors.New("load model failed")
	ErrSchemaMismatch = errors.New("feature schema mismatch")
	ErrUnknownKind    = errors.New("unknown model kind")
)
