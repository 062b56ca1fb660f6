package repository

import "errors"

// Sentinel kinds for history errors.
var (
	ErrNotFound     = errors.New("station not found")
	ErrInvalidLimit = errors.New("invalid history limit")
	ErrMissingID    = errors.New("evaluation has no id")
)
