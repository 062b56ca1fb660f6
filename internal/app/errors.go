package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrUnknownProfile = errors.New("unknown profile")
	ErrBackpressure   = errors.New("reading queue is full")
	ErrNotStarted     = errors.New("service not started")
)
