package config

import "errors"

// Sentinel kinds returned by Load and Validate; match them with errors.Is.
var (
	// ErrInvalidConfig marks a value that fails validation, including a bad
	// custom profile.
	ErrInvalidConfig = errors.New("invalid airq config")
	// ErrLoadConfig marks a source (.env, YAML file, environment) that could
	// not be read or parsed.
	ErrLoadConfig = errors.New("load airq config")
)
