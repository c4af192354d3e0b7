package config

import "errors"

var (
	ErrMissingValue = errors.New("missing configuration value")
	ErrInvalidValue = errors.New("invalid configuration value")
)
