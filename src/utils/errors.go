package utils

import "errors"

// Domain error taxonomy. Callers wrap these with fmt.Errorf("...: %w", Err...)
// and the HTTP layer maps them to status codes in WriteError.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrRateLimited         = errors.New("upstream rate limited")
)
