package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable wraps any I/O failure of the convention store
	ErrStoreUnavailable = errors.New("convention store unavailable")

	// ErrUpstreamUnreachable wraps transport failures talking to the workspace API
	ErrUpstreamUnreachable = errors.New("workspace api unreachable")

	// ErrConventionNotFound is returned when a channel has no convention
	ErrConventionNotFound = errors.New("convention not found")

	// ErrInvalidConvention is the sentinel behind every ValidationError
	ErrInvalidConvention = errors.New("invalid convention")
)

// ValidationError describes malformed convention text
type ValidationError struct {
	Pattern string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid convention %q: %s", e.Pattern, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConvention
}

// UpstreamAPIError is a non-ok answer from the workspace API
type UpstreamAPIError struct {
	Op     string
	Code   int
	Reason string
}

func (e *UpstreamAPIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: upstream error %d: %s", e.Op, e.Code, e.Reason)
	}
	return fmt.Sprintf("%s: upstream error: %s", e.Op, e.Reason)
}
