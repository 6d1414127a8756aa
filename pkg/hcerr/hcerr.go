// Package hcerr defines the sentinel error kinds shared by every hclust
// package. Call sites wrap a sentinel with context via fmt.Errorf and a
// double %w (context, cause), so callers can match on the sentinel with
// errors.Is while still getting a specific message.
package hcerr

import (
	"errors"
	"fmt"
)

// Error kinds, one per class of failure the pipeline's tools report.
var (
	// ErrIO covers file open/read/write failures.
	ErrIO = errors.New("io error")

	// ErrFormat covers malformed tree/roi/block headers.
	ErrFormat = errors.New("format error")

	// ErrInvariant covers a tree invariant failing after a mutation.
	ErrInvariant = errors.New("invariant error")

	// ErrConfig covers out-of-range CLI values, missing required flags,
	// and block sizes outside their legal range.
	ErrConfig = errors.New("config error")

	// ErrDimensionMismatch covers ROI/tract/image size inconsistencies.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNotFound is returned, never panicked, for a query on an
	// out-of-range node or seed id; see DESIGN.md.
	ErrNotFound = errors.New("not found")
)

// IO wraps err as ErrIO with context.
func IO(context string, err error) error {
	return fmt.Errorf("%s: %w: %w", context, ErrIO, err)
}

// Format wraps err as ErrFormat with context.
func Format(context string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", context, ErrFormat)
	}
	return fmt.Errorf("%s: %w: %w", context, ErrFormat, err)
}

// Invariant reports a failing invariant by name.
func Invariant(what string) error {
	return fmt.Errorf("%s: %w", what, ErrInvariant)
}

// Config wraps err as ErrConfig with context.
func Config(context string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", context, ErrConfig)
	}
	return fmt.Errorf("%s: %w: %w", context, ErrConfig, err)
}

// DimensionMismatch reports a dimension mismatch with context.
func DimensionMismatch(context string) error {
	return fmt.Errorf("%s: %w", context, ErrDimensionMismatch)
}

// NotFound reports a not-found query with context.
func NotFound(context string) error {
	return fmt.Errorf("%s: %w", context, ErrNotFound)
}
