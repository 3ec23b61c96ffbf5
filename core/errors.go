// Package core holds the error taxonomy shared by every layer of the query
// engine: validation of query input, upstream fetches, snapshot cache I/O and
// numeric domain failures in derived fields.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/asaidimu/go-ninja/core/schema"
)

// Sentinel errors. Callers match them with errors.Is; every error returned by
// the engine wraps exactly one of these.
var (
	ErrValidation    = errors.New("validation failed")
	ErrUpstreamFetch = errors.New("upstream fetch failed")
	ErrCacheIO       = errors.New("snapshot cache i/o failed")
	ErrNumericDomain = errors.New("numeric domain error")
)

// ValidationError reports every problem found while compiling a filter
// expression or an order specification. It unwraps to ErrValidation.
type ValidationError struct {
	Issues []schema.Issue `json:"issues"`
}

// NewValidationError wraps a list of issues. It returns nil when the list is empty.
func NewValidationError(issues []schema.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Path != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
		} else {
			parts = append(parts, issue.Message)
		}
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// UpstreamError wraps a network or decode failure for a single upstream partition.
func UpstreamError(partition string, err error) error {
	return fmt.Errorf("%w: partition %s: %w", ErrUpstreamFetch, partition, err)
}

// CacheError wraps a failure reading, writing or decoding a snapshot envelope.
func CacheError(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %w", ErrCacheIO, op, key, err)
}
