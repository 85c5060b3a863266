// internal/types/errors.go
package types

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable is returned when a request fails outright: timeout,
	// connection error, non-2xx status or an undecodable body.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMissingField is returned when a response succeeded but the expected
	// value is absent or null.
	ErrMissingField = errors.New("missing field")

	// ErrNoPatternMatch is returned when scraped text does not contain the
	// holdings figure.
	ErrNoPatternMatch = errors.New("no pattern match")
)

// SourceError carries the failing source alongside the underlying error
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError wraps err with the source name. A nil err stays nil.
func NewSourceError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Source: source, Err: err}
}

// Unavailable builds an error that matches both ErrSourceUnavailable and cause.
func Unavailable(source string, cause error) error {
	return NewSourceError(source, fmt.Errorf("%w: %w", ErrSourceUnavailable, cause))
}

// Missing builds an error that matches ErrMissingField.
func Missing(source, field string) error {
	return NewSourceError(source, fmt.Errorf("%w: %s", ErrMissingField, field))
}
