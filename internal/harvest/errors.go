package harvest

import (
	"errors"
	"fmt"
)

// Sentinel errors for outcome classification.
var (
	// ErrEmptyContent marks a fetch that completed but produced content
	// failing the validity predicate. Retryable, and indistinguishable
	// from a transport failure to the retry policy.
	ErrEmptyContent = errors.New("extracted content empty or too short")

	// ErrMaxRetries marks a key that exhausted its retry budget.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// TransportError wraps a fetch failure (timeout, navigation error).
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CorruptRecordError marks an output record that could not be decoded.
// Such records are deleted rather than retried in place.
type CorruptRecordError struct {
	Path string
	Err  error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record %s: %v", e.Path, e.Err)
}

func (e *CorruptRecordError) Unwrap() error {
	return e.Err
}

// Retryable reports whether an attempt error should consume a retry
// rather than abort the key outright.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyContent) {
		return true
	}
	var te *TransportError
	return errors.As(err, &te)
}
