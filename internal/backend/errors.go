package backend

import "errors"

// Common errors returned by backend implementations.
var (
	// ErrTransient marks failures that might resolve on retry: network
	// timeouts, rate limits, recoverable subprocess exits.
	ErrTransient = errors.New("transient conversion error")

	// ErrPermanent marks failures that retrying cannot fix: content
	// unavailable, access denied, region restrictions.
	ErrPermanent = errors.New("permanent conversion error")

	// ErrNotConfigured is returned when the selected backend is missing a
	// required credential or tool. Surfaces as an operator-actionable task
	// error and is never retried.
	ErrNotConfigured = errors.New("backend not configured")
)

// IsTransient reports whether the error is classified as retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent reports whether the error is classified as non-retryable.
// Configuration errors count as permanent for retry purposes.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent) || errors.Is(err, ErrNotConfigured)
}
