package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. Absence is a normal outcome for task lookups (the record may
	// never have existed, or its TTL elapsed) and must never be conflated
	// with a failed conversion.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrStoreUnavailable is returned when the underlying store cannot be
	// reached. The stores never retry internally; callers decide whether to
	// retry or surface the failure.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrTaskNotFound indicates that the requested task does not exist or
	// has expired.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrCacheMiss indicates that no valid cache entry exists for the
	// requested URL hash. Strictly an optimization outcome, never a failure.
	ErrCacheMiss = fmt.Errorf("%w: cache entry", ErrNotFound)
)
