// Package service provides application-level services for managing
// conversion tasks: accepting new conversions, answering status polls, and
// the administrative retry and cleanup paths.
package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check for these with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrInvalidURL indicates the submitted source URL is not a YouTube
	// video URL the service accepts.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidURL = errors.New("invalid YouTube URL")

	// ErrTaskNotFound indicates no live task exists for the requested ID.
	// Expired tasks are indistinguishable from ones that never existed.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrQueueBusy indicates the conversion queue cannot accept more work
	// right now. API layer should map this to HTTP 503 Service Unavailable.
	ErrQueueBusy = errors.New("conversion queue is full")

	// ErrArtifactUnavailable indicates the task finished but its audio
	// bytes are no longer held in memory, typically after a restart.
	// API layer should map this to HTTP 404 Not Found.
	ErrArtifactUnavailable = errors.New("audio artifact no longer available")

	// ErrTaskNotReady indicates the task has not produced an artifact yet.
	// API layer should map this to HTTP 409 Conflict.
	ErrTaskNotReady = errors.New("task has not finished yet")
)

// ConversionServiceError wraps unexpected errors from the conversion
// service with operation context.
type ConversionServiceError struct {
	// Operation is the operation that failed (e.g., "convert", "retry")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ConversionServiceError.
func (e *ConversionServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conversion service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("conversion service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ConversionServiceError) Unwrap() error {
	return e.Err
}
