package api

import (
	"errors"
	"net/http"

	"github.com/tubetone/tubetone-api/internal/domain"
	"github.com/tubetone/tubetone-api/internal/service"
	"github.com/tubetone/tubetone-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, domain.ErrInvalidSourceURL),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Not found errors. A task that has not finished yet has no artifact
	// to serve, so it is indistinguishable from an absent one on the
	// download paths.
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrArtifactUnavailable),
		errors.Is(err, service.ErrTaskNotReady),
		errors.Is(err, store.ErrTaskNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, domain.ErrTerminalState),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict

	// Backpressure
	case errors.Is(err, service.ErrQueueBusy):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, domain.ErrInvalidSourceURL):
		return "Invalid YouTube URL"

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, service.ErrArtifactUnavailable):
		return "Audio is no longer available, submit the conversion again"

	case errors.Is(err, service.ErrTaskNotReady):
		return "Conversion has not finished yet"

	case errors.Is(err, domain.ErrTerminalState),
		errors.Is(err, domain.ErrInvalidTransition):
		return "Task is already in a final state"

	case errors.Is(err, service.ErrQueueBusy):
		return "Server is busy, try again later"

	default:
		return "An unexpected error occurred"
	}
}
