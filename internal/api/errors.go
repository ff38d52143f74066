package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/planship/contentops/internal/domain"
	"github.com/planship/contentops/internal/lifecycle"
	"github.com/planship/contentops/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, store.ErrItemNotFound),
		errors.Is(err, store.ErrJobNotFound):
		return http.StatusNotFound

	// Conflict: a job of this kind is already running for the item
	case errors.Is(err, domain.ErrAlreadyInProgress):
		return http.StatusConflict

	// Lifecycle preconditions not met
	case errors.Is(err, domain.ErrPrecondition),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity

	// Feature disabled by configuration
	case errors.Is(err, domain.ErrNotEnabled):
		return http.StatusForbidden

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Shutting down
	case errors.Is(err, lifecycle.ErrCoordinatorClosed):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message based
// on the error type.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, store.ErrItemNotFound):
		return "Content item not found"

	case errors.Is(err, store.ErrJobNotFound):
		return "Job not found"

	case errors.Is(err, domain.ErrAlreadyInProgress):
		return "A job of this kind is already in progress for this item"

	case errors.Is(err, domain.ErrPrecondition):
		return "The item's lifecycle state does not allow this operation"

	case errors.Is(err, domain.ErrInvalidTransition):
		return "Invalid lifecycle transition"

	case errors.Is(err, domain.ErrNotEnabled):
		return "Image generation is not enabled"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, lifecycle.ErrCoordinatorClosed):
		return "Service is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// GetSafeOutcomeMessage describes a reconciled job failure for clients. The
// worker's message is operator-facing detail and is not echoed back.
func GetSafeOutcomeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrUnknownOutcome):
		return "Job outcome unknown after timeout"
	default:
		return "Job failed"
	}
}

// SanitizeValidationError turns a validator error into a user-friendly
// message without echoing raw input back.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'CreateItemRequest.Title' Error:Field validation for 'Title' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, validationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
