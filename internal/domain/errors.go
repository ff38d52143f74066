// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrItemNotFound is returned when the requested content item does not exist.
	ErrItemNotFound = errors.New("content item not found")

	// ErrPrecondition is returned when an item is not in a state that admits
	// the requested operation (e.g. publishing without generated text).
	ErrPrecondition = errors.New("operation precondition not met")

	// ErrAlreadyInProgress is returned when a job of the same kind is already
	// unresolved for the item. The caller should wait for it to settle.
	ErrAlreadyInProgress = errors.New("job already in progress for item")

	// ErrNotEnabled is returned when the requested feature is turned off
	// for the owning site.
	ErrNotEnabled = errors.New("feature not enabled")

	// ErrUnknownOutcome is returned when a job's true outcome could not be
	// confirmed within the observation window. The item is left retryable,
	// but a manual refresh is advisable before retrying.
	ErrUnknownOutcome = errors.New("job outcome unknown after timeout")

	// ErrInvalidTransition is returned when a job kind cannot advance an item
	// from its current lifecycle status.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// WorkerError wraps a terminal failure reported by the job ledger, carrying
// the worker's own message. It is only ever delivered through the failure
// notification path, never returned from a request.
type WorkerError struct {
	Message string
}

// Error implements the error interface for WorkerError.
func (e *WorkerError) Error() string {
	if e.Message == "" {
		return "worker reported failure"
	}
	return fmt.Sprintf("worker reported failure: %s", e.Message)
}

// NewWorkerError creates a WorkerError from the ledger's error message.
func NewWorkerError(message string) *WorkerError {
	return &WorkerError{Message: message}
}
