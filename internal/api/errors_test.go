package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planship/contentops/internal/domain"
	"github.com/planship/contentops/internal/lifecycle"
	"github.com/planship/contentops/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"item not found", domain.ErrItemNotFound, http.StatusNotFound},
		{"store item not found", store.ErrItemNotFound, http.StatusNotFound},
		{"job not found", store.ErrJobNotFound, http.StatusNotFound},
		{"already in progress", domain.ErrAlreadyInProgress, http.StatusConflict},
		{"precondition", domain.ErrPrecondition, http.StatusUnprocessableEntity},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{"not enabled", domain.ErrNotEnabled, http.StatusForbidden},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"coordinator closed", lifecycle.ErrCoordinatorClosed, http.StatusServiceUnavailable},
		{"wrapped sentinel", fmt.Errorf("request publish: %w", domain.ErrPrecondition), http.StatusUnprocessableEntity},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
		{"nil error", nil, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Content item not found", GetSafeErrorMessage(domain.ErrItemNotFound))
	assert.Equal(t, "A job of this kind is already in progress for this item",
		GetSafeErrorMessage(domain.ErrAlreadyInProgress))
	assert.Equal(t, "Image generation is not enabled", GetSafeErrorMessage(domain.ErrNotEnabled))

	// Internal detail must never leak through the safe message.
	leaky := errors.New("pq: connection to postgres://admin:secret@db:5432 refused")
	got := GetSafeErrorMessage(leaky)
	assert.Equal(t, "An unexpected error occurred", got)
	assert.NotContains(t, got, "secret")
}

func TestGetSafeOutcomeMessage(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetSafeOutcomeMessage(nil))
	assert.Equal(t, "Job outcome unknown after timeout", GetSafeOutcomeMessage(domain.ErrUnknownOutcome))

	workerErr := domain.NewWorkerError("model quota exceeded at key=sk_abc123456789")
	got := GetSafeOutcomeMessage(workerErr)
	assert.Equal(t, "Job failed", got)
	assert.NotContains(t, got, "sk_abc")
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	err := errors.New(
		"Key: 'CreateItemRequest.Title' Error:Field validation for 'Title' failed on the 'required' tag")
	assert.Equal(t, "Invalid Title: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("something odd")))
}
