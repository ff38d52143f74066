package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/planship/contentops/internal/domain"
)

// JobOutcomeEvent represents the terminal outcome of one background job,
// applied to one content item. Exactly one event is emitted per job,
// regardless of how many completion signals raced to report it.
type JobOutcomeEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID

	// ItemID is the content item the job affected
	ItemID uuid.UUID

	// Kind is the kind of job that finished
	Kind domain.JobKind

	// Status is the job's terminal ledger status
	Status domain.JobStatus

	// Err carries the failure cause when Status is failed. It is either a
	// *domain.WorkerError or domain.ErrUnknownOutcome.
	Err error

	// OccurredAt is the timestamp when the outcome was reconciled
	OccurredAt time.Time
}

// Succeeded reports whether the job completed successfully.
func (e *JobOutcomeEvent) Succeeded() bool {
	return e.Status == domain.JobStatusCompleted
}

// NewJobOutcomeEvent creates an outcome event for the given reconciliation.
func NewJobOutcomeEvent(itemID uuid.UUID, kind domain.JobKind, status domain.JobStatus, err error) *JobOutcomeEvent {
	return &JobOutcomeEvent{
		ID:         uuid.New(),
		ItemID:     itemID,
		Kind:       kind,
		Status:     status,
		Err:        err,
		OccurredAt: time.Now().UTC(),
	}
}

// OutcomeHandler defines an interface for components that consume job
// outcomes. Handlers must tolerate being called from the watcher goroutine.
type OutcomeHandler interface {
	// HandleOutcome processes the given outcome within the provided context.
	// Returns an error if the outcome cannot be handled successfully.
	HandleOutcome(ctx context.Context, event *JobOutcomeEvent) error
}

// Emitter defines an interface for components that emit job outcomes.
// This allows the coordinator to publish outcomes without direct knowledge
// of handlers.
type Emitter interface {
	// EmitOutcome publishes the given outcome to all registered handlers.
	EmitOutcome(ctx context.Context, event *JobOutcomeEvent) error
}
