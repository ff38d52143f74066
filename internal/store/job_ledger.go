package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/planship/contentops/internal/domain"
)

// JobLedger is the read-and-submit contract the lifecycle coordinator has
// with the durable job record. Submission implicitly hands the work to the
// background worker; the coordinator never mutates job records, only
// observes them.
type JobLedger interface {
	// Submit records a new job for the item and dispatches it to the worker.
	// Returns the ledger-assigned job ID.
	Submit(ctx context.Context, kind domain.JobKind, itemID uuid.UUID) (uuid.UUID, error)

	// GetByID retrieves a job record by its ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
}

// JobRecorder is the worker-side contract for writing a job's progress and
// terminal result into the ledger. Terminal states are sticky: Complete and
// Fail refuse to reopen a record that is already terminal.
type JobRecorder interface {
	// MarkRunning transitions a queued job to running.
	MarkRunning(ctx context.Context, id uuid.UUID) error

	// Complete records a successful terminal result with its artifacts.
	Complete(ctx context.Context, id uuid.UUID, result *domain.JobResult) error

	// Fail records a failed terminal result with the worker's error message.
	Fail(ctx context.Context, id uuid.UUID, errorMsg string) error
}
