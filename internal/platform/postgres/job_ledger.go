package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/planship/contentops/internal/domain"
	"github.com/planship/contentops/internal/platform/logger"
	"github.com/planship/contentops/internal/store"
)

// Enqueuer hands a freshly recorded job to the background worker.
// The asynq-backed implementation lives in the worker package.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *domain.Job) error
}

// JobLedger implements store.JobLedger and store.JobRecorder on PostgreSQL.
// Submission inserts the durable record first and then enqueues the work, so
// a job id always refers to a row the watcher can read.
type JobLedger struct {
	db       store.DBTX
	enqueuer Enqueuer
}

// NewJobLedger creates a new JobLedger.
func NewJobLedger(db store.DBTX, enqueuer Enqueuer) *JobLedger {
	return &JobLedger{
		db:       db,
		enqueuer: enqueuer,
	}
}

// Submit records a new queued job and dispatches it to the worker.
func (l *JobLedger) Submit(ctx context.Context, kind domain.JobKind, itemID uuid.UUID) (uuid.UUID, error) {
	log := logger.FromContext(ctx)

	if !domain.IsValidJobKind(kind) {
		return uuid.Nil, fmt.Errorf("%w: unknown job kind %q", store.ErrInvalidEntity, kind)
	}

	job := &domain.Job{
		ID:        uuid.New(),
		Kind:      kind,
		ItemID:    itemID,
		Status:    domain.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO jobs (id, kind, item_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := l.db.ExecContext(ctx, query,
		job.ID,
		job.Kind,
		job.ItemID,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to record job",
			"job_kind", kind,
			"item_id", itemID,
			"error", err)
		return uuid.Nil, fmt.Errorf("failed to record job: %w", err)
	}

	if err := l.enqueuer.Enqueue(ctx, job); err != nil {
		// The row stays queued; the watcher's timer will surface the stall
		// as an unknown outcome rather than losing the request silently.
		log.Error("failed to enqueue job",
			"job_id", job.ID,
			"job_kind", kind,
			"error", err)
		return uuid.Nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return job.ID, nil
}

// GetByID retrieves a job record by its ID.
// Returns store.ErrJobNotFound if the job does not exist.
func (l *JobLedger) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, kind, item_id, status, error_message, result, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	var (
		job      domain.Job
		errorMsg sql.NullString
		result   []byte
	)

	err := l.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.Kind,
		&job.ItemID,
		&job.Status,
		&errorMsg,
		&result,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		log.Error("failed to get job",
			"job_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	job.Error = errorMsg.String
	if len(result) > 0 {
		var jobResult domain.JobResult
		if err := json.Unmarshal(result, &jobResult); err != nil {
			return nil, fmt.Errorf("failed to decode job result: %w", err)
		}
		job.Result = &jobResult
	}

	return &job, nil
}

// MarkRunning transitions a queued job to running. A row that is not queued
// anymore is reported as ErrUpdateFailed so duplicate deliveries get skipped.
func (l *JobLedger) MarkRunning(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	res, err := l.db.ExecContext(ctx, query,
		domain.JobStatusRunning,
		time.Now().UTC(),
		id,
		domain.JobStatusQueued,
	)
	if err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("%w: job %s is not queued", store.ErrUpdateFailed, id)
	}
	return nil
}

// Complete records a successful terminal result. The status guard makes
// terminal states sticky: a finished job is never reopened or rewritten.
func (l *JobLedger) Complete(ctx context.Context, id uuid.UUID, result *domain.JobResult) error {
	log := logger.FromContext(ctx)

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode job result: %w", err)
	}

	query := `
		UPDATE jobs
		SET status = $1, result = $2, updated_at = $3
		WHERE id = $4 AND status NOT IN ($5, $6)
	`

	res, err := l.db.ExecContext(ctx, query,
		domain.JobStatusCompleted,
		data,
		time.Now().UTC(),
		id,
		domain.JobStatusCompleted,
		domain.JobStatusFailed,
	)
	if err != nil {
		log.Error("failed to complete job",
			"job_id", id,
			"error", err)
		return fmt.Errorf("failed to complete job: %w", err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		log.Warn("ignored completion for job already terminal", "job_id", id)
	}
	return nil
}

// Fail records a failed terminal result with the worker's message.
// Like Complete, it never rewrites an already terminal row.
func (l *JobLedger) Fail(ctx context.Context, id uuid.UUID, errorMsg string) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status NOT IN ($5, $6)
	`

	res, err := l.db.ExecContext(ctx, query,
		domain.JobStatusFailed,
		errorMsg,
		time.Now().UTC(),
		id,
		domain.JobStatusCompleted,
		domain.JobStatusFailed,
	)
	if err != nil {
		log.Error("failed to record job failure",
			"job_id", id,
			"error", err)
		return fmt.Errorf("failed to record job failure: %w", err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		log.Warn("ignored failure for job already terminal", "job_id", id)
	}
	return nil
}

// Ensure JobLedger implements both ledger contracts
var (
	_ store.JobLedger   = (*JobLedger)(nil)
	_ store.JobRecorder = (*JobLedger)(nil)
)
