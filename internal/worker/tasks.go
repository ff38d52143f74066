// Package worker executes generation and publish jobs in the background via
// asynq. Each ledger record maps to exactly one queued task; the processor
// writes the terminal result back into the ledger and then pushes an update
// onto the notification channel.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/planship/contentops/internal/domain"
)

// Task types registered on the asynq mux, one per job kind.
const (
	TaskTypeGenerateText       = "job:generate_text"
	TaskTypeGenerateImage      = "job:generate_image"
	TaskTypePublish            = "job:publish"
	TaskTypeGenerateAndPublish = "job:generate_and_publish"
)

// jobQueue is the asynq queue all lifecycle jobs run on.
const jobQueue = "jobs"

// taskPayload carries the identifiers a processor needs; everything else is
// read from the stores.
type taskPayload struct {
	JobID  uuid.UUID `json:"job_id"`
	ItemID uuid.UUID `json:"item_id"`
}

// TaskTypeFor maps a job kind to its asynq task type.
func TaskTypeFor(kind domain.JobKind) (string, error) {
	switch kind {
	case domain.JobKindGenerateText:
		return TaskTypeGenerateText, nil
	case domain.JobKindGenerateImage:
		return TaskTypeGenerateImage, nil
	case domain.JobKindPublish:
		return TaskTypePublish, nil
	case domain.JobKindGenerateAndPublish:
		return TaskTypeGenerateAndPublish, nil
	default:
		return "", fmt.Errorf("no task type for job kind %q", kind)
	}
}

// NewTask builds the asynq task for a ledger record.
func NewTask(job *domain.Job) (*asynq.Task, error) {
	taskType, err := TaskTypeFor(job.Kind)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(taskPayload{JobID: job.ID, ItemID: job.ItemID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return asynq.NewTask(taskType, data), nil
}

// Enqueuer dispatches ledger records onto the asynq queue. It satisfies the
// ledger's enqueue dependency.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates an Enqueuer backed by the asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// Enqueue places the job on the queue. Jobs are never retried by asynq
// itself: a processing failure is recorded in the ledger as a failed job and
// surfaced to the watcher, which decides what happens next.
func (e *Enqueuer) Enqueue(ctx context.Context, job *domain.Job) error {
	task, err := NewTask(job)
	if err != nil {
		return err
	}

	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(jobQueue),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s task: %w", task.Type(), err)
	}
	return nil
}
