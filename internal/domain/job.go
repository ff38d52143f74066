package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobKind identifies the unit of background work a job performs.
// It is a closed set; the lifecycle coordinator switches over it exactly once
// when applying a terminal result.
type JobKind string

// Possible job kinds
const (
	JobKindGenerateText       JobKind = "generate_text"
	JobKindGenerateImage      JobKind = "generate_image"
	JobKindPublish            JobKind = "publish"
	JobKindGenerateAndPublish JobKind = "generate_and_publish"
)

// JobStatus represents the processing state of a job in the ledger.
// Completed and Failed are sticky: a terminal job record is never reopened.
type JobStatus string

// Possible job status values
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is one of the sticky end states.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobResult carries the artifacts a completed job produced. Only the fields
// relevant to the job's kind are populated.
type JobResult struct {
	Text     string      `json:"text,omitempty"`
	ImageRef string      `json:"image_ref,omitempty"`
	Publish  *PublishRef `json:"publish,omitempty"`
}

// Job is a read model of one ledger record. The ledger exclusively owns job
// records; this subsystem only submits new ones and observes existing ones.
type Job struct {
	ID        uuid.UUID  `json:"id"`
	Kind      JobKind    `json:"kind"`
	ItemID    uuid.UUID  `json:"item_id"`
	Status    JobStatus  `json:"status"`
	Error     string     `json:"error,omitempty"`
	Result    *JobResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsValidJobKind checks if the given kind is a known JobKind.
func IsValidJobKind(kind JobKind) bool {
	switch kind {
	case JobKindGenerateText, JobKindGenerateImage, JobKindPublish, JobKindGenerateAndPublish:
		return true
	default:
		return false
	}
}

// NextStatus returns the lifecycle status a successful job of the given kind
// advances an item to, from the item's current status. Kinds that do not
// change the lifecycle status (image generation on an item without text)
// return the current status unchanged. Returns ErrInvalidTransition when the
// current status does not admit the job kind.
func NextStatus(current LifecycleStatus, kind JobKind) (LifecycleStatus, error) {
	switch kind {
	case JobKindGenerateText:
		switch current {
		case LifecycleStatusPending, LifecycleStatusApproved, LifecycleStatusTextGenerated:
			// Regenerating already-generated text keeps the same status.
			return LifecycleStatusTextGenerated, nil
		}
	case JobKindPublish:
		switch current {
		case LifecycleStatusTextGenerated, LifecycleStatusGenerated:
			return LifecycleStatusPublished, nil
		}
	case JobKindGenerateAndPublish:
		switch current {
		case LifecycleStatusPending, LifecycleStatusApproved:
			return LifecycleStatusPublished, nil
		}
	case JobKindGenerateImage:
		// Image generation completes the generated pair when text exists,
		// otherwise it leaves the lifecycle status alone.
		if current == LifecycleStatusTextGenerated {
			return LifecycleStatusGenerated, nil
		}
		return current, nil
	}
	return current, ErrInvalidTransition
}
