// Package notify defines the push-notification channel for job updates.
//
// The channel delivers at-least-once, unordered events whenever a job ledger
// record changes. Consumers must treat it as lossy: the lifecycle watcher
// always pairs a subscription with a ledger read and a safety timer, so a
// dropped or duplicated event is never fatal.
package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/planship/contentops/internal/domain"
)

// Event is one job update pushed over the channel. The embedded status is a
// hint; the ledger remains the source of truth for terminal results.
type Event struct {
	JobID  uuid.UUID        `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

// Subscription is one live, job-scoped listener on the channel.
type Subscription interface {
	// Events returns the channel events are delivered on. The channel is
	// closed when the subscription is closed.
	Events() <-chan Event

	// Close releases the subscription. Safe to call more than once.
	Close() error
}

// Notifier hands out job-scoped subscriptions.
type Notifier interface {
	// Subscribe opens a subscription filtered to updates for one job ID.
	Subscribe(ctx context.Context, jobID uuid.UUID) (Subscription, error)
}

// Publisher pushes job update events onto the channel. It is used by the
// worker after it writes a job's state into the ledger.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
