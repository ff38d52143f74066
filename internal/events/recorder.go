package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Recorder is an OutcomeHandler that keeps the most recent outcome per
// content item. The progress endpoint reads from it so the dashboard can show
// what happened to the last job without a persistent audit table.
type Recorder struct {
	mu       sync.RWMutex
	outcomes map[uuid.UUID]*JobOutcomeEvent
}

// NewRecorder creates a new outcome recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		outcomes: make(map[uuid.UUID]*JobOutcomeEvent),
	}
}

// HandleOutcome stores the outcome as the latest for its item.
func (r *Recorder) HandleOutcome(ctx context.Context, event *JobOutcomeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[event.ItemID] = event
	return nil
}

// LastOutcome returns the most recent outcome recorded for the item,
// or false if no job for the item has been reconciled yet.
func (r *Recorder) LastOutcome(itemID uuid.UUID) (*JobOutcomeEvent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.outcomes[itemID]
	return event, ok
}

// Ensure Recorder implements OutcomeHandler
var _ OutcomeHandler = (*Recorder)(nil)
