package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEmitter is a simple implementation of the Emitter interface that
// stores registered handlers in memory and dispatches outcomes to them.
type InMemoryEmitter struct {
	handlers []OutcomeHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEmitter creates a new instance of InMemoryEmitter.
func NewInMemoryEmitter(logger *slog.Logger) *InMemoryEmitter {
	return &InMemoryEmitter{
		handlers: make([]OutcomeHandler, 0),
		logger:   logger.With("component", "in_memory_emitter"),
	}
}

// RegisterHandler adds a new outcome handler to receive events.
func (e *InMemoryEmitter) RegisterHandler(handler OutcomeHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered new outcome handler", "handler_count", len(e.handlers))
}

// EmitOutcome publishes the given outcome to all registered handlers.
// If any handler returns an error, the outcome is still delivered to all
// other handlers, and the first error encountered is returned.
func (e *InMemoryEmitter) EmitOutcome(ctx context.Context, event *JobOutcomeEvent) error {
	e.mu.RLock()
	handlers := make([]OutcomeHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	e.logger.Debug("emitting job outcome",
		"event_id", event.ID,
		"item_id", event.ItemID,
		"job_kind", event.Kind,
		"job_status", event.Status,
		"handler_count", len(handlers))

	if len(handlers) == 0 {
		e.logger.Warn("no handlers registered for job outcome",
			"event_id", event.ID,
			"item_id", event.ItemID)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleOutcome(ctx, event); err != nil {
			e.logger.Error("handler failed to process job outcome",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"item_id", event.ItemID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// Ensure InMemoryEmitter implements Emitter
var _ Emitter = (*InMemoryEmitter)(nil)
