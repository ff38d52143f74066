package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/planship/contentops/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler collects every outcome it receives and can be configured
// to fail.
type recordingHandler struct {
	events []*JobOutcomeEvent
	err    error
}

func (h *recordingHandler) HandleOutcome(ctx context.Context, event *JobOutcomeEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInMemoryEmitter_EmitOutcome(t *testing.T) {
	t.Parallel()

	t.Run("delivers to all handlers", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEmitter(testLogger())
		first := &recordingHandler{}
		second := &recordingHandler{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		event := NewJobOutcomeEvent(uuid.New(), domain.JobKindGenerateText, domain.JobStatusCompleted, nil)
		require.NoError(t, emitter.EmitOutcome(context.Background(), event))

		assert.Len(t, first.events, 1)
		assert.Len(t, second.events, 1)
		assert.Equal(t, event.ID, first.events[0].ID)
	})

	t.Run("no handlers is not an error", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEmitter(testLogger())
		event := NewJobOutcomeEvent(uuid.New(), domain.JobKindPublish, domain.JobStatusFailed, domain.ErrUnknownOutcome)
		assert.NoError(t, emitter.EmitOutcome(context.Background(), event))
	})

	t.Run("failing handler does not block others", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEmitter(testLogger())
		failing := &recordingHandler{err: errors.New("handler broke")}
		healthy := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(healthy)

		event := NewJobOutcomeEvent(uuid.New(), domain.JobKindPublish, domain.JobStatusCompleted, nil)
		err := emitter.EmitOutcome(context.Background(), event)

		assert.Error(t, err)
		assert.Len(t, healthy.events, 1)
	})
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	recorder := NewRecorder()
	itemID := uuid.New()

	_, ok := recorder.LastOutcome(itemID)
	assert.False(t, ok)

	first := NewJobOutcomeEvent(itemID, domain.JobKindGenerateText, domain.JobStatusCompleted, nil)
	require.NoError(t, recorder.HandleOutcome(context.Background(), first))

	second := NewJobOutcomeEvent(
		itemID,
		domain.JobKindPublish,
		domain.JobStatusFailed,
		domain.NewWorkerError("target rejected the post"),
	)
	require.NoError(t, recorder.HandleOutcome(context.Background(), second))

	got, ok := recorder.LastOutcome(itemID)
	require.True(t, ok)
	assert.Equal(t, second.ID, got.ID)
	assert.False(t, got.Succeeded())
}

func TestJobOutcomeEvent_Succeeded(t *testing.T) {
	t.Parallel()

	success := NewJobOutcomeEvent(uuid.New(), domain.JobKindGenerateText, domain.JobStatusCompleted, nil)
	assert.True(t, success.Succeeded())

	failure := NewJobOutcomeEvent(uuid.New(), domain.JobKindGenerateText, domain.JobStatusFailed, domain.ErrUnknownOutcome)
	assert.False(t, failure.Succeeded())
}
