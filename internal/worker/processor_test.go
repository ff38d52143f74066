package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planship/contentops/internal/domain"
	"github.com/planship/contentops/internal/notify"
	"github.com/planship/contentops/internal/store"
)

type fakeItems struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.ContentItem
}

func newFakeItems() *fakeItems {
	return &fakeItems{items: make(map[uuid.UUID]*domain.ContentItem)}
}

func (s *fakeItems) Create(_ context.Context, item *domain.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return nil
}

func (s *fakeItems) GetByID(_ context.Context, id uuid.UUID) (*domain.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *fakeItems) UpdateStatus(_ context.Context, id uuid.UUID, status domain.LifecycleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	item.Status = status
	return nil
}

func (s *fakeItems) Apply(_ context.Context, id uuid.UUID, patch store.ContentItemPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return store.ErrItemNotFound
	}
	return nil
}

type fakeRecorder struct {
	mu           sync.Mutex
	running      []uuid.UUID
	completed    map[uuid.UUID]*domain.JobResult
	failed       map[uuid.UUID]string
	markErr      error
	completeErr  error
	markRunCalls int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		completed: make(map[uuid.UUID]*domain.JobResult),
		failed:    make(map[uuid.UUID]string),
	}
}

func (r *fakeRecorder) MarkRunning(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markRunCalls++
	if r.markErr != nil {
		return r.markErr
	}
	r.running = append(r.running, id)
	return nil
}

func (r *fakeRecorder) Complete(_ context.Context, id uuid.UUID, result *domain.JobResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completeErr != nil {
		return r.completeErr
	}
	r.completed[id] = result
	return nil
}

func (r *fakeRecorder) Fail(_ context.Context, id uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[id] = message
	return nil
}

type fakeTextGen struct {
	text string
	err  error
}

func (g *fakeTextGen) GenerateText(_ context.Context, _ *domain.ContentItem) (string, error) {
	return g.text, g.err
}

type fakeImageGen struct {
	ref string
	err error
}

func (g *fakeImageGen) GenerateImage(_ context.Context, _ *domain.ContentItem) (string, error) {
	return g.ref, g.err
}

type fakePublisher struct {
	mu       sync.Mutex
	ref      domain.PublishRef
	err      error
	lastBody string
}

func (p *fakePublisher) Publish(_ context.Context, item *domain.ContentItem) (domain.PublishRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastBody = item.GeneratedText
	return p.ref, p.err
}

type capturePusher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *capturePusher) Publish(_ context.Context, event notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

type processorHarness struct {
	items     *fakeItems
	recorder  *fakeRecorder
	textGen   *fakeTextGen
	imageGen  *fakeImageGen
	publisher *fakePublisher
	pusher    *capturePusher
	processor *Processor
}

func newProcessorHarness() *processorHarness {
	h := &processorHarness{
		items:     newFakeItems(),
		recorder:  newFakeRecorder(),
		textGen:   &fakeTextGen{text: "generated body"},
		imageGen:  &fakeImageGen{ref: "images/a.png"},
		publisher: &fakePublisher{ref: domain.PublishRef{ExternalID: "p-1", URL: "https://platform.example/p/p-1"}},
		pusher:    &capturePusher{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.processor = NewProcessor(h.items, h.recorder, h.textGen, h.imageGen, h.publisher, h.pusher, logger)
	return h
}

func (h *processorHarness) seedItem(t *testing.T, status domain.LifecycleStatus, text string) *domain.ContentItem {
	t.Helper()
	item, err := domain.NewContentItem("Quarterly roundup", "")
	require.NoError(t, err)
	item.Status = status
	item.GeneratedText = text
	require.NoError(t, h.items.Create(context.Background(), item))
	return item
}

func taskFor(t *testing.T, kind domain.JobKind, jobID, itemID uuid.UUID) *asynq.Task {
	t.Helper()
	task, err := NewTask(&domain.Job{ID: jobID, Kind: kind, ItemID: itemID})
	require.NoError(t, err)
	return task
}

func TestProcessTask(t *testing.T) {
	t.Parallel()

	t.Run("text generation records completion and pushes update", func(t *testing.T) {
		t.Parallel()

		h := newProcessorHarness()
		item := h.seedItem(t, domain.LifecycleStatusApproved, "")
		jobID := uuid.New()

		task := taskFor(t, domain.JobKindGenerateText, jobID, item.ID)
		require.NoError(t, h.processor.ProcessTask(context.Background(), task))

		result, ok := h.recorder.completed[jobID]
		require.True(t, ok, "job should be marked completed")
		assert.Equal(t, "generated body", result.Text)

		require.Len(t, h.pusher.events, 1)
		assert.Equal(t, jobID, h.pusher.events[0].JobID)
		assert.Equal(t, domain.JobStatusCompleted, h.pusher.events[0].Status)
	})

	t.Run("image generation records image ref", func(t *testing.T) {
		t.Parallel()

		h := newProcessorHarness()
		item := h.seedItem(t, domain.LifecycleStatusTextGenerated, "body")
		jobID := uuid.New()

		task := taskFor(t, domain.JobKindGenerateImage, jobID, item.ID)
		require.NoError(t, h.processor.ProcessTask(context.Background(), task))

		result := h.recorder.completed[jobID]
		require.NotNil(t, result)
		assert.Equal(t, "images/a.png", result.ImageRef)
	})

	t.Run("publish records publish ref", func(t *testing.T) {
		t.Parallel()

		h := newProcessorHarness()
		item := h.seedItem(t, domain.LifecycleStatusGenerated, "body")
		jobID := uuid.New()

		task := taskFor(t, domain.JobKindPublish, jobID, item.ID)
		require.NoError(t, h.processor.ProcessTask(context.Background(), task))

		result := h.recorder.completed[jobID]
		require.NotNil(t, result)
		require.NotNil(t, result.Publish)
		assert.Equal(t, "p-1", result.Publish.ExternalID)
	})

	t.Run("generate and publish sends fresh text to the platform", func(t *testing.T) {
		t.Parallel()

		h := newProcessorHarness()
		item := h.seedItem(t, domain.LifecycleStatusApproved, "")
		jobID := uuid.New()

		task := taskFor(t, domain.JobKindGenerateAndPublish, jobID, item.ID)
		require.NoError(t, h.processor.ProcessTask(context.Background(), task))

		result := h.recorder.completed[jobID]
		require.NotNil(t, result)
		assert.Equal(t, "generated body", result.Text)
		require.NotNil(t, result.Publish)
		assert.Equal(t, "generated body", h.publisher.lastBody)
	})

	t.Run("generation failure records failed job, task still succeeds", func(t *testing.T) {
		t.Parallel()

		h := newProcessorHarness()
		h.textGen.err = errors.New("model unavailable")
		item := h.seedItem(t, domain.LifecycleStatusApproved, "")
		jobID := uuid.New()

		task := taskFor(t, domain.JobKindGenerateText, jobID, item.ID)
		require.NoError(t, h.processor.ProcessTask(context.Background(), task))

		message, ok := h.recorder.failed[jobID]
		require.True(t, ok, "job should be marked failed")
		assert.Contains(t, message, "model unavailable")

		require.Len(t, h.pusher.events, 1)
		assert.Equal(t, domain.JobStatusFailed, h.pusher.events[0].Status)
	})

	t.Run("missing item records failed job", func(t *testing.T) {
		t.Parallel()

		h := newProcessorHarness()
		jobID := uuid.New()

		task := taskFor(t, domain.JobKindGenerateText, jobID, uuid.New())
		require.NoError(t, h.processor.ProcessTask(context.Background(), task))

		message, ok := h.recorder.failed[jobID]
		require.True(t, ok)
		assert.Contains(t, message, "lookup failed")
	})

	t.Run("duplicate delivery is skipped when record not queued", func(t *testing.T) {
		t.Parallel()

		h := newProcessorHarness()
		h.recorder.markErr = store.ErrUpdateFailed
		item := h.seedItem(t, domain.LifecycleStatusApproved, "")

		task := taskFor(t, domain.JobKindGenerateText, uuid.New(), item.ID)
		require.NoError(t, h.processor.ProcessTask(context.Background(), task))

		assert.Empty(t, h.recorder.completed)
		assert.Empty(t, h.recorder.failed)
		assert.Empty(t, h.pusher.events)
	})

	t.Run("malformed payload is surfaced to the queue", func(t *testing.T) {
		t.Parallel()

		h := newProcessorHarness()
		err := h.processor.ProcessTask(context.Background(), asynq.NewTask(TaskTypeGenerateText, []byte("{not json")))
		require.Error(t, err)
	})
}

func TestTaskTypeFor(t *testing.T) {
	t.Parallel()

	for kind, want := range map[domain.JobKind]string{
		domain.JobKindGenerateText:       TaskTypeGenerateText,
		domain.JobKindGenerateImage:      TaskTypeGenerateImage,
		domain.JobKindPublish:            TaskTypePublish,
		domain.JobKindGenerateAndPublish: TaskTypeGenerateAndPublish,
	} {
		got, err := TaskTypeFor(kind)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := TaskTypeFor(domain.JobKind("mystery"))
	assert.Error(t, err)
}
