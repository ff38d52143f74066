package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/planship/contentops/internal/domain"
	"github.com/planship/contentops/internal/events"
	"github.com/planship/contentops/internal/notify"
	"github.com/planship/contentops/internal/store"
)

// fakeItemStore is an in-memory ContentItemStore that counts Apply calls so
// tests can assert exactly-once reconciliation.
type fakeItemStore struct {
	mu         sync.Mutex
	items      map[uuid.UUID]*domain.ContentItem
	applyCalls int

	// ApplyFn, when set, replaces the default apply behavior.
	ApplyFn func(ctx context.Context, id uuid.UUID, patch store.ContentItemPatch) error
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: make(map[uuid.UUID]*domain.ContentItem)}
}

func (s *fakeItemStore) Create(ctx context.Context, item *domain.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *fakeItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *fakeItemStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LifecycleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	item.Status = status
	return nil
}

func (s *fakeItemStore) Apply(ctx context.Context, id uuid.UUID, patch store.ContentItemPatch) error {
	s.mu.Lock()
	s.applyCalls++
	fn := s.ApplyFn
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, id, patch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	if patch.Status != nil {
		item.Status = *patch.Status
	}
	if patch.GeneratedText != nil {
		item.GeneratedText = *patch.GeneratedText
	}
	if patch.ImageRef != nil {
		item.ImageRef = *patch.ImageRef
	}
	if patch.PublishRef != nil {
		ref := *patch.PublishRef
		item.PublishRef = &ref
	}
	return nil
}

func (s *fakeItemStore) ApplyCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyCalls
}

// fakeLedger is an in-memory JobLedger. OnSubmit can mutate the freshly
// created record before Submit returns, which is how tests simulate a job
// finishing before the watcher can subscribe.
type fakeLedger struct {
	mu          sync.Mutex
	jobs        map[uuid.UUID]*domain.Job
	submitCalls int
	getCalls    int

	OnSubmit func(job *domain.Job)
	SubmitFn func(ctx context.Context, kind domain.JobKind, itemID uuid.UUID) (uuid.UUID, error)
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{jobs: make(map[uuid.UUID]*domain.Job)}
}

func (l *fakeLedger) Submit(ctx context.Context, kind domain.JobKind, itemID uuid.UUID) (uuid.UUID, error) {
	if l.SubmitFn != nil {
		return l.SubmitFn(ctx, kind, itemID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.submitCalls++

	job := &domain.Job{
		ID:        uuid.New(),
		Kind:      kind,
		ItemID:    itemID,
		Status:    domain.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if l.OnSubmit != nil {
		l.OnSubmit(job)
	}
	l.jobs[job.ID] = job
	return job.ID, nil
}

func (l *fakeLedger) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.getCalls++
	job, ok := l.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (l *fakeLedger) GetCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getCalls
}

func (l *fakeLedger) SubmitCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.submitCalls
}

func (l *fakeLedger) complete(id uuid.UUID, result *domain.JobResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if job, ok := l.jobs[id]; ok {
		job.Status = domain.JobStatusCompleted
		job.Result = result
		job.UpdatedAt = time.Now().UTC()
	}
}

func (l *fakeLedger) fail(id uuid.UUID, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if job, ok := l.jobs[id]; ok {
		job.Status = domain.JobStatusFailed
		job.Error = msg
		job.UpdatedAt = time.Now().UTC()
	}
}

// captureEmitter records every emitted outcome.
type captureEmitter struct {
	mu     sync.Mutex
	events []*events.JobOutcomeEvent
}

func (e *captureEmitter) EmitOutcome(ctx context.Context, event *events.JobOutcomeEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *captureEmitter) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

func (e *captureEmitter) Last() *events.JobOutcomeEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.events) == 0 {
		return nil
	}
	return e.events[len(e.events)-1]
}

// testHarness bundles a coordinator with its fakes.
type testHarness struct {
	coordinator *Coordinator
	items       *fakeItemStore
	ledger      *fakeLedger
	channel     *notify.MemoryChannel
	outcomes    *captureEmitter
}

func newTestHarness(t *testing.T, cfg Config) *testHarness {
	t.Helper()

	items := newFakeItemStore()
	ledger := newFakeLedger()
	channel := notify.NewMemoryChannel()
	outcomes := &captureEmitter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	coordinator := NewCoordinator(items, ledger, channel, outcomes, cfg, logger)
	t.Cleanup(coordinator.Close)

	return &testHarness{
		coordinator: coordinator,
		items:       items,
		ledger:      ledger,
		channel:     channel,
		outcomes:    outcomes,
	}
}

// seedItem stores a fresh item in the given status, with text when the
// status requires it.
func (h *testHarness) seedItem(t *testing.T, status domain.LifecycleStatus) uuid.UUID {
	t.Helper()

	item, err := domain.NewContentItem("launch post", "announce the launch")
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	item.Status = status
	switch status {
	case domain.LifecycleStatusTextGenerated, domain.LifecycleStatusGenerated, domain.LifecycleStatusPublished:
		item.GeneratedText = "existing text"
	}
	if err := h.items.Create(context.Background(), item); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item.ID
}

// pushTerminal publishes a terminal event for the job on the channel.
func (h *testHarness) pushTerminal(t *testing.T, jobID uuid.UUID, status domain.JobStatus) {
	t.Helper()
	if err := h.channel.Publish(context.Background(), notify.Event{JobID: jobID, Status: status}); err != nil {
		t.Fatalf("publish event: %v", err)
	}
}

// shortConfig returns a config with watch windows small enough for tests.
func shortConfig() Config {
	return Config{
		WatchTimeout:           40 * time.Millisecond,
		ImagePollInterval:      10 * time.Millisecond,
		ImagePollTimeout:       80 * time.Millisecond,
		ImageGenerationEnabled: true,
	}
}

// patientConfig keeps the safety windows far away so only push events can
// resolve a watch during the test.
func patientConfig() Config {
	return Config{
		WatchTimeout:           time.Minute,
		ImagePollInterval:      10 * time.Millisecond,
		ImagePollTimeout:       time.Minute,
		ImageGenerationEnabled: true,
	}
}

var errFake = fmt.Errorf("fake failure")
