package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/planship/contentops/internal/domain"
	"github.com/planship/contentops/internal/events"
	"github.com/planship/contentops/internal/notify"
	"github.com/planship/contentops/internal/store"
)

// ErrCoordinatorClosed is returned when a request arrives after Close.
var ErrCoordinatorClosed = errors.New("lifecycle coordinator is closed")

// progressKey identifies one in-progress flag: at most one unresolved job may
// exist per (item, kind) pair.
type progressKey struct {
	itemID uuid.UUID
	kind   domain.JobKind
}

// Coordinator owns the content item state machine. It submits jobs, observes
// their completion, and applies exactly one reconciliation per job.
type Coordinator struct {
	items    store.ContentItemStore
	ledger   store.JobLedger
	notifier notify.Notifier
	emitter  events.Emitter
	cfg      Config
	logger   *slog.Logger

	mu      sync.Mutex
	watches map[progressKey]*watchHandle
	closed  bool
	wg      sync.WaitGroup
}

// NewCoordinator creates a new lifecycle coordinator.
func NewCoordinator(
	items store.ContentItemStore,
	ledger store.JobLedger,
	notifier notify.Notifier,
	emitter events.Emitter,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		items:    items,
		ledger:   ledger,
		notifier: notifier,
		emitter:  emitter,
		cfg:      cfg,
		logger:   logger.With("component", "lifecycle_coordinator"),
		watches:  make(map[progressKey]*watchHandle),
	}
}

// RequestGeneration submits a text generation job for the item and starts
// watching it. Returns domain.ErrItemNotFound for unknown items and
// domain.ErrAlreadyInProgress when a generation job for this item is still
// unresolved. The call returns as soon as the job is submitted.
func (c *Coordinator) RequestGeneration(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	item, err := c.getItem(ctx, itemID)
	if err != nil {
		return uuid.Nil, err
	}

	switch item.Status {
	case domain.LifecycleStatusPending, domain.LifecycleStatusApproved, domain.LifecycleStatusTextGenerated:
	default:
		return uuid.Nil, fmt.Errorf("%w: cannot generate text for %s item", domain.ErrPrecondition, item.Status)
	}

	return c.submitWatched(ctx, itemID, domain.JobKindGenerateText)
}

// RequestPublish submits a publish job for the item. Returns
// domain.ErrPrecondition when the item has no generated text or is already
// published.
func (c *Coordinator) RequestPublish(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	item, err := c.getItem(ctx, itemID)
	if err != nil {
		return uuid.Nil, err
	}

	if !item.HasGeneratedText() {
		return uuid.Nil, fmt.Errorf("%w: item has no generated text", domain.ErrPrecondition)
	}
	if item.Status == domain.LifecycleStatusPublished {
		return uuid.Nil, fmt.Errorf("%w: item is already published", domain.ErrPrecondition)
	}

	return c.submitWatched(ctx, itemID, domain.JobKindPublish)
}

// RequestGenerateAndPublish submits one combined job that generates text and
// publishes it. On terminal success the generated text and publish ref are
// applied atomically as a single reconciliation.
func (c *Coordinator) RequestGenerateAndPublish(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	item, err := c.getItem(ctx, itemID)
	if err != nil {
		return uuid.Nil, err
	}

	switch item.Status {
	case domain.LifecycleStatusPending, domain.LifecycleStatusApproved:
	default:
		return uuid.Nil, fmt.Errorf(
			"%w: cannot generate and publish a %s item", domain.ErrPrecondition, item.Status)
	}

	return c.submitWatched(ctx, itemID, domain.JobKindGenerateAndPublish)
}

// RequestImageGeneration submits an image generation job. Image jobs have no
// push channel and are observed by fixed-interval polling. Returns
// domain.ErrNotEnabled when image generation is turned off for the site.
func (c *Coordinator) RequestImageGeneration(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	if !c.cfg.ImageGenerationEnabled {
		return uuid.Nil, fmt.Errorf("%w: image generation", domain.ErrNotEnabled)
	}

	if _, err := c.getItem(ctx, itemID); err != nil {
		return uuid.Nil, err
	}

	return c.submitWatched(ctx, itemID, domain.JobKindGenerateImage)
}

// IsInProgress reports whether any job is unresolved for the item.
// It never blocks on anything but the coordinator's own mutex.
func (c *Coordinator) IsInProgress(itemID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.watches {
		if key.itemID == itemID {
			return true
		}
	}
	return false
}

// InProgressKinds returns the kinds of jobs currently unresolved for the item.
func (c *Coordinator) InProgressKinds(itemID uuid.UUID) []domain.JobKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	var kinds []domain.JobKind
	for key := range c.watches {
		if key.itemID == itemID {
			kinds = append(kinds, key.kind)
		}
	}
	return kinds
}

// Decline moves the item to declined. This is a direct user transition, not
// mediated by a job.
func (c *Coordinator) Decline(ctx context.Context, itemID uuid.UUID) error {
	if _, err := c.getItem(ctx, itemID); err != nil {
		return err
	}
	if err := c.items.UpdateStatus(ctx, itemID, domain.LifecycleStatusDeclined); err != nil {
		return fmt.Errorf("failed to decline item: %w", err)
	}
	return nil
}

// Approve moves a pending item to approved. Direct user transition.
func (c *Coordinator) Approve(ctx context.Context, itemID uuid.UUID) error {
	item, err := c.getItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Status != domain.LifecycleStatusPending {
		return fmt.Errorf("%w: only pending items can be approved", domain.ErrPrecondition)
	}
	if err := c.items.UpdateStatus(ctx, itemID, domain.LifecycleStatusApproved); err != nil {
		return fmt.Errorf("failed to approve item: %w", err)
	}
	return nil
}

// Abandon drops the UI-facing notifications for the item's live watches.
// Reconciliation itself still completes when the jobs finish, so no state is
// lost; only the outcome events are suppressed.
func (c *Coordinator) Abandon(itemID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, handle := range c.watches {
		if key.itemID == itemID {
			handle.muted.Store(true)
		}
	}
}

// Close retires every live watch without reconciling and waits for the
// observation goroutines to drain. Pending jobs keep running in the worker;
// their results stay in the ledger.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	handles := make([]*watchHandle, 0, len(c.watches))
	for _, handle := range c.watches {
		handles = append(handles, handle)
	}
	c.mu.Unlock()

	for _, handle := range handles {
		handle.retire()
	}
	c.wg.Wait()
}

// submitWatched reserves the (item, kind) in-progress flag, submits the job,
// and starts the matching observation. The flag is reserved before the ledger
// call so a concurrent duplicate request fails fast without submitting a
// second job.
func (c *Coordinator) submitWatched(ctx context.Context, itemID uuid.UUID, kind domain.JobKind) (uuid.UUID, error) {
	key := progressKey{itemID: itemID, kind: kind}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return uuid.Nil, ErrCoordinatorClosed
	}
	if _, busy := c.watches[key]; busy {
		c.mu.Unlock()
		return uuid.Nil, domain.ErrAlreadyInProgress
	}
	handle := newWatchHandle(key)
	c.watches[key] = handle
	c.mu.Unlock()

	jobID, err := c.ledger.Submit(ctx, kind, itemID)
	if err != nil {
		c.release(handle)
		return uuid.Nil, fmt.Errorf("failed to submit %s job: %w", kind, err)
	}
	handle.jobID = jobID

	c.logger.Info("job submitted",
		"job_id", jobID,
		"item_id", itemID,
		"job_kind", kind)

	if kind == domain.JobKindGenerateImage {
		c.startPoll(ctx, handle)
	} else {
		c.startWatch(ctx, handle)
	}

	return jobID, nil
}

// reconcile applies one terminal ledger record to the item. The one-shot
// guard on the handle makes every call after the first a no-op, which is what
// lets the push event, the immediate check and the safety timer race freely.
func (c *Coordinator) reconcile(handle *watchHandle, job *domain.Job) {
	if !handle.reconciled.CompareAndSwap(false, true) {
		return
	}

	ctx := context.Background()
	log := c.logger.With(
		"job_id", handle.jobID,
		"item_id", handle.key.itemID,
		"job_kind", handle.key.kind)

	status := job.Status
	var outcomeErr error
	if job.Status == domain.JobStatusCompleted {
		if err := c.applyResult(ctx, handle.key, job.Result); err != nil {
			// The job itself succeeded but its result could not be applied;
			// surface that as a failure so the user retries.
			log.Error("failed to apply job result", "error", err)
			status = domain.JobStatusFailed
			outcomeErr = err
		} else {
			log.Info("job result applied")
		}
	} else {
		outcomeErr = domain.NewWorkerError(job.Error)
		log.Info("job failed", "error", job.Error)
	}

	c.release(handle)
	c.emitOutcome(ctx, handle, status, outcomeErr)
}

// reconcileUnknown settles a watch whose job never reached a confirmed
// terminal state inside the observation window. The item's lifecycle status
// is left untouched; only the in-progress flag is cleared.
func (c *Coordinator) reconcileUnknown(handle *watchHandle) {
	if !handle.reconciled.CompareAndSwap(false, true) {
		return
	}

	c.logger.Warn("job outcome unconfirmed within observation window",
		"job_id", handle.jobID,
		"item_id", handle.key.itemID,
		"job_kind", handle.key.kind)

	c.release(handle)
	c.emitOutcome(context.Background(), handle, domain.JobStatusFailed, domain.ErrUnknownOutcome)
}

// release clears the in-progress flag and tears down the watch resources.
// Unsubscribe and timer cancellation always happen together.
func (c *Coordinator) release(handle *watchHandle) {
	c.mu.Lock()
	if c.watches[handle.key] == handle {
		delete(c.watches, handle.key)
	}
	c.mu.Unlock()
	handle.retire()
}

// emitOutcome publishes the outcome event unless the watch was abandoned.
func (c *Coordinator) emitOutcome(ctx context.Context, handle *watchHandle, status domain.JobStatus, outcomeErr error) {
	if handle.muted.Load() {
		c.logger.Debug("outcome notification suppressed for abandoned watch",
			"job_id", handle.jobID,
			"item_id", handle.key.itemID)
		return
	}

	event := events.NewJobOutcomeEvent(handle.key.itemID, handle.key.kind, status, outcomeErr)
	if err := c.emitter.EmitOutcome(ctx, event); err != nil {
		c.logger.Error("failed to emit job outcome",
			"error", err,
			"event_id", event.ID,
			"item_id", handle.key.itemID)
	}
}

// applyResult writes a completed job's artifacts to the item as one additive
// patch, advancing the lifecycle status per the job kind.
func (c *Coordinator) applyResult(ctx context.Context, key progressKey, result *domain.JobResult) error {
	item, err := c.getItem(ctx, key.itemID)
	if err != nil {
		return err
	}

	if result == nil {
		result = &domain.JobResult{}
	}

	next, err := domain.NextStatus(item.Status, key.kind)
	if err != nil {
		return fmt.Errorf("job %s finished but item is %s: %w", key.kind, item.Status, err)
	}

	var patch store.ContentItemPatch
	if next != item.Status {
		patch.Status = &next
	}

	switch key.kind {
	case domain.JobKindGenerateText:
		patch.GeneratedText = &result.Text
	case domain.JobKindGenerateImage:
		patch.ImageRef = &result.ImageRef
	case domain.JobKindPublish:
		patch.PublishRef = result.Publish
	case domain.JobKindGenerateAndPublish:
		if result.Text != "" {
			patch.GeneratedText = &result.Text
		}
		patch.PublishRef = result.Publish
	}

	if err := c.items.Apply(ctx, key.itemID, patch); err != nil {
		return fmt.Errorf("failed to apply result to item: %w", err)
	}
	return nil
}

// getItem fetches an item, mapping the store's not-found sentinel to the
// domain one callers are expected to match on.
func (c *Coordinator) getItem(ctx context.Context, itemID uuid.UUID) (*domain.ContentItem, error) {
	item, err := c.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	return item, nil
}
