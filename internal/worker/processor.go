package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/planship/contentops/internal/domain"
	"github.com/planship/contentops/internal/generation"
	"github.com/planship/contentops/internal/notify"
	"github.com/planship/contentops/internal/publish"
	"github.com/planship/contentops/internal/store"
)

// Processor runs one job end to end: mark the ledger record running, perform
// the work, record the terminal result, and push an update.
type Processor struct {
	items     store.ContentItemStore
	recorder  store.JobRecorder
	textGen   generation.TextGenerator
	imageGen  generation.ImageGenerator
	publisher publish.Publisher
	pusher    notify.Publisher
	logger    *slog.Logger
}

// NewProcessor creates a Processor with its collaborators.
func NewProcessor(
	items store.ContentItemStore,
	recorder store.JobRecorder,
	textGen generation.TextGenerator,
	imageGen generation.ImageGenerator,
	publisher publish.Publisher,
	pusher notify.Publisher,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		items:     items,
		recorder:  recorder,
		textGen:   textGen,
		imageGen:  imageGen,
		publisher: publisher,
		pusher:    pusher,
		logger:    logger.With("component", "job_processor"),
	}
}

// Register attaches the processor's handlers to the mux.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeGenerateText, p.ProcessTask)
	mux.HandleFunc(TaskTypeGenerateImage, p.ProcessTask)
	mux.HandleFunc(TaskTypePublish, p.ProcessTask)
	mux.HandleFunc(TaskTypeGenerateAndPublish, p.ProcessTask)
}

// ProcessTask handles a single queued job. It always returns nil for work
// failures: the failure is recorded in the ledger instead, and the watcher
// reads it from there. Only payload corruption is surfaced to asynq.
func (p *Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload taskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	kind, err := kindForTaskType(t.Type())
	if err != nil {
		return err
	}

	log := p.logger.With("job_id", payload.JobID, "item_id", payload.ItemID, "kind", kind)
	log.InfoContext(ctx, "processing job")

	if err := p.recorder.MarkRunning(ctx, payload.JobID); err != nil {
		// A missing or already-running record means a duplicate delivery;
		// nothing to do.
		if errors.Is(err, store.ErrJobNotFound) || errors.Is(err, store.ErrUpdateFailed) {
			log.WarnContext(ctx, "skipping job, ledger record not in queued state", "error", err)
			return nil
		}
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	item, err := p.items.GetByID(ctx, payload.ItemID)
	if err != nil {
		p.finishFailed(ctx, log, payload.JobID, fmt.Sprintf("content item lookup failed: %v", err))
		return nil
	}

	result, workErr := p.run(ctx, kind, item)
	if workErr != nil {
		p.finishFailed(ctx, log, payload.JobID, workErr.Error())
		return nil
	}

	if err := p.recorder.Complete(ctx, payload.JobID, result); err != nil {
		log.ErrorContext(ctx, "failed to record job completion", "error", err)
		return fmt.Errorf("failed to record completion: %w", err)
	}
	p.push(ctx, log, payload.JobID, domain.JobStatusCompleted)

	log.InfoContext(ctx, "job completed")
	return nil
}

// run performs the kind-specific work and builds the result artifacts.
func (p *Processor) run(ctx context.Context, kind domain.JobKind, item *domain.ContentItem) (*domain.JobResult, error) {
	switch kind {
	case domain.JobKindGenerateText:
		text, err := p.textGen.GenerateText(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("text generation failed: %w", err)
		}
		return &domain.JobResult{Text: text}, nil

	case domain.JobKindGenerateImage:
		ref, err := p.imageGen.GenerateImage(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("image generation failed: %w", err)
		}
		return &domain.JobResult{ImageRef: ref}, nil

	case domain.JobKindPublish:
		ref, err := p.publisher.Publish(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("publish failed: %w", err)
		}
		return &domain.JobResult{Publish: &ref}, nil

	case domain.JobKindGenerateAndPublish:
		text, err := p.textGen.GenerateText(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("text generation failed: %w", err)
		}

		// Publish the freshly generated text without persisting an
		// intermediate item state; the coordinator applies both artifacts
		// in one update when it reconciles.
		draft := *item
		draft.GeneratedText = text
		ref, err := p.publisher.Publish(ctx, &draft)
		if err != nil {
			return nil, fmt.Errorf("publish after generation failed: %w", err)
		}
		return &domain.JobResult{Text: text, Publish: &ref}, nil

	default:
		return nil, fmt.Errorf("unknown job kind %q", kind)
	}
}

// finishFailed records a failed terminal state and pushes the update.
func (p *Processor) finishFailed(ctx context.Context, log *slog.Logger, jobID uuid.UUID, message string) {
	if err := p.recorder.Fail(ctx, jobID, message); err != nil {
		log.ErrorContext(ctx, "failed to record job failure", "error", err, "failure", message)
		return
	}
	log.WarnContext(ctx, "job failed", "failure", message)
	p.push(ctx, log, jobID, domain.JobStatusFailed)
}

// push publishes the terminal update. Push delivery is best effort; the
// watcher's timer covers a lost event.
func (p *Processor) push(ctx context.Context, log *slog.Logger, jobID uuid.UUID, status domain.JobStatus) {
	if p.pusher == nil {
		return
	}
	if err := p.pusher.Publish(ctx, notify.Event{JobID: jobID, Status: status}); err != nil {
		log.WarnContext(ctx, "failed to push job update", "error", err)
	}
}

func kindForTaskType(taskType string) (domain.JobKind, error) {
	switch taskType {
	case TaskTypeGenerateText:
		return domain.JobKindGenerateText, nil
	case TaskTypeGenerateImage:
		return domain.JobKindGenerateImage, nil
	case TaskTypePublish:
		return domain.JobKindPublish, nil
	case TaskTypeGenerateAndPublish:
		return domain.JobKindGenerateAndPublish, nil
	default:
		return "", fmt.Errorf("unknown task type %q", taskType)
	}
}
