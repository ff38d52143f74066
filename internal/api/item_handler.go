// Package api provides HTTP handlers for the API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/planship/contentops/internal/api/shared"
	"github.com/planship/contentops/internal/domain"
	"github.com/planship/contentops/internal/events"
	"github.com/planship/contentops/internal/platform/logger"
	"github.com/planship/contentops/internal/store"
)

// LifecycleCoordinator is the surface of the lifecycle package the handler
// depends on.
type LifecycleCoordinator interface {
	RequestGeneration(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	RequestImageGeneration(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	RequestPublish(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	RequestGenerateAndPublish(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	Approve(ctx context.Context, itemID uuid.UUID) error
	Decline(ctx context.Context, itemID uuid.UUID) error
	InProgressKinds(itemID uuid.UUID) []domain.JobKind
}

// CreateItemRequest represents the request body for creating a content item.
type CreateItemRequest struct {
	Title string `json:"title" validate:"required,min=1,max=500"`
	Brief string `json:"brief" validate:"max=5000"`
}

// ItemResponse represents the response data for a content item.
type ItemResponse struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Brief         string             `json:"brief,omitempty"`
	Status        string             `json:"status"`
	GeneratedText string             `json:"generated_text,omitempty"`
	ImageRef      string             `json:"image_ref,omitempty"`
	Publish       *PublishRefPayload `json:"publish,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// PublishRefPayload is the published-location part of an item response.
type PublishRefPayload struct {
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
}

// JobAcceptedResponse is returned when a lifecycle job has been submitted.
type JobAcceptedResponse struct {
	JobID  string `json:"job_id"`
	ItemID string `json:"item_id"`
}

// ProgressResponse reports the in-flight jobs and the last recorded outcome
// for an item.
type ProgressResponse struct {
	ItemID      string          `json:"item_id"`
	InProgress  []string        `json:"in_progress"`
	LastOutcome *OutcomePayload `json:"last_outcome,omitempty"`
}

// OutcomePayload is one reconciled job outcome.
type OutcomePayload struct {
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ItemHandler handles content item HTTP requests.
type ItemHandler struct {
	items     store.ContentItemStore
	lifecycle LifecycleCoordinator
	outcomes  *events.Recorder
	validator *validator.Validate
	logger    *slog.Logger
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(
	items store.ContentItemStore,
	coordinator LifecycleCoordinator,
	outcomes *events.Recorder,
	log *slog.Logger,
) *ItemHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ItemHandler")
	}

	return &ItemHandler{
		items:     items,
		lifecycle: coordinator,
		outcomes:  outcomes,
		validator: validator.New(),
		logger:    log.With(slog.String("component", "item_handler")),
	}
}

// RegisterRoutes attaches the handler's routes to the router.
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.CreateItem)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetItem)
			r.Get("/progress", h.GetProgress)
			r.Post("/approve", h.Approve)
			r.Post("/decline", h.Decline)
			r.Post("/generate", h.Generate)
			r.Post("/generate-image", h.GenerateImage)
			r.Post("/publish", h.Publish)
			r.Post("/generate-and-publish", h.GenerateAndPublish)
		})
	})
}

// CreateItem handles POST /api/items requests.
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateItemRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	item, err := domain.NewContentItem(req.Title, req.Brief)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.items.Create(r.Context(), item); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to create content item", err)
		return
	}

	log.Debug("content item created", slog.String("item_id", item.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, itemToResponse(item))
}

// GetItem handles GET /api/items/{id} requests.
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.itemIDFromRequest(w, r)
	if !ok {
		return
	}

	item, err := h.items.GetByID(r.Context(), itemID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

// GetProgress handles GET /api/items/{id}/progress requests.
func (h *ItemHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	itemID, ok := h.itemIDFromRequest(w, r)
	if !ok {
		return
	}

	if _, err := h.items.GetByID(r.Context(), itemID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	response := ProgressResponse{
		ItemID:     itemID.String(),
		InProgress: kindsToStrings(h.lifecycle.InProgressKinds(itemID)),
	}
	if h.outcomes != nil {
		if outcome, ok := h.outcomes.LastOutcome(itemID); ok {
			payload := &OutcomePayload{
				Kind:       string(outcome.Kind),
				Status:     string(outcome.Status),
				OccurredAt: outcome.OccurredAt,
			}
			if outcome.Err != nil {
				payload.Error = GetSafeOutcomeMessage(outcome.Err)
			}
			response.LastOutcome = payload
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// Approve handles POST /api/items/{id}/approve requests.
func (h *ItemHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Approve)
}

// Decline handles POST /api/items/{id}/decline requests.
func (h *ItemHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Decline)
}

// Generate handles POST /api/items/{id}/generate requests.
func (h *ItemHandler) Generate(w http.ResponseWriter, r *http.Request) {
	h.submitJob(w, r, h.lifecycle.RequestGeneration)
}

// GenerateImage handles POST /api/items/{id}/generate-image requests.
func (h *ItemHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	h.submitJob(w, r, h.lifecycle.RequestImageGeneration)
}

// Publish handles POST /api/items/{id}/publish requests.
func (h *ItemHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.submitJob(w, r, h.lifecycle.RequestPublish)
}

// GenerateAndPublish handles POST /api/items/{id}/generate-and-publish requests.
func (h *ItemHandler) GenerateAndPublish(w http.ResponseWriter, r *http.Request) {
	h.submitJob(w, r, h.lifecycle.RequestGenerateAndPublish)
}

// submitJob runs one of the coordinator's job-submitting operations and
// answers 202 Accepted with the job ID.
func (h *ItemHandler) submitJob(
	w http.ResponseWriter,
	r *http.Request,
	request func(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error),
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	itemID, ok := h.itemIDFromRequest(w, r)
	if !ok {
		return
	}

	jobID, err := request(r.Context(), itemID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("job submitted",
		slog.String("item_id", itemID.String()),
		slog.String("job_id", jobID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, JobAcceptedResponse{
		JobID:  jobID.String(),
		ItemID: itemID.String(),
	})
}

// transition runs one of the coordinator's synchronous state changes and
// answers with the updated item.
func (h *ItemHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	change func(ctx context.Context, itemID uuid.UUID) error,
) {
	itemID, ok := h.itemIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := change(r.Context(), itemID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	item, err := h.items.GetByID(r.Context(), itemID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, itemToResponse(item))
}

func (h *ItemHandler) itemIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid item ID")
		return uuid.Nil, false
	}
	return itemID, true
}

// itemToResponse converts a domain.ContentItem to an ItemResponse.
func itemToResponse(item *domain.ContentItem) ItemResponse {
	response := ItemResponse{
		ID:            item.ID.String(),
		Title:         item.Title,
		Brief:         item.Brief,
		Status:        string(item.Status),
		GeneratedText: item.GeneratedText,
		ImageRef:      item.ImageRef,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
	if item.PublishRef != nil {
		response.Publish = &PublishRefPayload{
			ExternalID: item.PublishRef.ExternalID,
			URL:        item.PublishRef.URL,
		}
	}
	return response
}

func kindsToStrings(kinds []domain.JobKind) []string {
	out := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, string(kind))
	}
	return out
}
