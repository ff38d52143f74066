package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/planship/contentops/internal/domain"
)

// ContentItemPatch describes an additive, single-reconciliation update to a
// content item. Only non-nil fields are written, so a stale reconciliation
// can never erase artifacts written by a newer one.
type ContentItemPatch struct {
	Status        *domain.LifecycleStatus
	GeneratedText *string
	ImageRef      *string
	PublishRef    *domain.PublishRef
}

// IsEmpty reports whether the patch would write nothing.
func (p ContentItemPatch) IsEmpty() bool {
	return p.Status == nil && p.GeneratedText == nil && p.ImageRef == nil && p.PublishRef == nil
}

// ContentItemStore defines the interface for content item persistence.
type ContentItemStore interface {
	// Create saves a new content item to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, item *domain.ContentItem) error

	// GetByID retrieves a content item by its unique ID.
	// Returns ErrItemNotFound if the item does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error)

	// UpdateStatus updates only the lifecycle status of an existing item.
	// Returns ErrItemNotFound if the item does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LifecycleStatus) error

	// Apply writes the non-nil fields of the patch to an existing item as a
	// single update. Returns ErrItemNotFound if the item does not exist.
	Apply(ctx context.Context, id uuid.UUID, patch ContentItemPatch) error
}
