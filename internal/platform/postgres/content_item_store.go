package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/planship/contentops/internal/domain"
	"github.com/planship/contentops/internal/platform/logger"
	"github.com/planship/contentops/internal/store"
)

// ContentItemStore implements the store.ContentItemStore interface using PostgreSQL.
type ContentItemStore struct {
	db store.DBTX
}

// NewContentItemStore creates a new ContentItemStore.
func NewContentItemStore(db store.DBTX) *ContentItemStore {
	return &ContentItemStore{
		db: db,
	}
}

// Create saves a new content item to the database.
func (s *ContentItemStore) Create(ctx context.Context, item *domain.ContentItem) error {
	log := logger.FromContext(ctx)

	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO content_items (id, title, brief, status, generated_text, image_ref, publish_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	publishRef, err := marshalPublishRef(item.PublishRef)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, query,
		item.ID,
		item.Title,
		item.Brief,
		item.Status,
		nullString(item.GeneratedText),
		nullString(item.ImageRef),
		publishRef,
		now,
		now,
	)
	if err != nil {
		log.Error("failed to create content item",
			"item_id", item.ID,
			"error", err)
		return fmt.Errorf("failed to create content item: %w", err)
	}

	return nil
}

// GetByID retrieves a content item by its ID.
// Returns store.ErrItemNotFound if the item does not exist.
func (s *ContentItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContentItem, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, title, brief, status, generated_text, image_ref, publish_ref, created_at, updated_at
		FROM content_items
		WHERE id = $1
	`

	var (
		item          domain.ContentItem
		generatedText sql.NullString
		imageRef      sql.NullString
		publishRef    []byte
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.Title,
		&item.Brief,
		&item.Status,
		&generatedText,
		&imageRef,
		&publishRef,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrItemNotFound
		}
		log.Error("failed to get content item",
			"item_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}

	item.GeneratedText = generatedText.String
	item.ImageRef = imageRef.String
	if len(publishRef) > 0 {
		var ref domain.PublishRef
		if err := json.Unmarshal(publishRef, &ref); err != nil {
			return nil, fmt.Errorf("failed to decode publish ref: %w", err)
		}
		item.PublishRef = &ref
	}

	return &item, nil
}

// UpdateStatus updates only the lifecycle status of an item.
func (s *ContentItemStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.LifecycleStatus) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE content_items
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update content item status",
			"item_id", id,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update content item status: %w", err)
	}

	return requireRow(result, id)
}

// Apply writes the non-nil fields of the patch as one UPDATE statement.
// COALESCE keeps every omitted column untouched, which is what makes the
// write additive.
func (s *ContentItemStore) Apply(ctx context.Context, id uuid.UUID, patch store.ContentItemPatch) error {
	log := logger.FromContext(ctx)

	if patch.IsEmpty() {
		return nil
	}

	query := `
		UPDATE content_items
		SET status         = COALESCE($1, status),
		    generated_text = COALESCE($2, generated_text),
		    image_ref      = COALESCE($3, image_ref),
		    publish_ref    = COALESCE($4, publish_ref),
		    updated_at     = $5
		WHERE id = $6
	`

	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	var publishRef []byte
	if patch.PublishRef != nil {
		var err error
		publishRef, err = marshalPublishRef(patch.PublishRef)
		if err != nil {
			return err
		}
	}

	result, err := s.db.ExecContext(ctx, query,
		status,
		patch.GeneratedText,
		patch.ImageRef,
		publishRef,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		log.Error("failed to apply content item patch",
			"item_id", id,
			"error", err)
		return fmt.Errorf("failed to apply content item patch: %w", err)
	}

	return requireRow(result, id)
}

// requireRow converts a zero-rows-affected update into ErrItemNotFound.
func requireRow(result sql.Result, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrItemNotFound, id)
	}
	return nil
}

func marshalPublishRef(ref *domain.PublishRef) ([]byte, error) {
	if ref == nil {
		return nil, nil
	}
	data, err := json.Marshal(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to encode publish ref: %w", err)
	}
	return data, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ensure ContentItemStore implements store.ContentItemStore
var _ store.ContentItemStore = (*ContentItemStore)(nil)
