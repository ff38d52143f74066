package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// LifecycleStatus represents where a content item is in its
// generation-and-publish lifecycle.
type LifecycleStatus string

// Possible lifecycle status values
const (
	LifecycleStatusPending       LifecycleStatus = "pending"
	LifecycleStatusApproved      LifecycleStatus = "approved"
	LifecycleStatusTextGenerated LifecycleStatus = "text_generated"
	LifecycleStatusGenerated     LifecycleStatus = "generated"
	LifecycleStatusDeclined      LifecycleStatus = "declined"
	LifecycleStatusPublished     LifecycleStatus = "published"
)

// Common validation errors for ContentItem
var (
	ErrEmptyItemID            = errors.New("content item ID cannot be empty")
	ErrEmptyItemTitle         = errors.New("content item title cannot be empty")
	ErrInvalidLifecycleStatus = errors.New("invalid lifecycle status")
	ErrPublishRefWithoutState = errors.New("publish ref requires published status")
	ErrTextRequiredForStatus  = errors.New("generated text required for status")
)

// PublishRef identifies a published artifact on the external publishing target.
type PublishRef struct {
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
}

// ContentItem represents one scheduled piece of content moving through the
// generation-and-publish lifecycle. GeneratedText, ImageRef and PublishRef
// are artifacts filled in by successful jobs; an empty string or nil pointer
// means the artifact has not been produced yet.
type ContentItem struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title"`
	Brief         string          `json:"brief"`
	Status        LifecycleStatus `json:"status"`
	GeneratedText string          `json:"generated_text,omitempty"`
	ImageRef      string          `json:"image_ref,omitempty"`
	PublishRef    *PublishRef     `json:"publish_ref,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewContentItem creates a new ContentItem in the pending state.
// The brief is the editorial instruction the generator works from; it may be
// empty, in which case generation falls back to the title alone.
// Returns an error if validation fails.
func NewContentItem(title, brief string) (*ContentItem, error) {
	item := &ContentItem{
		ID:        uuid.New(),
		Title:     title,
		Brief:     brief,
		Status:    LifecycleStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the ContentItem has valid data and that its artifact
// fields are consistent with its lifecycle status.
func (c *ContentItem) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyItemID
	}

	if c.Title == "" {
		return ErrEmptyItemTitle
	}

	if !isValidLifecycleStatus(c.Status) {
		return ErrInvalidLifecycleStatus
	}

	// A publish ref can only exist on a published item.
	if c.PublishRef != nil && c.Status != LifecycleStatusPublished {
		return ErrPublishRefWithoutState
	}

	// Statuses past text generation require the text artifact.
	if c.GeneratedText == "" {
		switch c.Status {
		case LifecycleStatusTextGenerated, LifecycleStatusGenerated, LifecycleStatusPublished:
			return ErrTextRequiredForStatus
		}
	}

	return nil
}

// HasGeneratedText reports whether the text artifact has been produced.
func (c *ContentItem) HasGeneratedText() bool {
	return c.GeneratedText != ""
}

// isValidLifecycleStatus checks if the given status is a valid LifecycleStatus.
func isValidLifecycleStatus(status LifecycleStatus) bool {
	switch status {
	case LifecycleStatusPending, LifecycleStatusApproved, LifecycleStatusTextGenerated,
		LifecycleStatusGenerated, LifecycleStatusDeclined, LifecycleStatusPublished:
		return true
	default:
		return false
	}
}
