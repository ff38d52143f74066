// Package publish defines the interface for pushing finished content items to
// the downstream publishing platform.
package publish

import (
	"context"
	"errors"

	"github.com/planship/contentops/internal/domain"
)

// Common publishing errors.
var (
	// ErrPublishFailed indicates the platform rejected the item or the
	// request could not be completed.
	ErrPublishFailed = errors.New("publish failed")

	// ErrInvalidResponse indicates the platform answered with a payload we
	// could not use (missing external ID or URL).
	ErrInvalidResponse = errors.New("invalid publish response")

	// ErrInvalidConfig indicates the publisher is misconfigured.
	ErrInvalidConfig = errors.New("invalid publisher configuration")
)

// Publisher pushes a content item to the external platform and returns the
// reference the platform assigned to it.
type Publisher interface {
	Publish(ctx context.Context, item *domain.ContentItem) (domain.PublishRef, error)
}
