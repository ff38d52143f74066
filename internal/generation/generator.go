package generation

import (
	"context"

	"github.com/planship/contentops/internal/domain"
)

// TextGenerator produces the body text for a content item from its title and
// editorial brief.
type TextGenerator interface {
	// GenerateText creates the text artifact for the item.
	// Returns an error from errors.go if generation fails.
	GenerateText(ctx context.Context, item *domain.ContentItem) (string, error)
}

// ImageGenerator produces an image artifact for a content item and returns an
// opaque reference to it.
type ImageGenerator interface {
	// GenerateImage creates the image artifact for the item and returns its ref.
	GenerateImage(ctx context.Context, item *domain.ContentItem) (string, error)
}
