// Package publisher implements publish.Publisher against the platform's HTTP
// API.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/planship/contentops/internal/config"
	"github.com/planship/contentops/internal/domain"
	"github.com/planship/contentops/internal/publish"
)

const defaultTimeout = 30 * time.Second

// Client publishes content items over the platform's JSON API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// publishRequest is the payload sent to the platform.
type publishRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageRef string `json:"image_ref,omitempty"`
}

// publishResponse is the platform's answer to a publish request.
type publishResponse struct {
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
}

// NewClient creates a publishing client from configuration.
func NewClient(logger *slog.Logger, cfg config.PublisherConfig) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL cannot be empty", publish.ErrInvalidConfig)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		logger:     logger.With("component", "publisher_client"),
	}, nil
}

// Publish sends the item to the platform and returns the assigned reference.
func (c *Client) Publish(ctx context.Context, item *domain.ContentItem) (domain.PublishRef, error) {
	if item == nil || !item.HasGeneratedText() {
		return domain.PublishRef{}, fmt.Errorf("%w: item has no generated text", publish.ErrPublishFailed)
	}

	payload := publishRequest{
		Title:    item.Title,
		Body:     item.GeneratedText,
		ImageRef: item.ImageRef,
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return domain.PublishRef{}, fmt.Errorf("failed to marshal publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/posts", bytes.NewReader(bodyBytes))
	if err != nil {
		return domain.PublishRef{}, fmt.Errorf("failed to create publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PublishRef{}, fmt.Errorf("%w: %v", publish.ErrPublishFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.PublishRef{}, fmt.Errorf("%w: failed to read response: %v", publish.ErrPublishFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "platform rejected publish request",
			"item_id", item.ID,
			"status_code", resp.StatusCode)
		return domain.PublishRef{}, fmt.Errorf("%w: platform returned status %d", publish.ErrPublishFailed, resp.StatusCode)
	}

	var result publishResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return domain.PublishRef{}, fmt.Errorf("%w: %v", publish.ErrInvalidResponse, err)
	}
	if result.ExternalID == "" || result.URL == "" {
		return domain.PublishRef{}, fmt.Errorf("%w: missing external ID or URL", publish.ErrInvalidResponse)
	}

	c.logger.InfoContext(ctx, "item published",
		"item_id", item.ID,
		"external_id", result.ExternalID)

	return domain.PublishRef{ExternalID: result.ExternalID, URL: result.URL}, nil
}

var _ publish.Publisher = (*Client)(nil)
