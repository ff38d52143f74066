// Package gemini implements the generation interfaces using Google's Gemini
// API via the genai client.
package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/planship/contentops/internal/config"
	"github.com/planship/contentops/internal/domain"
	"github.com/planship/contentops/internal/generation"
	"google.golang.org/genai"
)

// defaultPromptTemplate turns a content item's title and brief into the text
// generation prompt. Kept small on purpose; editorial tone lives in the brief.
const defaultPromptTemplate = `Write the full body text for a scheduled content post.

Title: {{.Title}}
{{- if .Brief}}
Editorial brief: {{.Brief}}
{{- end}}

Return only the post body, no headings or commentary.`

// imagePromptTemplate shapes the image generation request.
const imagePromptTemplate = `An illustration for a content post titled "{{.Title}}".{{if .Brief}} Style notes: {{.Brief}}{{end}}`

type promptData struct {
	Title string
	Brief string
}

// Generator implements generation.TextGenerator and generation.ImageGenerator
// using the Gemini API.
type Generator struct {
	logger         *slog.Logger
	cfg            config.LLMConfig
	promptTemplate *template.Template
	imageTemplate  *template.Template
	client         *genai.Client
}

// NewGenerator creates a new Generator with the provided configuration.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.TextModel == "" {
		return nil, fmt.Errorf("%w: text model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("text").Parse(defaultPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}
	imageTemplate, err := template.New("image").Parse(imagePromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse image template: %v", generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:         logger.With("component", "gemini_generator"),
		cfg:            cfg,
		promptTemplate: promptTemplate,
		imageTemplate:  imageTemplate,
		client:         client,
	}, nil
}

// GenerateText produces the body text for the item.
func (g *Generator) GenerateText(ctx context.Context, item *domain.ContentItem) (string, error) {
	prompt, err := g.renderPrompt(g.promptTemplate, item)
	if err != nil {
		return "", err
	}

	var text string
	err = g.withRetry(ctx, "generate_text", func() error {
		response, err := g.client.Models.GenerateContent(ctx, g.cfg.TextModel, genai.Text(prompt), nil)
		if err != nil {
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}

		text = response.Text()
		if text == "" {
			return fmt.Errorf("%w: model returned no text", generation.ErrInvalidResponse)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	g.logger.InfoContext(ctx, "text generated",
		"item_id", item.ID,
		"text_length", len(text))
	return text, nil
}

// GenerateImage produces an image for the item, writes it under the
// configured output directory, and returns its relative ref.
func (g *Generator) GenerateImage(ctx context.Context, item *domain.ContentItem) (string, error) {
	if g.cfg.ImageModel == "" {
		return "", fmt.Errorf("%w: image model name not configured", generation.ErrInvalidConfig)
	}

	prompt, err := g.renderPrompt(g.imageTemplate, item)
	if err != nil {
		return "", err
	}

	var imageBytes []byte
	err = g.withRetry(ctx, "generate_image", func() error {
		response, err := g.client.Models.GenerateImages(ctx, g.cfg.ImageModel, prompt, &genai.GenerateImagesConfig{
			NumberOfImages: 1,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
		if len(response.GeneratedImages) == 0 || response.GeneratedImages[0].Image == nil {
			return fmt.Errorf("%w: model returned no image", generation.ErrInvalidResponse)
		}
		imageBytes = response.GeneratedImages[0].Image.ImageBytes
		return nil
	})
	if err != nil {
		return "", err
	}

	ref := filepath.Join("images", fmt.Sprintf("%s.png", item.ID))
	path := filepath.Join(g.cfg.ImageOutputDir, ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create image directory: %v", generation.ErrGenerationFailed, err)
	}
	if err := os.WriteFile(path, imageBytes, 0o644); err != nil {
		return "", fmt.Errorf("%w: failed to write image: %v", generation.ErrGenerationFailed, err)
	}

	g.logger.InfoContext(ctx, "image generated",
		"item_id", item.ID,
		"image_ref", ref,
		"image_bytes", len(imageBytes))
	return ref, nil
}

// renderPrompt executes a prompt template against the item.
func (g *Generator) renderPrompt(tmpl *template.Template, item *domain.ContentItem) (string, error) {
	if item == nil || item.Title == "" {
		return "", fmt.Errorf("%w: item title is required for prompting", generation.ErrGenerationFailed)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{Title: item.Title, Brief: item.Brief}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// withRetry runs the call with exponential backoff and jitter for transient
// failures. Permanent errors (blocked content, malformed responses) are
// returned immediately.
func (g *Generator) withRetry(ctx context.Context, operation string, call func() error) error {
	maxRetries := g.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelay := time.Duration(g.cfg.RetryDelaySeconds) * time.Second
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled: %w", operation, err)
		}

		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, generation.ErrTransientFailure) {
			return lastErr
		}
		if attempt == maxRetries {
			break
		}

		delay := baseDelay<<uint(attempt) + time.Duration(rng.Int63n(int64(baseDelay)))
		g.logger.WarnContext(ctx, "retrying after transient model failure",
			"operation", operation,
			"attempt", attempt+1,
			"delay", delay,
			"error", lastErr)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, lastErr)
}

// Compile-time interface checks.
var (
	_ generation.TextGenerator  = (*Generator)(nil)
	_ generation.ImageGenerator = (*Generator)(nil)
)
