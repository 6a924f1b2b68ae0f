package reversal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storyboard/internal/logging"
	"storyboard/internal/template"

	"google.golang.org/genai"
)

// =============================================================================
// GOOGLE GENAI NARRATOR
// =============================================================================

// GenAINarrator implements Narrator using Google's Gemini API. The prompt
// is assembled from the template store's reversal_narration template with
// the setting context appended, so authoring tweaks to the corpus flow
// into the call without code changes.
type GenAINarrator struct {
	client  *genai.Client
	model   string
	store   *template.Store
	setting string
}

// NewGenAINarrator creates a narrator backed by the Gemini API.
func NewGenAINarrator(ctx context.Context, apiKey, model string, store *template.Store) (*GenAINarrator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-pro"
	}
	if store == nil {
		return nil, fmt.Errorf("template store is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	// Setting context is static for a run; resolve it once.
	setting, err := store.Resolve("setting", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve setting context: %w", err)
	}

	return &GenAINarrator{
		client:  client,
		model:   model,
		store:   store,
		setting: setting,
	}, nil
}

// GenerateReversedNarration asks the backend for a forward-viewer-facing
// description of the reversed clip's playback.
func (n *GenAINarrator) GenerateReversedNarration(ctx context.Context, motionPrompt, visualStart, visualEnd string) (string, error) {
	startTime := time.Now()

	prompt, err := n.store.Resolve("reversal_narration", map[string]string{
		"motion_prompt": motionPrompt,
		"visual_start":  visualStart,
		"visual_end":    visualEnd,
		"setting":       n.setting,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build narration prompt: %w", err)
	}

	logging.APIDebug("[GenAI] narration request: model=%s prompt_len=%d", n.model, len(prompt))

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := n.client.Models.GenerateContent(ctx, n.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.5),
		MaxOutputTokens: 8192,
	})
	if err != nil {
		logging.APIError("[GenAI] narration failed after %v: %v", time.Since(startTime), err)
		return "", fmt.Errorf("GenAI narration failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("no narration returned")
	}

	logging.API("[GenAI] narration completed in %v response_len=%d", time.Since(startTime), len(text))

	return text, nil
}

// Name returns the narrator name for logging.
func (n *GenAINarrator) Name() string {
	return fmt.Sprintf("genai:%s", n.model)
}
