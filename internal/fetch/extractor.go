package fetch

import (
	"context"
	"fmt"

	"github.com/patchmon/patchmon/internal/ai"
)

const extractPromptFmt = `The text below is from a vendor page for the software %q.
Find the latest released version number and reply with only that version number (for example: 121.0.6167.85).
If no version number is present, reply with exactly: null

%s`

// AIExtractor implements Extractor through a language model.
type AIExtractor struct {
	client ai.Client
}

// NewAIExtractor wraps an LLM client; returns nil for a nil client.
func NewAIExtractor(client ai.Client) *AIExtractor {
	if client == nil {
		return nil
	}
	return &AIExtractor{client: client}
}

func (e *AIExtractor) ExtractVersion(ctx context.Context, softwareHint, content string) (string, error) {
	response, err := e.client.Complete(ctx, fmt.Sprintf(extractPromptFmt, softwareHint, content))
	if err != nil {
		return "", fmt.Errorf("version extraction prompt failed: %w", err)
	}
	return response, nil
}
