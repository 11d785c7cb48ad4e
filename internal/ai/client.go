// Package ai wraps the language-model provider behind a single-method
// client. Every caller must treat a nil Client or a failed call as "no
// answer" and fall back; AI assistance is never load-bearing.
package ai

import "context"

// Client submits a text prompt and returns the model's free-form response.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
