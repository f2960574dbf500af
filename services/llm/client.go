// Package llm abstracts the text-generation backend used by the root
// cause agent. The agent only needs one call: prompt in, text out.
package llm

import "context"

// GenerationParams carries optional sampling knobs. Nil fields leave the
// backend default untouched.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client is the standard interface for any LLM backend.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
