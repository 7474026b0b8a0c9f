// Package llm wraps the language-model and embedding backends used for
// filter translation, answer synthesis and section embeddings.
package llm

import (
	"context"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)

func (f ProviderFunc) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	return f(ctx, prompt, systemPrompt, options)
}

// stringOption reads a string option, falling back to def.
func stringOption(options map[string]interface{}, key, def string) string {
	if val, ok := options[key].(string); ok && val != "" {
		return val
	}
	return def
}
