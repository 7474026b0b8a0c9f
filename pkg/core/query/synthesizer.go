package query

import (
	"context"
	"fmt"
	"strings"

	"filing_analyst/pkg/core/agent"
	"filing_analyst/pkg/core/knowledge"
	"filing_analyst/pkg/core/prompt"
	"filing_analyst/pkg/core/utils"
)

// Synthesizer produces an answer to question from retrieved sections.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, docs []knowledge.ScoredEntry) (string, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, question string, docs []knowledge.ScoredEntry) (string, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, question string, docs []knowledge.ScoredEntry) (string, error) {
	return f(ctx, question, docs)
}

// LLMSynthesizer answers with the analyst prompt.
type LLMSynthesizer struct {
	completer Completer
	registry  *prompt.Registry
}

func NewLLMSynthesizer(completer Completer, registry *prompt.Registry) *LLMSynthesizer {
	return &LLMSynthesizer{completer: completer, registry: registry}
}

func (s *LLMSynthesizer) Synthesize(ctx context.Context, question string, docs []knowledge.ScoredEntry) (string, error) {
	pt, err := s.registry.GetPrompt(prompt.PromptIDs.AnalystSystem)
	if err != nil {
		return "", err
	}
	userPrompt, err := prompt.RenderUserPrompt(pt, prompt.NewContext().
		Set("Context", FormatContext(docs)).
		Set("Question", question))
	if err != nil {
		return "", err
	}

	answer, err := s.completer.ExecutePrompt(ctx, agent.TaskSynthesis, userPrompt, pt.SystemPrompt, nil)
	if err != nil {
		return "", fmt.Errorf("synthesis failed: %w", err)
	}
	return utils.CleanMarkdown(answer), nil
}

// FormatContext renders retrieved sections as the model sees them: each
// section's text followed by its metadata, separated by blank lines.
func FormatContext(docs []knowledge.ScoredEntry) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content + "\n\nMetadata: " + d.Metadata.String()
	}
	return strings.Join(parts, "\n\n")
}
