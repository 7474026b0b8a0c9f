package query

import (
	"context"
	"fmt"
	"log"
	"strings"

	"filing_analyst/pkg/core/agent"
	"filing_analyst/pkg/core/knowledge"
	"filing_analyst/pkg/core/prompt"
	"filing_analyst/pkg/core/utils"
)

// Completer sends a prompt to the model configured for a task.
// *agent.Manager implements it.
type Completer interface {
	ExecutePrompt(ctx context.Context, agentType string, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// LLMTranslator asks a language model to split a request into the text to
// search for and a metadata filter over year and section type.
type LLMTranslator struct {
	completer Completer
	registry  *prompt.Registry
}

// NewLLMTranslator creates a translator using the registry's filter
// translation prompt.
func NewLLMTranslator(completer Completer, registry *prompt.Registry) *LLMTranslator {
	return &LLMTranslator{completer: completer, registry: registry}
}

var _ knowledge.FilterTranslator = (*LLMTranslator)(nil)

type structuredRequest struct {
	Query  string `json:"query"`
	Filter string `json:"filter"`
}

// Translate returns the structured query for query. A reply that cannot be
// decoded, or whose filter does not parse, degrades to an unfiltered search
// on the original text; only a failed model call is an error.
func (t *LLMTranslator) Translate(ctx context.Context, query string) (knowledge.StructuredQuery, error) {
	pt, err := t.registry.GetPrompt(prompt.PromptIDs.FilterTranslation)
	if err != nil {
		return knowledge.StructuredQuery{}, err
	}
	userPrompt, err := prompt.RenderUserPrompt(pt, prompt.NewContext().Set("Query", query))
	if err != nil {
		return knowledge.StructuredQuery{}, err
	}

	raw, err := t.completer.ExecutePrompt(ctx, agent.TaskFilterTranslation, userPrompt, pt.SystemPrompt, map[string]interface{}{
		"response_format": "json_object",
	})
	if err != nil {
		return knowledge.StructuredQuery{}, fmt.Errorf("filter translation failed: %w", err)
	}

	var req structuredRequest
	if _, err := utils.SmartParse(raw, &req); err != nil {
		log.Printf("[Translator] unreadable reply, searching without filter: %v", err)
		return knowledge.StructuredQuery{Query: query}, nil
	}

	sq := knowledge.StructuredQuery{Query: strings.TrimSpace(req.Query)}
	if sq.Query == "" {
		sq.Query = query
	}

	filter, err := knowledge.ParseFilter(req.Filter)
	if err != nil {
		log.Printf("[Translator] discarding filter %q: %v", req.Filter, err)
		return sq, nil
	}
	sq.Filter = filter
	return sq, nil
}
