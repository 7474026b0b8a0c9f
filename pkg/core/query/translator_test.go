package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"filing_analyst/pkg/core/agent"
	"filing_analyst/pkg/core/knowledge"
)

// stubCompleter records the last task and returns ExecuteFunc's reply.
type stubCompleter struct {
	calls       int
	lastTask    string
	lastSystem  string
	lastPrompt  string
	ExecuteFunc func(prompt string) (string, error)
}

func (s *stubCompleter) ExecutePrompt(ctx context.Context, agentType string, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	s.calls++
	s.lastTask = agentType
	s.lastSystem = systemPrompt
	s.lastPrompt = prompt
	return s.ExecuteFunc(prompt)
}

func reply(s string) func(string) (string, error) {
	return func(string) (string, error) { return s, nil }
}

func TestTranslateParsesFilter(t *testing.T) {
	c := &stubCompleter{ExecuteFunc: reply("```json\n{\"query\": \"risk factors\", \"filter\": \"and(in(\\\"year\\\", [\\\"2023\\\"]), eq(\\\"type\\\", \\\"Item 1A\\\"))\"}\n```")}
	tr := NewLLMTranslator(c, newRegistry())

	sq, err := tr.Translate(context.Background(), "Item 1A risk factors in 2023")
	if err != nil {
		t.Fatal(err)
	}
	if c.lastTask != agent.TaskFilterTranslation {
		t.Errorf("task = %q", c.lastTask)
	}
	if !strings.Contains(c.lastSystem, "Structured Request Schema") || !strings.Contains(c.lastPrompt, "Item 1A risk factors in 2023") {
		t.Errorf("prompt not rendered as expected")
	}
	if sq.Query != "risk factors" {
		t.Errorf("query = %q", sq.Query)
	}
	if sq.Filter == nil {
		t.Fatal("expected a filter")
	}
	if !sq.Filter.Match(knowledge.Metadata{Year: 2023, Type: "Item 1A"}) || sq.Filter.Match(knowledge.Metadata{Year: 2022, Type: "Item 1A"}) {
		t.Errorf("filter %s matches the wrong entries", sq.Filter)
	}
}

func TestTranslateFallbacks(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantQuery string
	}{
		{"no filter", `{"query": "strategy", "filter": "NO_FILTER"}`, "strategy"},
		{"unparseable filter", `{"query": "strategy", "filter": "between(\"year\", 1, 2)"}`, "strategy"},
		{"empty query", `{"query": "", "filter": "NO_FILTER"}`, "original request"},
		{"not json", "I cannot help with that.", "original request"},
	}
	for _, tt := range tests {
		tr := NewLLMTranslator(&stubCompleter{ExecuteFunc: reply(tt.reply)}, newRegistry())
		sq, err := tr.Translate(context.Background(), "original request")
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if sq.Query != tt.wantQuery || sq.Filter != nil {
			t.Errorf("%s: got %q / %v", tt.name, sq.Query, sq.Filter)
		}
	}
}

func TestTranslateUpstreamError(t *testing.T) {
	boom := errors.New("rate limited")
	tr := NewLLMTranslator(&stubCompleter{ExecuteFunc: func(string) (string, error) { return "", boom }}, newRegistry())
	if _, err := tr.Translate(context.Background(), "q"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
}

func TestLLMSynthesizerFormatsContext(t *testing.T) {
	c := &stubCompleter{ExecuteFunc: reply("```markdown\n## Strengths\nBrand\n```")}
	s := NewLLMSynthesizer(c, newRegistry())

	docs := []knowledge.ScoredEntry{
		{Entry: knowledge.Entry{Content: "Item 1 text", Metadata: knowledge.Metadata{Year: 2023, Type: "Item 1"}}},
		{Entry: knowledge.Entry{Content: "Item 8 text", Metadata: knowledge.Metadata{Year: 2022, Type: "Item 8"}}},
	}
	answer, err := s.Synthesize(context.Background(), "What are the strengths?", docs)
	if err != nil {
		t.Fatal(err)
	}
	if answer != "## Strengths\nBrand" {
		t.Errorf("answer not cleaned: %q", answer)
	}
	if c.lastTask != agent.TaskSynthesis || !strings.HasPrefix(c.lastSystem, "You are a professional financial analyst") {
		t.Errorf("wrong task or system prompt: %q %q", c.lastTask, c.lastSystem)
	}

	wantCtx := "Item 1 text\n\nMetadata: {'year': 2023, 'type': 'Item 1'}\n\nItem 8 text\n\nMetadata: {'year': 2022, 'type': 'Item 8'}"
	if got := FormatContext(docs); got != wantCtx {
		t.Errorf("FormatContext = %q", got)
	}
	if !strings.Contains(c.lastPrompt, wantCtx) || !strings.HasSuffix(c.lastPrompt, "Question: What are the strengths?") {
		t.Errorf("user prompt = %q", c.lastPrompt)
	}
}
