package utils

import "testing"

type filterReply struct {
	Query  string `json:"query"`
	Filter string `json:"filter"`
}

func TestSmartParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"plain", `{"query": "risk factors", "filter": "eq(\"year\", 2023)"}`},
		{"fenced", "```json\n{\"query\": \"risk factors\", \"filter\": \"eq(\\\"year\\\", 2023)\"}\n```"},
		{"trailing comma", `{"query": "risk factors", "filter": "eq(\"year\", 2023)",}`},
	}

	for _, tt := range tests {
		var out filterReply
		if _, err := SmartParse(tt.input, &out); err != nil {
			t.Errorf("%s: SmartParse failed: %v", tt.name, err)
			continue
		}
		if out.Query != "risk factors" || out.Filter != `eq("year", 2023)` {
			t.Errorf("%s: unexpected result %+v", tt.name, out)
		}
	}
}

func TestCleanMarkdown(t *testing.T) {
	tests := map[string]string{
		"```markdown\n# Title\nBody\n```": "# Title\nBody",
		"```\nplain\n```":                 "plain",
		"  no fences  ":                   "no fences",
	}
	for in, want := range tests {
		if got := CleanMarkdown(in); got != want {
			t.Errorf("CleanMarkdown(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMarkdownHeadings(t *testing.T) {
	md := "# SWOT for AAPL\n\n## Strengths\n- brand\n\n## Weaknesses\ntext\n\n### **Opportunities** ahead\n"
	got := MarkdownHeadings(md)
	want := []string{"SWOT for AAPL", "Strengths", "Weaknesses", "Opportunities ahead"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("heading %d = %q, want %q", i, got[i], want[i])
		}
	}
}
