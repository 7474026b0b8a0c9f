package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinTemplatesInCatalogOrder(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	var names []string
	for _, pt := range r.Templates() {
		names = append(names, pt.Name)
	}
	want := []string{"Overview", "Business and Risk", "Strategic Outlook and Future Projections", "Risk Factors Years", "SWOT"}
	if strings.Join(names, "|") != strings.Join(want, "|") {
		t.Fatalf("templates = %v, want %v", names, want)
	}
	if _, err := r.GetSchema("structured_query"); err != nil {
		t.Errorf("expected structured_query schema: %v", err)
	}
}

func TestGetPromptNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetPrompt("template.nope")
	if !errors.Is(err, ErrPromptNotFound) {
		t.Fatalf("expected ErrPromptNotFound, got %v", err)
	}
}

func TestRenderStrategicOutlookUsesSymbol(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	pt, err := r.GetPrompt(PromptIDs.TemplateStrategicOutlook)
	if err != nil {
		t.Fatal(err)
	}

	out, err := RenderUserPrompt(pt, NewContext().Set("Symbol", "AAPL"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "of AAPL's recent 10-K filing") {
		t.Errorf("symbol not substituted:\n%s", out)
	}
	if strings.Contains(out, "{{") {
		t.Errorf("unrendered placeholder:\n%s", out)
	}
}

func TestRenderMissingRequiredVariable(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	pt, _ := r.GetPrompt(PromptIDs.AnalystSystem)

	if _, err := RenderUserPrompt(pt, NewContext().Set("Context", "x")); err == nil {
		t.Fatal("expected missing Question error")
	}
	out, err := RenderUserPrompt(pt, NewContext().Set("Context", "ctx").Set("Question", "q?"))
	if err != nil {
		t.Fatal(err)
	}
	if out != "Use this context to answer the question:\nctx\nQuestion: q?" {
		t.Errorf("unexpected render %q", out)
	}
}

func TestLoadFromDirectoryOverlaysBuiltin(t *testing.T) {
	dir := t.TempDir()
	tmplDir := filepath.Join(dir, "prompts", "template")
	if err := os.MkdirAll(tmplDir, 0o755); err != nil {
		t.Fatal(err)
	}
	override := `{
  # comments are allowed in hjson
  user_prompt_template: SWOT for {{.Symbol}} only
}`
	if err := os.WriteFile(filepath.Join(tmplDir, "swot.hjson"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}
	extra := `{"name": "Liquidity", "user_prompt_template": "Liquidity of {{.Symbol}}", "order": 6}`
	if err := os.WriteFile(filepath.Join(tmplDir, "liquidity.json"), []byte(extra), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	RegisterBuiltins(r)
	if err := LoadFromDirectory(r, dir); err != nil {
		t.Fatal(err)
	}

	swot, err := r.GetPrompt(PromptIDs.TemplateSWOT)
	if err != nil {
		t.Fatal(err)
	}
	if swot.Name != "SWOT" || swot.Order != 5 {
		t.Errorf("overlay lost built-in fields: %+v", swot)
	}
	out, _ := RenderUserPrompt(swot, NewContext().Set("Symbol", "MSFT"))
	if out != "SWOT for MSFT only" {
		t.Errorf("override not applied: %q", out)
	}

	templates := r.Templates()
	if len(templates) != 6 || templates[5].ID != "template.liquidity" {
		t.Errorf("expected liquidity appended to templates, got %d", len(templates))
	}
}

func TestLoadFromDirectoryMissing(t *testing.T) {
	if err := LoadFromDirectory(NewRegistry(), t.TempDir()); err == nil {
		t.Fatal("expected error for missing prompts directory")
	}
}

func TestListPromptsSorted(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	ids := r.ListPrompts()
	want := []string{
		PromptIDs.AnalystSystem,
		PromptIDs.FilterTranslation,
		PromptIDs.TemplateBusinessAndRisk,
		PromptIDs.TemplateOverview,
		PromptIDs.TemplateRiskFactorsYears,
		PromptIDs.TemplateStrategicOutlook,
		PromptIDs.TemplateSWOT,
	}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("ListPrompts() = %v, want %v", ids, want)
	}
}
