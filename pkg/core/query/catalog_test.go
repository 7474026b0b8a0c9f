package query

import (
	"errors"
	"strings"
	"testing"

	"filing_analyst/pkg/core/apperr"
	"filing_analyst/pkg/core/prompt"
)

func newRegistry() *prompt.Registry {
	r := prompt.NewRegistry()
	prompt.RegisterBuiltins(r)
	return r
}

func TestCatalogKeys(t *testing.T) {
	c := NewCatalog(newRegistry(), "AAPL", []int{2021, 2022})
	want := []string{"Overview", "Business and Risk", "Strategic Outlook and Future Projections", "Risk Factors Years", "SWOT"}
	got := c.Keys()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	if c.Has("swot") {
		t.Error("keys should be case-sensitive")
	}
}

func TestCatalogRenderSWOT(t *testing.T) {
	c := NewCatalog(newRegistry(), "AAPL", []int{2021, 2022})
	text, err := c.Render("SWOT")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.ToLower(text), "risk factors") {
		t.Errorf("SWOT text should mention risk factors:\n%s", text)
	}
	if !strings.Contains(text, "of 2022 for AAPL's 10-K filing") {
		t.Errorf("SWOT should use the latest year:\n%s", text)
	}
}

func TestCatalogRenderRiskFactorsYears(t *testing.T) {
	tests := []struct {
		years []int
		want  string
	}{
		{[]int{2023}, "for last year (2023)"},
		{[]int{2022, 2023}, "for last two years (2022, 2023)"},
		{[]int{2021, 2022, 2023}, "for last three years (2021, 2022, 2023)"},
		{[]int{2020, 2021, 2022, 2023}, "for last last 4 years (2020, 2021, 2022, 2023)"},
	}
	for _, tt := range tests {
		text, err := NewCatalog(newRegistry(), "MSFT", tt.years).Render("Risk Factors Years")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(text, tt.want) {
			t.Errorf("years %v: expected %q in\n%s", tt.years, tt.want, text)
		}
	}
}

func TestCatalogRenderUnknown(t *testing.T) {
	_, err := NewCatalog(newRegistry(), "AAPL", nil).Render("unknown")
	if !errors.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), `key="unknown"`) {
		t.Errorf("error should name the key: %v", err)
	}
}

func TestCatalogAll(t *testing.T) {
	all, err := NewCatalog(newRegistry(), "AAPL", []int{2023}).All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 templates, got %d", len(all))
	}
	for key, text := range all {
		if strings.Contains(text, "{{") || strings.Contains(text, "<no value>") {
			t.Errorf("%s has unrendered placeholders", key)
		}
		if !strings.Contains(text, "AAPL") {
			t.Errorf("%s should mention the symbol", key)
		}
	}
}

func TestYearsPhrase(t *testing.T) {
	tests := map[int]string{0: "year", 1: "year", 2: "two years", 3: "three years", 5: "last 5 years"}
	for n, want := range tests {
		if got := YearsPhrase(n); got != want {
			t.Errorf("YearsPhrase(%d) = %q, want %q", n, got, want)
		}
	}
}
