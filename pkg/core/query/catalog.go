// Package query turns a named analysis template into an answer: it renders the
// template for a company, retrieves the matching filing sections from the
// semantic index and asks a language model to synthesize the result.
package query

import (
	"strconv"
	"strings"

	"filing_analyst/pkg/core/apperr"
	"filing_analyst/pkg/core/prompt"
)

// Catalog is the set of analysis templates bound to one company and its
// indexed years. Rendering is a pure function of that binding.
type Catalog struct {
	symbol    string
	years     []string
	templates []*prompt.PromptTemplate
}

// NewCatalog binds the registry's templates to symbol and years (ascending).
func NewCatalog(registry *prompt.Registry, symbol string, years []int) *Catalog {
	ys := make([]string, len(years))
	for i, y := range years {
		ys[i] = strconv.Itoa(y)
	}
	return &Catalog{
		symbol:    symbol,
		years:     ys,
		templates: registry.Templates(),
	}
}

// Keys returns the template keys in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.templates))
	for i, pt := range c.templates {
		keys[i] = pt.Name
	}
	return keys
}

// Has reports whether key names a template. Keys are case-sensitive.
func (c *Catalog) Has(key string) bool {
	return c.lookup(key) != nil
}

func (c *Catalog) lookup(key string) *prompt.PromptTemplate {
	for _, pt := range c.templates {
		if pt.Name == key {
			return pt
		}
	}
	return nil
}

// Render returns the question text for key.
func (c *Catalog) Render(key string) (string, error) {
	pt := c.lookup(key)
	if pt == nil {
		return "", apperr.New(apperr.NotFound, "query.Render", "unknown template").WithKey(key)
	}

	latest := ""
	if len(c.years) > 0 {
		latest = c.years[len(c.years)-1]
	}
	ctx := prompt.NewContext().
		Set("Symbol", c.symbol).
		Set("LatestYear", latest).
		Set("YearsList", strings.Join(c.years, ", ")).
		Set("YearsPhrase", YearsPhrase(len(c.years)))

	text, err := prompt.RenderUserPrompt(pt, ctx)
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidInput, "query.Render", err).WithKey(key)
	}
	return text, nil
}

// All renders every template, keyed by template key.
func (c *Catalog) All() (map[string]string, error) {
	out := make(map[string]string, len(c.templates))
	for _, key := range c.Keys() {
		text, err := c.Render(key)
		if err != nil {
			return nil, err
		}
		out[key] = text
	}
	return out, nil
}

// YearsPhrase describes how many years a multi-year template covers.
func YearsPhrase(n int) string {
	switch {
	case n <= 1:
		return "year"
	case n == 2:
		return "two years"
	case n == 3:
		return "three years"
	default:
		return "last " + strconv.Itoa(n) + " years"
	}
}
