package query

import (
	"context"
	"regexp"
	"strings"
	"time"

	"filing_analyst/pkg/core/apperr"
)

// FilingType10K is the only supported filing type.
const FilingType10K = "10-K"

// tickerPattern accepts a single ticker: 1-5 letters or digits with an
// optional share-class suffix such as ".B".
var tickerPattern = regexp.MustCompile(`^[A-Z0-9]{1,5}(\.[A-Z]{1,2})?$`)

// NormalizeSymbol upper-cases and validates a ticker.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !tickerPattern.MatchString(s) {
		return "", apperr.New(apperr.InvalidInput, "query.Validate",
			"invalid ticker %q: expected 1-5 uppercase letters or digits", symbol)
	}
	return s, nil
}

// ValidateFilingType rejects filing types the extractor cannot parse.
func ValidateFilingType(filingType string) error {
	if filingType != FilingType10K {
		return apperr.New(apperr.InvalidInput, "query.Validate", "unsupported filing type %q", filingType)
	}
	return nil
}

// Service is the entry point for callers: every call validates its input,
// then builds an engine for the company.
type Service struct {
	deps    Deps
	timeout time.Duration
}

// NewService creates a service. A positive timeout bounds each Execute call.
func NewService(deps Deps, timeout time.Duration) *Service {
	return &Service{deps: deps, timeout: timeout}
}

func (s *Service) validate(symbol, key, filingType string, numYears int) (string, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return "", err
	}
	if err := ValidateFilingType(filingType); err != nil {
		return "", apperr.Annotate(err, sym, filingType)
	}
	if numYears <= 0 {
		return "", apperr.New(apperr.InvalidInput, "query.Validate", "num_years must be positive, got %d", numYears).For(sym, filingType)
	}
	if key != "" && !NewCatalog(s.deps.Registry, sym, nil).Has(key) {
		return "", apperr.New(apperr.NotFound, "query.Validate", "unknown template").For(sym, filingType).WithKey(key)
	}
	return sym, nil
}

// Execute answers the template key for a company's most recent filings.
func (s *Service) Execute(ctx context.Context, symbol, key, filingType string, persistSections bool, numYears int) (*Result, error) {
	sym, err := s.validate(symbol, key, filingType, numYears)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, apperr.New(apperr.InvalidInput, "query.Execute", "template key is required").For(sym, filingType)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	engine, err := NewEngine(ctx, s.deps, sym, Options{
		FilingType:      filingType,
		NumYears:        numYears,
		PersistSections: persistSections,
	})
	if err != nil {
		return nil, err
	}
	return engine.Query(ctx, key)
}

// ListTemplates returns the template keys. They do not depend on the
// company's filings, so no index is opened.
func (s *Service) ListTemplates(symbol, filingType string, numYears int) ([]string, error) {
	sym, err := s.validate(symbol, "", filingType, numYears)
	if err != nil {
		return nil, err
	}
	return NewCatalog(s.deps.Registry, sym, nil).Keys(), nil
}

// GetTemplateText renders key with the years present in the company's index.
func (s *Service) GetTemplateText(ctx context.Context, symbol, key, filingType string, numYears int) (string, error) {
	sym, err := s.validate(symbol, key, filingType, numYears)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", apperr.New(apperr.InvalidInput, "query.GetTemplateText", "template key is required").For(sym, filingType)
	}

	engine, err := NewEngine(ctx, s.deps, sym, Options{FilingType: filingType, NumYears: numYears})
	if err != nil {
		return "", err
	}
	return engine.GetQuery(key)
}
