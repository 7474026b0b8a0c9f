package query

import (
	"context"
	"log"

	"filing_analyst/pkg/core/apperr"
	"filing_analyst/pkg/core/ingest"
	"filing_analyst/pkg/core/knowledge"
	"filing_analyst/pkg/core/prompt"
	"filing_analyst/pkg/core/utils"
)

// State is the engine's lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateFilingsReady
	StateIndexReady
	StateReady
)

func (s State) String() string {
	switch s {
	case StateFilingsReady:
		return "FILINGS_READY"
	case StateIndexReady:
		return "INDEX_READY"
	case StateReady:
		return "READY"
	default:
		return "UNINITIALIZED"
	}
}

// IndexOpener opens or builds a company's index. *knowledge.Builder implements it.
type IndexOpener interface {
	OpenOrBuild(ctx context.Context, symbol, filingType string, opts knowledge.BuildOptions) (*knowledge.Index, error)
}

// Deps are the collaborators shared by every engine.
type Deps struct {
	Downloader  ingest.Downloader // optional; nil skips the download step
	Indexes     IndexOpener
	Registry    *prompt.Registry
	Synthesizer Synthesizer
}

// Options select what an engine indexes.
type Options struct {
	FilingType      string
	NumYears        int
	PersistSections bool
}

// Result is a synthesized answer with the sections it was drawn from.
type Result struct {
	Symbol     string                  `json:"symbol"`
	FilingType string                  `json:"filing_type"`
	Key        string                  `json:"query_key"`
	Question   string                  `json:"question"`
	Answer     string                  `json:"answer"`
	Outline    []string                `json:"outline,omitempty"`
	Context    []knowledge.ScoredEntry `json:"context"`
}

// Engine answers template queries for one company.
type Engine struct {
	symbol      string
	opts        Options
	state       State
	index       *knowledge.Index
	catalog     *Catalog
	synthesizer Synthesizer
}

// NewEngine downloads missing filings, then opens or builds the company's
// index. The returned engine is ready; on error no engine is returned.
func NewEngine(ctx context.Context, deps Deps, symbol string, opts Options) (*Engine, error) {
	e := &Engine{symbol: symbol, opts: opts, synthesizer: deps.Synthesizer}

	if deps.Downloader != nil {
		if err := deps.Downloader.EnsureDownloaded(ctx, symbol, opts.FilingType); err != nil {
			return nil, err
		}
	}
	e.state = StateFilingsReady

	index, err := deps.Indexes.OpenOrBuild(ctx, symbol, opts.FilingType, knowledge.BuildOptions{
		NumYears:        opts.NumYears,
		PersistSections: opts.PersistSections,
	})
	if err != nil {
		return nil, err
	}
	e.index = index
	e.state = StateIndexReady

	e.catalog = NewCatalog(deps.Registry, symbol, index.AvailableYears())
	e.state = StateReady
	log.Printf("[Engine] %s %s ready: %d entries, years %v", symbol, opts.FilingType, index.Len(), index.AvailableYears())

	return e, nil
}

func (e *Engine) State() State { return e.state }

// AvailableYears lists the distinct years present in the index, ascending.
func (e *Engine) AvailableYears() []int { return e.index.AvailableYears() }

// Documents lists the indexed sections without embeddings.
func (e *Engine) Documents() []knowledge.Entry { return e.index.Documents() }

// ListQueries returns the template keys.
func (e *Engine) ListQueries() []string { return e.catalog.Keys() }

func (e *Engine) checkKey(key string) error {
	if e.catalog == nil || !e.catalog.Has(key) {
		return apperr.New(apperr.NotFound, "query.Engine", "unknown template").For(e.symbol, e.opts.FilingType).WithKey(key)
	}
	return nil
}

// GetQuery returns the rendered question for key.
func (e *Engine) GetQuery(key string) (string, error) {
	if err := e.checkKey(key); err != nil {
		return "", err
	}
	text, err := e.catalog.Render(key)
	if err != nil {
		return "", apperr.Annotate(err, e.symbol, e.opts.FilingType)
	}
	return text, nil
}

// Query renders key, retrieves matching sections from the whole index and
// synthesizes an answer.
func (e *Engine) Query(ctx context.Context, key string) (*Result, error) {
	if err := e.checkKey(key); err != nil {
		return nil, err
	}
	if e.state != StateReady {
		return nil, apperr.New(apperr.NotFound, "query.Engine", "engine is %s", e.state).For(e.symbol, e.opts.FilingType)
	}
	if e.index.Len() == 0 {
		return nil, apperr.New(apperr.NotFound, "query.Engine", "no indexed sections").For(e.symbol, e.opts.FilingType).WithKey(key)
	}

	question, err := e.GetQuery(key)
	if err != nil {
		return nil, err
	}

	docs, err := e.index.Retrieve(ctx, question, nil, e.index.DefaultK())
	if err != nil {
		return nil, apperr.Annotate(err, e.symbol, e.opts.FilingType)
	}
	if len(docs) == 0 {
		return nil, apperr.New(apperr.NotFound, "query.Engine", "no sections retrieved").For(e.symbol, e.opts.FilingType).WithKey(key)
	}
	log.Printf("[Engine] %s %q: synthesizing from %d sections", e.symbol, key, len(docs))

	answer, err := e.synthesizer.Synthesize(ctx, question, docs)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "query.Engine", err).For(e.symbol, e.opts.FilingType).WithKey(key)
	}

	for i := range docs {
		docs[i].Embedding = nil
	}
	return &Result{
		Symbol:     e.symbol,
		FilingType: e.opts.FilingType,
		Key:        key,
		Question:   question,
		Answer:     answer,
		Outline:    utils.MarkdownHeadings(answer),
		Context:    docs,
	}, nil
}
