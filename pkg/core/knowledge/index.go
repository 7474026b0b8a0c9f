package knowledge

import (
	"context"
	"log"
	"math"
	"sort"

	"filing_analyst/pkg/core/apperr"
	"filing_analyst/pkg/core/ingest"
)

// Index is an opened semantic index for one company and filing type.
type Index struct {
	Symbol     string
	FilingType string
	Path       string

	manifest   Manifest
	entries    []Entry
	embedder   Embedder
	translator FilterTranslator
}

func newIndex(symbol, filingType, path string, snap *Snapshot, embedder Embedder, translator FilterTranslator) *Index {
	return &Index{
		Symbol:     symbol,
		FilingType: filingType,
		Path:       path,
		manifest:   snap.Manifest,
		entries:    snap.Entries,
		embedder:   embedder,
		translator: translator,
	}
}

// Len returns the number of entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Manifest returns the persisted description of the index.
func (ix *Index) Manifest() Manifest { return ix.manifest }

// Documents returns a copy of every stored entry, without embeddings.
func (ix *Index) Documents() []Entry {
	out := make([]Entry, len(ix.entries))
	for i, e := range ix.entries {
		e.Embedding = nil
		out[i] = e
	}
	return out
}

// AvailableYears scans entry metadata and returns the distinct years, ascending.
func (ix *Index) AvailableYears() []int {
	seen := make(map[int]bool)
	var years []int
	for _, e := range ix.entries {
		if !seen[e.Metadata.Year] {
			seen[e.Metadata.Year] = true
			years = append(years, e.Metadata.Year)
		}
	}
	sort.Ints(years)
	return years
}

// DefaultK is large enough to return every entry when nothing narrows the search.
func (ix *Index) DefaultK() int {
	return len(ix.AvailableYears()) * len(ingest.SectionDefinitions)
}

// Retrieve translates query into a search text plus metadata filter, combines
// that filter with scope, and returns up to k entries ranked by similarity.
// k <= 0 uses DefaultK.
func (ix *Index) Retrieve(ctx context.Context, query string, scope Filter, k int) ([]ScoredEntry, error) {
	if k <= 0 {
		k = ix.DefaultK()
	}

	sq := StructuredQuery{Query: query}
	if ix.translator != nil {
		translated, err := ix.translator.Translate(ctx, query)
		if err != nil {
			return nil, apperr.Wrap(apperr.UpstreamUnavailable, "knowledge.Retrieve", err).For(ix.Symbol, ix.FilingType)
		}
		sq = translated
		if sq.Query == "" {
			sq.Query = query
		}
	}
	filter := And(scope, sq.Filter)
	log.Printf("[Index] %s %s: retrieve k=%d filter=%s", ix.Symbol, ix.FilingType, k, Describe(filter))

	vec, err := ix.embedder.Embed(ctx, sq.Query)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "knowledge.Retrieve", err).For(ix.Symbol, ix.FilingType)
	}

	var hits []ScoredEntry
	for _, e := range ix.entries {
		if filter != nil && !filter.Match(e.Metadata) {
			continue
		}
		hits = append(hits, ScoredEntry{Entry: e, Score: cosine(vec, e.Embedding)})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
