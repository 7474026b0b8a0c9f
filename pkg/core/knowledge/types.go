// Package knowledge implements the per-company semantic index over extracted
// 10-K sections. One index exists per (company, filing type); it is built from
// the most recent filings the first time it is needed and loaded unchanged
// thereafter.
package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// INDEX ENTRIES
// =============================================================================

// Metadata is the filterable schema attached to every entry.
type Metadata struct {
	Year int    `json:"year"` // e.g. 2023
	Type string `json:"type"` // section key, e.g. "Item 1A"
}

func (m Metadata) String() string {
	return fmt.Sprintf("{'year': %d, 'type': '%s'}", m.Year, m.Type)
}

// Entry is one section of one filing year, embedded.
type Entry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float32 `json:"embedding"`
}

// ScoredEntry is a retrieval hit.
type ScoredEntry struct {
	Entry
	Score float64 `json:"score"`
}

// Manifest describes a persisted index.
type Manifest struct {
	Symbol         string    `json:"symbol"`
	FilingType     string    `json:"filing_type"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	Years          []int     `json:"years"`
	EntryCount     int       `json:"entry_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Snapshot is everything a Store persists for one index.
type Snapshot struct {
	Manifest Manifest
	Entries  []Entry
}

// =============================================================================
// CAPABILITIES
// =============================================================================

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// StructuredQuery is a natural-language query split into the text to embed and
// a metadata filter. A nil Filter means no restriction.
type StructuredQuery struct {
	Query  string
	Filter Filter
}

// FilterTranslator derives a StructuredQuery from a natural-language request.
type FilterTranslator interface {
	Translate(ctx context.Context, query string) (StructuredQuery, error)
}

// Store persists snapshots. The path is the index's canonical location and
// doubles as its key; Exists is the only signal that a build has completed.
type Store interface {
	Exists(ctx context.Context, path string) (bool, error)
	Load(ctx context.Context, path string) (*Snapshot, error)
	Save(ctx context.Context, path string, snap *Snapshot) error
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// IndexDirSuffix names the sections an index covers.
const IndexDirSuffix = "_items_1_1a_7_7a_8_9"

// CanonicalPath returns where the index for (symbol, filingType) lives:
// <root>/<SYMBOL>/10K_items_1_1a_7_7a_8_9.
func CanonicalPath(root, symbol, filingType string) string {
	return filepath.Join(root, symbol, strings.ReplaceAll(filingType, "-", "")+IndexDirSuffix)
}
