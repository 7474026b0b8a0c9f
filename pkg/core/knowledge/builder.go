package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strconv"
	"time"

	"filing_analyst/pkg/core/apperr"
	"filing_analyst/pkg/core/ingest"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// entryNamespace seeds deterministic entry ids.
var entryNamespace = uuid.MustParse("6f1c7a52-2b8e-4d0e-9a8f-3c1d5e7b9a10")

// BuilderConfig wires a Builder.
type BuilderConfig struct {
	IndexRoot      string
	SideFileDir    string
	Locator        *ingest.FilingLocator
	Store          Store
	Embedder       Embedder
	Translator     FilterTranslator
	EmbeddingModel string
	Workers        int
}

// BuildOptions controls a first-time build. They are ignored when the index
// already exists.
type BuildOptions struct {
	NumYears        int
	PersistSections bool
}

// Builder opens persisted indexes or builds them from downloaded filings.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder creates a builder. Workers bounds concurrent extraction and
// embedding calls.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Store == nil {
		cfg.Store = NewFileStore()
	}
	return &Builder{cfg: cfg}
}

// PathFor returns the canonical index path for a company.
func (b *Builder) PathFor(symbol, filingType string) string {
	return CanonicalPath(b.cfg.IndexRoot, symbol, filingType)
}

// OpenOrBuild returns the index for (symbol, filingType). When a persisted
// index exists it is loaded unchanged. Otherwise the most recent filings are
// extracted, embedded and persisted before returning. Concurrent callers for
// the same path wait for a single build.
func (b *Builder) OpenOrBuild(ctx context.Context, symbol, filingType string, opts BuildOptions) (*Index, error) {
	path := b.PathFor(symbol, filingType)
	h := Handle(path)

	h.mu.Lock()
	defer h.mu.Unlock()

	exists, err := b.cfg.Store.Exists(ctx, path)
	if err != nil {
		return nil, storeFailure("knowledge.Open", symbol, filingType, err)
	}

	if exists {
		if snap := h.cached(); snap != nil {
			return newIndex(symbol, filingType, path, snap, b.cfg.Embedder, b.cfg.Translator), nil
		}
		snap, err := b.cfg.Store.Load(ctx, path)
		if err != nil {
			return nil, storeFailure("knowledge.Open", symbol, filingType, err)
		}
		log.Printf("[Builder] %s %s: loaded index with %d entries", symbol, filingType, len(snap.Entries))
		h.set(StatusReady, snap)
		return newIndex(symbol, filingType, path, snap, b.cfg.Embedder, b.cfg.Translator), nil
	}

	h.set(StatusBuilding, nil)
	snap, err := b.build(ctx, symbol, filingType, opts)
	if err != nil {
		h.set(StatusMissing, nil)
		return nil, apperr.Annotate(err, symbol, filingType)
	}

	if len(snap.Entries) == 0 {
		// Nothing to persist; the next open tries again.
		log.Printf("[Builder] %s %s: no sections extracted, index not persisted", symbol, filingType)
		h.set(StatusMissing, nil)
		return newIndex(symbol, filingType, path, snap, b.cfg.Embedder, b.cfg.Translator), nil
	}

	if err := b.cfg.Store.Save(ctx, path, snap); err != nil {
		h.set(StatusMissing, nil)
		return nil, storeFailure("knowledge.Build", symbol, filingType, err)
	}
	h.set(StatusReady, snap)
	log.Printf("[Builder] %s %s: built index with %d entries for years %v", symbol, filingType, len(snap.Entries), snap.Manifest.Years)

	return newIndex(symbol, filingType, path, snap, b.cfg.Embedder, b.cfg.Translator), nil
}

func (b *Builder) build(ctx context.Context, symbol, filingType string, opts BuildOptions) (*Snapshot, error) {
	filings, err := b.cfg.Locator.Locate(symbol, filingType, opts.NumYears)
	if err != nil {
		return nil, err
	}

	extractions, err := b.extract(ctx, symbol, filings, opts.PersistSections)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, ext := range extractions {
		year, err := strconv.Atoi(ext.Year)
		if err != nil {
			return nil, fmt.Errorf("invalid filing year %q: %w", ext.Year, err)
		}
		for _, sec := range ext.Ordered() {
			if sec.Content == "" {
				continue
			}
			entries = append(entries, Entry{
				ID:       uuid.NewSHA1(entryNamespace, []byte(symbol+"|"+filingType+"|"+ext.Year+"|"+sec.Key)).String(),
				Content:  sec.Content,
				Metadata: Metadata{Year: year, Type: sec.Key},
			})
		}
	}

	if err := b.embed(ctx, entries); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "knowledge.Build", err).For(symbol, filingType)
	}

	years := make(map[int]bool)
	for _, e := range entries {
		years[e.Metadata.Year] = true
	}
	manifest := Manifest{
		Symbol:         symbol,
		FilingType:     filingType,
		EmbeddingModel: b.cfg.EmbeddingModel,
		EntryCount:     len(entries),
		CreatedAt:      time.Now().UTC(),
	}
	for y := range years {
		manifest.Years = append(manifest.Years, y)
	}
	sort.Ints(manifest.Years)

	return &Snapshot{Manifest: manifest, Entries: entries}, nil
}

// extract parses each filing concurrently, preserving the locator's order.
func (b *Builder) extract(ctx context.Context, symbol string, filings []ingest.Filing, persist bool) ([]*ingest.Extraction, error) {
	out := make([]*ingest.Extraction, len(filings))
	parser := ingest.NewTenKParser(symbol)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i, f := range filings {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ext, err := parser.ParseFile(f.Path)
			if err != nil {
				// The cause names filesystem paths; keep it in the log only.
				log.Printf("[Builder] %s: filing %s unreadable: %v", symbol, f.ID.Raw, err)
				if errors.Is(err, fs.ErrNotExist) {
					return apperr.New(apperr.NotFound, "knowledge.Build", "filing %s has no primary document", f.ID.Raw)
				}
				return apperr.New(apperr.NotFound, "knowledge.Build", "filing %s unreadable", f.ID.Raw)
			}
			if persist && b.cfg.SideFileDir != "" {
				if _, err := ingest.WriteSideFiles(b.cfg.SideFileDir, ext); err != nil {
					// Side files are for inspection only; the index does not depend on them.
					log.Printf("[WARNING] %s: side files for filing %s not written: %v", symbol, f.ID.Raw, err)
				}
			}
			out[i] = ext
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// storeFailure classifies an index store error. Classified errors pass through
// with company context; anything else is logged and replaced, since store
// errors carry file or database locations.
func storeFailure(op, symbol, filingType string, err error) error {
	if apperr.KindOf(err) != "" {
		return apperr.Annotate(err, symbol, filingType)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.UpstreamUnavailable, op, err).For(symbol, filingType)
	}
	log.Printf("[Builder] %s %s: index store error: %v", symbol, filingType, err)
	return apperr.New(apperr.UpstreamUnavailable, op, "index store unavailable").For(symbol, filingType)
}

// embed fills in every entry's vector. Any failure aborts the whole build.
func (b *Builder) embed(ctx context.Context, entries []Entry) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i := range entries {
		i := i
		g.Go(func() error {
			vec, err := b.cfg.Embedder.Embed(gctx, entries[i].Content)
			if err != nil {
				return fmt.Errorf("embedding %s %d: %w", entries[i].Metadata.Type, entries[i].Metadata.Year, err)
			}
			entries[i].Embedding = vec
			return nil
		})
	}
	return g.Wait()
}
