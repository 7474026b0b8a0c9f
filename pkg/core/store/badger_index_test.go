package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"filing_analyst/pkg/core/apperr"
	"filing_analyst/pkg/core/knowledge"

	"github.com/dgraph-io/badger/v4"
)

func testSnapshot(n int) *knowledge.Snapshot {
	snap := &knowledge.Snapshot{
		Manifest: knowledge.Manifest{
			Symbol:     "AAPL",
			FilingType: "10-K",
			Years:      []int{2022, 2023},
			CreatedAt:  time.Now().UTC().Truncate(time.Second),
		},
	}
	for i := 0; i < n; i++ {
		snap.Entries = append(snap.Entries, knowledge.Entry{
			ID:        fmt.Sprintf("entry-%d", i),
			Content:   fmt.Sprintf("section %d", i),
			Metadata:  knowledge.Metadata{Year: 2022 + i%2, Type: "Item 1A"},
			Embedding: []float32{float32(i), 1},
		})
	}
	return snap
}

func TestBadgerIndexStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	path := "embeddings/AAPL/10K_items_1_1a_7_7a_8_9"

	s, err := OpenBadgerIndexStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	exists, err := s.Exists(ctx, path)
	if err != nil || exists {
		t.Fatalf("expected no index yet, got %v, %v", exists, err)
	}
	// more than ten entries so lexical key order is exercised
	if err := s.Save(ctx, path, testSnapshot(12)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenBadgerIndexStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	exists, err = s.Exists(ctx, path)
	if err != nil || !exists {
		t.Fatalf("expected index after reopen, got %v, %v", exists, err)
	}
	got, err := s.Load(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Manifest.EntryCount != 12 || len(got.Entries) != 12 {
		t.Fatalf("unexpected snapshot: %+v, %d entries", got.Manifest, len(got.Entries))
	}
	for i, e := range got.Entries {
		if e.ID != fmt.Sprintf("entry-%d", i) {
			t.Fatalf("entry %d out of order: %s", i, e.ID)
		}
	}
	if got.Entries[11].Embedding[0] != 11 || got.Entries[1].Metadata.Year != 2023 {
		t.Errorf("entry payload not preserved: %+v", got.Entries[11])
	}
}

func TestBadgerIndexStoreReplaceAndIsolation(t *testing.T) {
	s, err := OpenBadgerIndexStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Save(ctx, "idx/AAPL", testSnapshot(5)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "idx/AAPLX", testSnapshot(3)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "idx/AAPL", testSnapshot(2)); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, "idx/AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != 2 {
		t.Errorf("stale entries survived a replace: %d", len(got.Entries))
	}
	other, err := s.Load(ctx, "idx/AAPLX")
	if err != nil {
		t.Fatal(err)
	}
	if len(other.Entries) != 3 {
		t.Errorf("neighbouring index affected: %d entries", len(other.Entries))
	}

	if err := s.Delete(ctx, "idx/AAPL"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "idx/AAPL"); !errors.Is(err, apperr.NotFound) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
}

func TestBadgerIndexStoreIncompleteIndex(t *testing.T) {
	s, err := OpenBadgerIndexStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()
	path := "/srv/filings/embeddings/AAPL/10K_items_1_1a_7_7a_8_9"

	if err := s.Save(ctx, path, testSnapshot(3)); err != nil {
		t.Fatal(err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey(path, 1))
	}); err != nil {
		t.Fatal(err)
	}

	_, err = s.Load(ctx, path)
	if err == nil {
		t.Fatal("expected an error for a missing entry")
	}
	if strings.Contains(err.Error(), "/srv/filings") {
		t.Errorf("error exposes the index path: %v", err)
	}
	if !strings.Contains(err.Error(), "AAPL") {
		t.Errorf("error should name the company: %v", err)
	}
}
