package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"filing_analyst/pkg/core/apperr"
	"filing_analyst/pkg/core/knowledge"

	"github.com/dgraph-io/badger/v4"
)

// BadgerIndexStore persists semantic indexes in an embedded Badger database.
// Each index is one manifest key plus one key per entry, all prefixed by the
// canonical index path. The manifest is written last, so Exists only reports
// true for an index whose entries are complete.
type BadgerIndexStore struct {
	db *badger.DB
}

var _ knowledge.Store = (*BadgerIndexStore)(nil)

// OpenBadgerIndexStore opens (or creates) the database in dir.
func OpenBadgerIndexStore(dir string) (*BadgerIndexStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}
	// badger's own logger is noisy at INFO
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	log.Printf("[Store] Opened badger index store at %s", dir)
	return &BadgerIndexStore{db: db}, nil
}

// Close releases the database.
func (s *BadgerIndexStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Key layout: <path>\x00m for the manifest, <path>\x00e\x00<position> for
// entries. Positions are zero-padded so iteration returns them in order.
func manifestKey(path string) []byte { return []byte(path + "\x00m") }
func entryPrefix(path string) []byte { return []byte(path + "\x00e\x00") }
func entryKey(path string, i int) []byte {
	return []byte(fmt.Sprintf("%s\x00e\x00%06d", path, i))
}

func (s *BadgerIndexStore) Exists(ctx context.Context, path string) (bool, error) {
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(manifestKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check index: %w", err)
	}
	return exists, nil
}

func (s *BadgerIndexStore) Load(ctx context.Context, path string) (*knowledge.Snapshot, error) {
	snap := &knowledge.Snapshot{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(manifestKey(path))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap.Manifest)
		}); err != nil {
			return fmt.Errorf("failed to decode manifest: %w", err)
		}

		snap.Entries = make([]knowledge.Entry, 0, snap.Manifest.EntryCount)
		prefix := entryPrefix(path)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e knowledge.Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("failed to decode entry %d: %w", len(snap.Entries), err)
			}
			snap.Entries = append(snap.Entries, e)
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apperr.New(apperr.NotFound, "store.Load", "no persisted index")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	if len(snap.Entries) != snap.Manifest.EntryCount {
		return nil, fmt.Errorf("index for %s is incomplete: manifest lists %d entries, found %d",
			snap.Manifest.Symbol, snap.Manifest.EntryCount, len(snap.Entries))
	}
	return snap, nil
}

// Save replaces the index at path. Entries go through a write batch since a
// full index can exceed a single transaction; the manifest commits last.
func (s *BadgerIndexStore) Save(ctx context.Context, path string, snap *knowledge.Snapshot) error {
	if err := s.Delete(ctx, path); err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i, e := range snap.Entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode entry %s: %w", e.ID, err)
		}
		if err := wb.Set(entryKey(path, i), data); err != nil {
			return fmt.Errorf("failed to write entry %s: %w", e.ID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush index entries: %w", err)
	}

	m := snap.Manifest
	m.EntryCount = len(snap.Entries)
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(manifestKey(path), data)
	}); err != nil {
		return fmt.Errorf("failed to save index manifest: %w", err)
	}

	log.Printf("[Store] Saved index %s/%s with %d entries", m.Symbol, m.FilingType, m.EntryCount)
	return nil
}

// Delete removes an index. The manifest goes first so a concurrent Exists
// never sees a half-deleted index.
func (s *BadgerIndexStore) Delete(ctx context.Context, path string) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(manifestKey(path))
	}); err != nil {
		return fmt.Errorf("failed to clear index manifest: %w", err)
	}
	if err := s.db.DropPrefix(entryPrefix(path)); err != nil {
		return fmt.Errorf("failed to clear index entries: %w", err)
	}
	return nil
}
