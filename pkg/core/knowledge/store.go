package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"filing_analyst/pkg/core/apperr"

	"github.com/google/uuid"
)

// =============================================================================
// IN-MEMORY STORE (For development/testing)
// =============================================================================

// MemoryStore implements Store with in-memory storage.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
	saves     int
}

// NewMemoryStore creates a new in-memory index store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]*Snapshot)}
}

func (s *MemoryStore) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.snapshots[path]
	return ok, nil
}

func (s *MemoryStore) Load(ctx context.Context, path string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[path]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "knowledge.Load", "no persisted index")
	}
	cp := *snap
	cp.Entries = append([]Entry(nil), snap.Entries...)
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, path string, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snap
	cp.Entries = append([]Entry(nil), snap.Entries...)
	s.snapshots[path] = &cp
	s.saves++
	return nil
}

// Delete removes a persisted index, forcing the next open to rebuild.
func (s *MemoryStore) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, path)
}

// Saves reports how many snapshots have been written.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// =============================================================================
// FILE STORE
// One directory per index holding manifest.json and entries.json. The directory
// appears atomically: it is written under a staging name and renamed into place.
// =============================================================================

const (
	manifestFile = "manifest.json"
	entriesFile  = "entries.json"
)

// FileStore persists indexes on the local filesystem.
type FileStore struct{}

// NewFileStore creates a filesystem-backed store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

func (s *FileStore) Exists(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat index: %w", err)
	}
	return info.IsDir(), nil
}

func (s *FileStore) Load(ctx context.Context, path string) (*Snapshot, error) {
	var snap Snapshot
	if err := readJSON(filepath.Join(path, manifestFile), &snap.Manifest); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(path, entriesFile), &snap.Entries); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *FileStore) Save(ctx context.Context, path string, snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index parent: %w", err)
	}

	staging := path + ".staging-" + uuid.NewString()
	if err := os.Mkdir(staging, 0755); err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := writeJSON(filepath.Join(staging, manifestFile), snap.Manifest); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(staging, entriesFile), snap.Entries); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(staging, path); err != nil {
		// Another writer finished first; its index is equally complete.
		if ok, _ := s.Exists(ctx, path); ok {
			log.Printf("[FileStore] index already present at rename, keeping existing copy")
			return nil
		}
		return fmt.Errorf("failed to move index into place: %w", err)
	}
	return nil
}

func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return apperr.New(apperr.NotFound, "knowledge.Load", "index file %s missing", filepath.Base(path))
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
