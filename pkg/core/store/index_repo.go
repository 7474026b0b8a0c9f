package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"filing_analyst/pkg/core/apperr"
	"filing_analyst/pkg/core/knowledge"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS section_indexes (
	path            TEXT PRIMARY KEY,
	symbol          TEXT NOT NULL,
	filing_type     TEXT NOT NULL,
	embedding_model TEXT NOT NULL DEFAULT '',
	years           BIGINT[] NOT NULL,
	entry_count     INTEGER NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS section_entries (
	index_path   TEXT NOT NULL REFERENCES section_indexes(path) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	id           TEXT NOT NULL,
	year         INTEGER NOT NULL,
	section_type TEXT NOT NULL,
	content      TEXT NOT NULL,
	embedding    REAL[] NOT NULL,
	PRIMARY KEY (index_path, position)
);
`

// IndexRepo persists semantic indexes in Postgres. It implements
// knowledge.Store with the canonical index path as the row key; an index row
// only becomes visible when the transaction that wrote its entries commits.
type IndexRepo struct {
	pool *pgxpool.Pool
}

// NewIndexRepo creates a new index repository
func NewIndexRepo(pool *pgxpool.Pool) *IndexRepo {
	return &IndexRepo{pool: pool}
}

var _ knowledge.Store = (*IndexRepo)(nil)

// EnsureSchema creates the index tables when they do not exist.
func (r *IndexRepo) EnsureSchema(ctx context.Context) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not configured")
	}
	if _, err := r.pool.Exec(ctx, indexSchema); err != nil {
		return fmt.Errorf("failed to create index schema: %w", err)
	}
	return nil
}

func (r *IndexRepo) Exists(ctx context.Context, path string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("database pool not configured")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM section_indexes WHERE path = $1)`, path).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check index: %w", err)
	}
	return exists, nil
}

func (r *IndexRepo) Load(ctx context.Context, path string) (*knowledge.Snapshot, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}

	snap := &knowledge.Snapshot{}
	m := &snap.Manifest
	err := r.pool.QueryRow(ctx, `
		SELECT symbol, filing_type, embedding_model, years, entry_count, created_at
		FROM section_indexes
		WHERE path = $1
	`, path).Scan(&m.Symbol, &m.FilingType, &m.EmbeddingModel, &m.Years, &m.EntryCount, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "store.Load", "no persisted index")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load index manifest: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, year, section_type, content, embedding
		FROM section_entries
		WHERE index_path = $1
		ORDER BY position
	`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query index entries: %w", err)
	}
	defer rows.Close()

	snap.Entries = make([]knowledge.Entry, 0, m.EntryCount)
	for rows.Next() {
		var e knowledge.Entry
		if err := rows.Scan(&e.ID, &e.Metadata.Year, &e.Metadata.Type, &e.Content, &e.Embedding); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index entries: %w", err)
	}
	return snap, nil
}

// Save replaces the index at path in a single transaction.
func (r *IndexRepo) Save(ctx context.Context, path string, snap *knowledge.Snapshot) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not configured")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM section_indexes WHERE path = $1`, path); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	m := snap.Manifest
	_, err = tx.Exec(ctx, `
		INSERT INTO section_indexes (path, symbol, filing_type, embedding_model, years, entry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, path, m.Symbol, m.FilingType, m.EmbeddingModel, m.Years, len(snap.Entries), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save index manifest: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"section_entries"},
		[]string{"index_path", "position", "id", "year", "section_type", "content", "embedding"},
		pgx.CopyFromSlice(len(snap.Entries), func(i int) ([]any, error) {
			e := snap.Entries[i]
			return []any{path, i, e.ID, e.Metadata.Year, e.Metadata.Type, e.Content, e.Embedding}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy index entries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}

	log.Printf("[Store] Saved index %s/%s with %d entries", m.Symbol, m.FilingType, n)
	return nil
}

// Delete removes an index and its entries.
func (r *IndexRepo) Delete(ctx context.Context, path string) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not configured")
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM section_indexes WHERE path = $1`, path); err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	return nil
}
