package summaries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotStore persists the last successfully fetched raw document per
// category. Snapshots let a cold process serve the previous data before its
// first live fetch completes; the raw document is stored (msgpack-encoded)
// rather than the normalized form, since normalization is pure and cheap to
// re-run on load.
type SnapshotStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// Snapshot is one stored document with its capture time
type Snapshot struct {
	Category  Category
	Document  Document
	FetchedAt time.Time
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS summary_snapshots (
	category   TEXT PRIMARY KEY,
	document   BLOB NOT NULL,
	updated    TEXT,
	fetched_at TEXT NOT NULL
);
`

// NewSnapshotStore creates the store and ensures its schema exists
func NewSnapshotStore(db *sql.DB, log zerolog.Logger) (*SnapshotStore, error) {
	if _, err := db.Exec(snapshotSchema); err != nil {
		return nil, fmt.Errorf("failed to create snapshot schema: %w", err)
	}

	return &SnapshotStore{
		db:  db,
		log: log.With().Str("component", "snapshot_store").Logger(),
	}, nil
}

// Save stores a category's document, replacing any previous snapshot
func (s *SnapshotStore) Save(ctx context.Context, category Category, doc Document, fetchedAt time.Time) error {
	blob, err := msgpack.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for %s: %w", category, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO summary_snapshots (category, document, updated, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			document = excluded.document,
			updated = excluded.updated,
			fetched_at = excluded.fetched_at`,
		string(category), blob, doc.Updated, fetchedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", category, err)
	}

	return nil
}

// Load returns the stored snapshot for a category, or (nil, nil) when none exists
func (s *SnapshotStore) Load(ctx context.Context, category Category) (*Snapshot, error) {
	var blob []byte
	var fetchedAtStr string

	err := s.db.QueryRowContext(ctx, `
		SELECT document, fetched_at FROM summary_snapshots WHERE category = ?`,
		string(category)).Scan(&blob, &fetchedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", category, err)
	}

	var doc Document
	if err := msgpack.Unmarshal(blob, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for %s: %w", category, err)
	}

	fetchedAt, err := time.Parse(time.RFC3339Nano, fetchedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot time for %s: %w", category, err)
	}

	return &Snapshot{Category: category, Document: doc, FetchedAt: fetchedAt}, nil
}
