package entityindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS searchable_entities (
	entity_type   TEXT NOT NULL,
	entity_id     TEXT NOT NULL,
	content       TEXT NOT NULL,
	vector_id     TEXT NOT NULL,
	metadata_json TEXT,
	updated_at    INTEGER NOT NULL,
	PRIMARY KEY (entity_type, entity_id)
);

CREATE INDEX IF NOT EXISTS idx_searchable_entities_vector ON searchable_entities(vector_id);
`

// SQLiteIndex is an Index backed by a SQLite database file.
type SQLiteIndex struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the index database at path.
// The special path ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteIndex{db: db, path: path}, nil
}

// Path returns the database location.
func (s *SQLiteIndex) Path() string { return s.path }

// Begin starts a transaction.
func (s *SQLiteIndex) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &sqliteTx{tx: tx}, nil
}

// Get returns the record for an entity or ErrNotFound.
func (s *SQLiteIndex) Get(ctx context.Context, entityType, entityID string) (*SearchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT entity_type, entity_id, content, vector_id, metadata_json, updated_at
		FROM searchable_entities
		WHERE entity_type = ? AND entity_id = ?
	`, entityType, entityID)

	var (
		rec      SearchRecord
		metaJSON sql.NullString
		updated  int64
	)
	if err := row.Scan(&rec.EntityType, &rec.EntityID, &rec.Content, &rec.VectorID, &metaJSON, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query search record: %w", err)
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return &rec, nil
}

// Count returns the number of stored records.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM searchable_entities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count search records: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Upsert(ctx context.Context, rec SearchRecord) error {
	if rec.EntityType == "" || rec.EntityID == "" {
		return fmt.Errorf("entity type and id are required")
	}
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO searchable_entities (entity_type, entity_id, content, vector_id, metadata_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, entity_id) DO UPDATE SET
			content = excluded.content,
			vector_id = excluded.vector_id,
			metadata_json = excluded.metadata_json,
			updated_at = excluded.updated_at
	`, rec.EntityType, rec.EntityID, rec.Content, rec.VectorID, string(metaJSON), updated.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert search record: %w", err)
	}
	return nil
}

func (t *sqliteTx) Delete(ctx context.Context, entityType, entityID string) error {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM searchable_entities WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID); err != nil {
		return fmt.Errorf("delete search record: %w", err)
	}
	return nil
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

var _ Index = (*SQLiteIndex)(nil)
