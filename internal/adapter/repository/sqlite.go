package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"github.com/eslsoft/lernkarten/internal/entity"
	"github.com/eslsoft/lernkarten/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	user_id    TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteStore keeps snapshot documents as JSON rows in a local sqlite
// database, one row per user.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ repository.LocalStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save implements repository.LocalStore.
func (s *SQLiteStore) Save(ctx context.Context, snap entity.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (user_id, document, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		snap.UserID, string(doc), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load implements repository.LocalStore.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (entity.Snapshot, error) {
	var doc string
	err := s.db.GetContext(ctx, &doc, `SELECT document FROM snapshots WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Snapshot{}, fmt.Errorf("%w: %s", entity.ErrSnapshotNotFound, userID)
	}
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var snap entity.Snapshot
	if err := json.Unmarshal([]byte(doc), &snap); err != nil {
		return entity.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.Normalize()
	return snap, nil
}

// Meta implements repository.LocalStore.
func (s *SQLiteStore) Meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM meta WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return value, nil
}

// SetMeta implements repository.LocalStore.
func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write meta %s: %w", key, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
