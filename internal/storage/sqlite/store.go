package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mahersayed/supplier-ledger/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	collection TEXT PRIMARY KEY,
	snapshot   BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Store keeps collection snapshots in a local SQLite database, one row per
// collection. This is the default cache for long-lived deployments.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// A single writer keeps SQLite happy and matches the single-logical-writer
	// model of the cache.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(collection storage.Collection) ([]byte, error) {
	var snap []byte
	err := s.db.QueryRow(
		`SELECT snapshot FROM snapshots WHERE collection = ?`, string(collection),
	).Scan(&snap)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", collection, err)
	}
	return snap, nil
}

func (s *Store) Put(collection storage.Collection, snapshot []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO snapshots (collection, snapshot, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(collection) DO UPDATE SET
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`,
		string(collection), snapshot,
	)
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", collection, err)
	}
	return nil
}

func (s *Store) Delete(collection storage.Collection) error {
	if _, err := s.db.Exec(
		`DELETE FROM snapshots WHERE collection = ?`, string(collection),
	); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", collection, err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

var _ storage.Store = (*Store)(nil)
