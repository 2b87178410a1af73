// Package cache implements a generic TTL-keyed cache backed by SQLite:
// arbitrary keys, opaque byte values, explicit per-entry expiry. Entries
// survive restarts; consistency is bounded by the TTL the caller picks.
package cache

import (
	"database/sql"
	"fmt"
	"time"
)

// Store persists cache entries keyed by an arbitrary string, each with its
// own expiry timestamp.
type Store struct {
	db *sql.DB
}

// NewStore creates a cache store using the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the cache_entries table if it doesn't exist.
func (s *Store) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		expires_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Set stores value under key with the given TTL, replacing any existing
// entry for that key.
func (s *Store) Set(key string, value []byte, ttl time.Duration) error {
	if s.db == nil {
		return fmt.Errorf("cache: database not initialized")
	}

	expiresAt := time.Now().Add(ttl)
	_, err := s.db.Exec(`
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	return nil
}

// Get returns the cached value for key. The second return value is false
// when the key is absent or has expired; an expired entry found this way is
// lazily deleted.
func (s *Store) Get(key string) ([]byte, bool) {
	if s.db == nil {
		return nil, false
	}

	var value []byte
	var expiresAtStr string
	err := s.db.QueryRow(`SELECT value, expires_at FROM cache_entries WHERE key = ?`, key).
		Scan(&value, &expiresAtStr)
	if err != nil {
		return nil, false
	}

	expiresAt, err := time.Parse("2006-01-02 15:04:05.999999999-07:00", expiresAtStr)
	if err != nil {
		expiresAt, err = time.Parse(time.RFC3339, expiresAtStr)
	}
	if err != nil || time.Now().After(expiresAt) {
		s.Delete(key)
		return nil, false
	}

	return value, true
}

// Delete removes a single cache entry.
func (s *Store) Delete(key string) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

// Clear removes every cache entry.
func (s *Store) Clear() error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec(`DELETE FROM cache_entries`)
	return err
}

// Cleanup deletes expired entries and reports how many were removed.
func (s *Store) Cleanup() (int, error) {
	if s.db == nil {
		return 0, nil
	}
	res, err := s.db.Exec(`DELETE FROM cache_entries WHERE expires_at < ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("cache: cleanup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// Stats reports how many live (non-expired) entries are currently stored.
func (s *Store) Stats() (int, error) {
	if s.db == nil {
		return 0, nil
	}
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries WHERE expires_at >= ?`, time.Now()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("cache: stats: %w", err)
	}
	return count, nil
}
