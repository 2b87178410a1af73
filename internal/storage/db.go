// Package storage implements the durable store for downloads, media, and
// download logs, backed by SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"trackforge/internal/constants"
)

// DB wraps the SQLite connection shared by every repository in this package.
type DB struct {
	conn *sql.DB
	path string
}

// New opens (creating if necessary) the database file under dataDir and
// runs migrations.
func New(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, constants.DBFile)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	db := &DB{conn: conn, path: dbPath}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the raw connection, used by the cache store's own migration.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		title TEXT,
		artist TEXT,
		album TEXT,
		album_artist TEXT,
		year INTEGER,
		cover_url TEXT,
		duration INTEGER DEFAULT 0,
		provider TEXT NOT NULL,
		provider_id TEXT,
		kind TEXT NOT NULL,
		tracks TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_media_provider_providerid
		ON media(provider, provider_id) WHERE provider_id IS NOT NULL AND provider_id != '';

	CREATE TABLE IF NOT EXISTS downloads (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		normalized_url TEXT NOT NULL,
		media_id TEXT REFERENCES media(id),
		status TEXT NOT NULL DEFAULT 'pending',
		progress INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		file_path TEXT,
		process_id TEXT,
		created_at DATETIME NOT NULL,
		started_at DATETIME,
		finished_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);
	CREATE INDEX IF NOT EXISTS idx_downloads_normalized_url ON downloads(normalized_url);
	CREATE INDEX IF NOT EXISTS idx_downloads_normalized_url_status ON downloads(normalized_url, status);
	CREATE INDEX IF NOT EXISTS idx_downloads_created_at ON downloads(created_at);
	CREATE INDEX IF NOT EXISTS idx_downloads_started_at ON downloads(started_at);
	CREATE INDEX IF NOT EXISTS idx_downloads_status_started_at ON downloads(status, started_at);

	CREATE TABLE IF NOT EXISTS download_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		download_id TEXT NOT NULL REFERENCES downloads(id),
		event_type TEXT NOT NULL,
		message TEXT,
		metadata TEXT,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_download_logs_download_id ON download_logs(download_id);
	CREATE INDEX IF NOT EXISTS idx_download_logs_timestamp ON download_logs(timestamp);
	`

	_, err := db.conn.Exec(schema)
	return err
}
