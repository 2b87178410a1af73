package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"trackforge/internal/constants"
)

// Track is one entry of an album's track list.
type Track struct {
	TrackNo  int    `json:"trackNo"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
}

// Media is a catalog item (track or album) identified by a provider source.
type Media struct {
	ID          string
	Title       *string
	Artist      *string
	Album       *string
	AlbumArtist *string
	Year        *int
	CoverURL    *string
	Duration    int
	Provider    constants.Provider
	ProviderID  *string
	Kind        constants.MediaKind
	Tracks      []Track
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

const mediaColumns = `id, title, artist, album, album_artist, year, cover_url, duration,
	provider, provider_id, kind, tracks, created_at, updated_at`

// MediaRepository handles CRUD and query access for media records.
type MediaRepository struct {
	db *DB
}

// NewMediaRepository creates a media repository backed by db.
func NewMediaRepository(db *DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create inserts a new media record, assigning its ID and CreatedAt.
func (r *MediaRepository) Create(m *Media) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now()

	tracksJSON, err := marshalTracks(m.Tracks)
	if err != nil {
		return err
	}

	_, err = r.db.conn.Exec(`
		INSERT INTO media (id, title, artist, album, album_artist, year, cover_url, duration, provider, provider_id, kind, tracks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Title, m.Artist, m.Album, m.AlbumArtist, m.Year, m.CoverURL, m.Duration,
		m.Provider, m.ProviderID, m.Kind, tracksJSON, m.CreatedAt)
	return err
}

// FindByID returns a media record by id, or nil if absent.
func (r *MediaRepository) FindByID(id string) (*Media, error) {
	row := r.db.conn.QueryRow(`SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	return scanMedia(row)
}

// FindByProviderAndProviderID looks up media by its natural key, used to
// deduplicate on metadata import.
func (r *MediaRepository) FindByProviderAndProviderID(provider constants.Provider, providerID string) (*Media, error) {
	row := r.db.conn.QueryRow(`
		SELECT `+mediaColumns+` FROM media WHERE provider = ? AND provider_id = ? LIMIT 1
	`, provider, providerID)
	return scanMedia(row)
}

// FindAll returns all media records.
func (r *MediaRepository) FindAll() ([]*Media, error) {
	rows, err := r.db.conn.Query(`SELECT ` + mediaColumns + ` FROM media ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountAll returns the total number of media records.
func (r *MediaRepository) CountAll() (int, error) {
	var count int
	err := r.db.conn.QueryRow(`SELECT COUNT(*) FROM media`).Scan(&count)
	return count, err
}

// MediaFields enumerates the editable fields for UpdateMetadata; provider
// and providerID are immutable after insert and are never part of this set.
type MediaFields struct {
	Title       *string
	Artist      *string
	Album       *string
	AlbumArtist *string
	Year        *int
}

// UpdateMetadata updates only the enumerated editable fields and stamps
// updatedAt. provider/providerID are never touched here.
func (r *MediaRepository) UpdateMetadata(id string, fields MediaFields) error {
	now := time.Now()
	_, err := r.db.conn.Exec(`
		UPDATE media SET
			title = COALESCE(?, title),
			artist = COALESCE(?, artist),
			album = COALESCE(?, album),
			album_artist = COALESCE(?, album_artist),
			year = COALESCE(?, year),
			updated_at = ?
		WHERE id = ?
	`, fields.Title, fields.Artist, fields.Album, fields.AlbumArtist, fields.Year, now, id)
	return err
}

// Delete removes a single media record.
func (r *MediaRepository) Delete(id string) error {
	_, err := r.db.conn.Exec(`DELETE FROM media WHERE id = ?`, id)
	return err
}

// DeleteAll removes every media record.
func (r *MediaRepository) DeleteAll() error {
	_, err := r.db.conn.Exec(`DELETE FROM media`)
	return err
}

// FindOrphaned returns media with no referencing download, used by the
// orphan-cleanup use case.
func (r *MediaRepository) FindOrphaned() ([]*Media, error) {
	rows, err := r.db.conn.Query(`
		SELECT ` + mediaColumns + ` FROM media m
		WHERE NOT EXISTS (SELECT 1 FROM downloads d WHERE d.media_id = m.id)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func marshalTracks(tracks []Track) (*string, error) {
	if len(tracks) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tracks)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func scanMedia(row scannable) (*Media, error) {
	m := &Media{}
	var tracksJSON *string
	err := row.Scan(
		&m.ID, &m.Title, &m.Artist, &m.Album, &m.AlbumArtist, &m.Year, &m.CoverURL, &m.Duration,
		&m.Provider, &m.ProviderID, &m.Kind, &tracksJSON, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if tracksJSON != nil && *tracksJSON != "" {
		if err := json.Unmarshal([]byte(*tracksJSON), &m.Tracks); err != nil {
			return nil, err
		}
	}
	return m, nil
}
