package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"trackforge/internal/constants"
)

// Download is a single row of the downloads table: one user request to
// fetch one URL.
type Download struct {
	ID            string
	URL           string
	NormalizedURL string
	MediaID       *string
	Status        constants.DownloadStatus
	Progress      int
	ErrorMessage  *string
	FilePath      *string
	ProcessID     *string
	CreatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
}

// downloadColumns is the column list every download query selects, in the
// order scanDownload reads it; nullable columns scan into pointer fields.
const downloadColumns = `id, url, normalized_url, media_id, status, progress, error_message,
	file_path, process_id, created_at, started_at, finished_at`

// DownloadRepository handles CRUD and query access for downloads.
type DownloadRepository struct {
	db *DB
}

// NewDownloadRepository creates a download repository backed by db.
func NewDownloadRepository(db *DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Create inserts a new pending download and assigns its ID and CreatedAt.
func (r *DownloadRepository) Create(d *Download) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now()
	if d.Status == "" {
		d.Status = constants.StatusPending
	}

	_, err := r.db.conn.Exec(`
		INSERT INTO downloads (id, url, normalized_url, media_id, status, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.URL, d.NormalizedURL, d.MediaID, d.Status, d.Progress, d.CreatedAt)
	return err
}

// FindByID returns a download by its id, or nil if absent.
func (r *DownloadRepository) FindByID(id string) (*Download, error) {
	row := r.db.conn.QueryRow(`SELECT `+downloadColumns+` FROM downloads WHERE id = ?`, id)
	return scanDownload(row)
}

// FindNextPending returns the oldest pending download by createdAt ASC.
func (r *DownloadRepository) FindNextPending() (*Download, error) {
	row := r.db.conn.QueryRow(`
		SELECT ` + downloadColumns + ` FROM downloads
		WHERE status = 'pending' ORDER BY created_at ASC LIMIT 1
	`)
	return scanDownload(row)
}

// FindActiveByNormalizedURL returns a pending or in_progress row for the
// given normalized URL, used for duplicate-active rejection.
func (r *DownloadRepository) FindActiveByNormalizedURL(normalizedURL string) (*Download, error) {
	row := r.db.conn.QueryRow(`
		SELECT `+downloadColumns+` FROM downloads
		WHERE normalized_url = ? AND status IN ('pending', 'in_progress')
		LIMIT 1
	`, normalizedURL)
	return scanDownload(row)
}

// FindByStatus returns downloads with the given status, createdAt DESC, paginated.
func (r *DownloadRepository) FindByStatus(status constants.DownloadStatus, page, pageSize int) ([]*Download, error) {
	offset := (page - 1) * pageSize
	rows, err := r.db.conn.Query(`
		SELECT `+downloadColumns+` FROM downloads
		WHERE status = ? ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, status, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDownloads(rows)
}

// FindAll returns all downloads, createdAt DESC, paginated.
func (r *DownloadRepository) FindAll(page, pageSize int) ([]*Download, error) {
	offset := (page - 1) * pageSize
	rows, err := r.db.conn.Query(`
		SELECT `+downloadColumns+` FROM downloads
		ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDownloads(rows)
}

// FindOldCompleted returns completed/failed downloads whose finishedAt
// predates the retention window.
func (r *DownloadRepository) FindOldCompleted(retentionDays int) ([]*Download, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	rows, err := r.db.conn.Query(`
		SELECT `+downloadColumns+` FROM downloads
		WHERE status IN ('completed', 'failed') AND finished_at < ?
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDownloads(rows)
}

// FindStalledInProgress returns in_progress downloads whose startedAt
// predates the stall timeout.
func (r *DownloadRepository) FindStalledInProgress(timeoutMinutes int) ([]*Download, error) {
	cutoff := time.Now().Add(-time.Duration(timeoutMinutes) * time.Minute)
	rows, err := r.db.conn.Query(`
		SELECT `+downloadColumns+` FROM downloads
		WHERE status = 'in_progress' AND started_at < ?
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDownloads(rows)
}

// CountAll returns the total number of downloads.
func (r *DownloadRepository) CountAll() (int, error) {
	var count int
	err := r.db.conn.QueryRow(`SELECT COUNT(*) FROM downloads`).Scan(&count)
	return count, err
}

// CountByStatus returns the number of downloads in the given status.
func (r *DownloadRepository) CountByStatus(status constants.DownloadStatus) (int, error) {
	var count int
	err := r.db.conn.QueryRow(`SELECT COUNT(*) FROM downloads WHERE status = ?`, status).Scan(&count)
	return count, err
}

// UpdateStatus sets status/progress/errorMessage/filePath. finishedAt is
// stamped on the first terminal transition and cleared again when the row
// returns to a non-terminal status (retry).
func (r *DownloadRepository) UpdateStatus(id string, status constants.DownloadStatus, progress int, errorMessage, filePath *string) error {
	if status.IsTerminal() {
		_, err := r.db.conn.Exec(`
			UPDATE downloads SET status = ?, progress = ?, error_message = ?, file_path = ?, finished_at = COALESCE(finished_at, ?)
			WHERE id = ?
		`, status, progress, errorMessage, filePath, time.Now(), id)
		return err
	}
	_, err := r.db.conn.Exec(`
		UPDATE downloads SET status = ?, progress = ?, error_message = ?, file_path = ?, finished_at = NULL
		WHERE id = ?
	`, status, progress, errorMessage, filePath, id)
	return err
}

// UpdateStatusIfCurrentStatus performs the same write as UpdateStatus but
// only if the row is still in fromStatus, so a concurrent write that has
// already moved the row to some other state is not clobbered. It reports
// whether the row was updated.
func (r *DownloadRepository) UpdateStatusIfCurrentStatus(id string, fromStatus, status constants.DownloadStatus, progress int, errorMessage, filePath *string) (bool, error) {
	var res sql.Result
	var err error
	if status.IsTerminal() {
		res, err = r.db.conn.Exec(`
			UPDATE downloads SET status = ?, progress = ?, error_message = ?, file_path = ?, finished_at = COALESCE(finished_at, ?)
			WHERE id = ? AND status = ?
		`, status, progress, errorMessage, filePath, time.Now(), id, fromStatus)
	} else {
		res, err = r.db.conn.Exec(`
			UPDATE downloads SET status = ?, progress = ?, error_message = ?, file_path = ?, finished_at = NULL
			WHERE id = ? AND status = ?
		`, status, progress, errorMessage, filePath, id, fromStatus)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateStatusIfInProgress performs the same write as UpdateStatus but only
// if the row is currently in_progress, so a concurrent Cancel that has
// already moved the row to a terminal state is not clobbered. It reports
// whether the row was updated.
func (r *DownloadRepository) UpdateStatusIfInProgress(id string, status constants.DownloadStatus, progress int, errorMessage, filePath *string) (bool, error) {
	return r.UpdateStatusIfCurrentStatus(id, constants.StatusInProgress, status, progress, errorMessage, filePath)
}

// UpdateProcessID records the Extractor's OS handle and, since it is the
// sole writer of startedAt, stamps the start time.
func (r *DownloadRepository) UpdateProcessID(id string, processID string) error {
	_, err := r.db.conn.Exec(`
		UPDATE downloads SET process_id = ?, started_at = COALESCE(started_at, ?) WHERE id = ?
	`, processID, time.Now(), id)
	return err
}

// UpdateMediaID links a download to a Media record.
func (r *DownloadRepository) UpdateMediaID(id string, mediaID string) error {
	_, err := r.db.conn.Exec(`UPDATE downloads SET media_id = ? WHERE id = ?`, mediaID, id)
	return err
}

// Delete removes a single download.
func (r *DownloadRepository) Delete(id string) error {
	_, err := r.db.conn.Exec(`DELETE FROM downloads WHERE id = ?`, id)
	return err
}

// DeleteAll removes every download.
func (r *DownloadRepository) DeleteAll() error {
	_, err := r.db.conn.Exec(`DELETE FROM downloads`)
	return err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDownload(row scannable) (*Download, error) {
	d := &Download{}
	err := row.Scan(
		&d.ID, &d.URL, &d.NormalizedURL, &d.MediaID, &d.Status, &d.Progress, &d.ErrorMessage,
		&d.FilePath, &d.ProcessID, &d.CreatedAt, &d.StartedAt, &d.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func scanDownloads(rows *sql.Rows) ([]*Download, error) {
	var downloads []*Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}
