package storage

import (
	"time"

	"trackforge/internal/constants"
)

// DownloadLog is one append-only lifecycle event for a Download.
type DownloadLog struct {
	ID         int64
	DownloadID string
	EventType  constants.EventType
	Message    *string
	Metadata   *string
	Timestamp  time.Time
}

// NewDownloadLog describes the fields a caller supplies; ID and Timestamp
// are assigned by Create.
type NewDownloadLog struct {
	DownloadID string
	EventType  constants.EventType
	Message    string
	Metadata   string
}

// DownloadLogRepository handles append and query access for download logs.
type DownloadLogRepository struct {
	db *DB
}

// NewDownloadLogRepository creates a log repository backed by db.
func NewDownloadLogRepository(db *DB) *DownloadLogRepository {
	return &DownloadLogRepository{db: db}
}

// Create appends a log entry, stamping its timestamp.
func (r *DownloadLogRepository) Create(entry NewDownloadLog) (*DownloadLog, error) {
	timestamp := time.Now()
	res, err := r.db.conn.Exec(`
		INSERT INTO download_logs (download_id, event_type, message, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, entry.DownloadID, entry.EventType, nullIfEmpty(entry.Message), nullIfEmpty(entry.Metadata), timestamp)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &DownloadLog{
		ID:         id,
		DownloadID: entry.DownloadID,
		EventType:  entry.EventType,
		Timestamp:  timestamp,
	}, nil
}

// FindByDownloadID returns log entries for a download, timestamp DESC, paginated.
func (r *DownloadLogRepository) FindByDownloadID(downloadID string, page, pageSize int) ([]*DownloadLog, error) {
	offset := (page - 1) * pageSize
	rows, err := r.db.conn.Query(`
		SELECT id, download_id, event_type, message, metadata, timestamp
		FROM download_logs WHERE download_id = ?
		ORDER BY timestamp DESC LIMIT ? OFFSET ?
	`, downloadID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DownloadLog
	for rows.Next() {
		l := &DownloadLog{}
		if err := rows.Scan(&l.ID, &l.DownloadID, &l.EventType, &l.Message, &l.Metadata, &l.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CountByDownloadID returns how many log entries exist for a download.
func (r *DownloadLogRepository) CountByDownloadID(downloadID string) (int, error) {
	var count int
	err := r.db.conn.QueryRow(`SELECT COUNT(*) FROM download_logs WHERE download_id = ?`, downloadID).Scan(&count)
	return count, err
}

// DeleteOldLogs removes entries older than the retention window and reports
// how many were removed.
func (r *DownloadLogRepository) DeleteOldLogs(retentionDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res, err := r.db.conn.Exec(`DELETE FROM download_logs WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
