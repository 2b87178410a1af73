// Package constants defines application-wide constants and magic strings.
// Centralizing these values improves maintainability and reduces typos.
package constants

import "time"

// Application metadata
const (
	AppName = "TrackForge"
	DBFile  = "trackforge.db"
)

// MetadataTimeout bounds a single metadata probe call against the Extractor.
const MetadataTimeout = 30 * time.Second

// Queue and admission defaults, overridable via config.
const (
	DefaultMinStorageGB           = 5
	DefaultMaxPendingDownloads    = 10
	DefaultCleanupRetentionDays   = 7
	DefaultLogRetentionDays       = 90
	DefaultDownloadTimeoutMinutes = 60
	DefaultPollIntervalMs         = 2000
	DefaultStalledCheckIntervalMs = 5 * 60 * 1000
	DefaultCleanupIntervalMs      = 7 * 24 * 60 * 60 * 1000
	ProgressLogThreshold          = 5
)

// DownloadStatus is a download's lifecycle state.
type DownloadStatus string

const (
	StatusPending    DownloadStatus = "pending"
	StatusInProgress DownloadStatus = "in_progress"
	StatusCompleted  DownloadStatus = "completed"
	StatusFailed     DownloadStatus = "failed"
	StatusCancelled  DownloadStatus = "cancelled"
)

// IsTerminal reports whether a status never transitions further.
func (s DownloadStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Provider classifies the content platform a URL belongs to.
type Provider string

const (
	ProviderA Provider = "A"
	ProviderM Provider = "M"
)

// MediaKind distinguishes a single track from an album/playlist.
type MediaKind string

const (
	KindTrack MediaKind = "track"
	KindAlbum MediaKind = "album"
)

// EventType enumerates the lifecycle events a download log entry may carry.
type EventType string

const (
	EventDownloadEnqueued  EventType = "download:enqueued"
	EventDownloadStarted   EventType = "download:started"
	EventDownloadProgress  EventType = "download:progress"
	EventDownloadCompleted EventType = "download:completed"
	EventDownloadFailed    EventType = "download:failed"
	EventDownloadCancelled EventType = "download:cancelled"
	EventDownloadStalled   EventType = "download:stalled"
	EventStorageLow        EventType = "storage:low"
	EventMetadataFetching  EventType = "metadata:fetching"
	EventMetadataFound     EventType = "metadata:found"
)

// ValidEventTypes is the enumeration eventlog.Writer enforces.
var ValidEventTypes = map[EventType]bool{
	EventDownloadEnqueued:  true,
	EventDownloadStarted:   true,
	EventDownloadProgress:  true,
	EventDownloadCompleted: true,
	EventDownloadFailed:    true,
	EventDownloadCancelled: true,
	EventDownloadStalled:   true,
	EventStorageLow:        true,
	EventMetadataFetching:  true,
	EventMetadataFound:     true,
}

// Cache TTLs: downloads change constantly, media rarely, logs in between.
const (
	DownloadCacheTTL    = 5 * time.Second
	MediaCacheTTL       = 5 * time.Minute
	DownloadLogCacheTTL = 10 * time.Second
)
