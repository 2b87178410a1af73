// Package queue implements the download lifecycle use cases: admission,
// processing, status/log queries, cancellation, retry, post-processing,
// metadata edits, and the cleanup/stall-detection sweeps the Worker drives.
package queue

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"trackforge/internal/cached"
	"trackforge/internal/constants"
	"trackforge/internal/diskspace"
	apperr "trackforge/internal/errors"
	"trackforge/internal/eventlog"
	"trackforge/internal/fetch"
	"trackforge/internal/metadata"
	"trackforge/internal/platform"
	"trackforge/internal/storage"

	"github.com/rs/zerolog"
)

// EnqueueResult is returned by Enqueue.
type EnqueueResult struct {
	DownloadID string
	MediaID    *string
	URL        string
	Status     constants.DownloadStatus
}

// DownloadDetail is returned by GetDownloadStatus: the Download plus its
// linked Media, when one is known.
type DownloadDetail struct {
	Download *storage.Download
	Media    *storage.Media
}

// CleanupResult reports what CleanupOrphanedFiles removed.
type CleanupResult struct {
	DownloadsDeleted int
	MediaDeleted     int
	FilesDeleted     int
	BytesFreed       uint64
}

// Service implements the download and media use cases. Cacheable reads go
// through the cached decorators; the three worker-critical queries
// (FindNextPending, FindOldCompleted, FindStalledInProgress) always use the
// direct storage repository.
type Service struct {
	downloads    *cached.CachedDownloadRepository
	media        *cached.CachedMediaRepository
	logs         *cached.CachedDownloadLogRepository
	rawDownloads *storage.DownloadRepository
	rawMedia     *storage.MediaRepository

	events *eventlog.Writer

	probe    *metadata.Driver
	executor *fetch.Executor

	tempDir string
	destDir string

	minStorageGB         float64
	maxPendingDownloads  int
	progressLogThreshold int

	log zerolog.Logger

	mu                sync.Mutex
	progressThreshold map[string]int // downloadID -> lastLogged percent
}

// Deps bundles Service's constructor dependencies.
type Deps struct {
	Downloads *cached.CachedDownloadRepository
	Media     *cached.CachedMediaRepository
	Logs      *cached.CachedDownloadLogRepository

	RawDownloads *storage.DownloadRepository
	RawMedia     *storage.MediaRepository

	Events *eventlog.Writer

	Probe    *metadata.Driver
	Executor *fetch.Executor

	TempDir string
	DestDir string

	MinStorageGB         float64
	MaxPendingDownloads  int
	ProgressLogThreshold int

	Log zerolog.Logger
}

// New builds a Service from its dependencies.
func New(d Deps) *Service {
	return &Service{
		downloads:            d.Downloads,
		media:                d.Media,
		logs:                 d.Logs,
		rawDownloads:         d.RawDownloads,
		rawMedia:             d.RawMedia,
		events:               d.Events,
		probe:                d.Probe,
		executor:             d.Executor,
		tempDir:              d.TempDir,
		destDir:              d.DestDir,
		minStorageGB:         d.MinStorageGB,
		maxPendingDownloads:  d.MaxPendingDownloads,
		progressLogThreshold: d.ProgressLogThreshold,
		log:                  d.Log,
		progressThreshold:    make(map[string]int),
	}
}

// Enqueue validates and admits a new download, then fires an asynchronous,
// best-effort metadata import.
func (s *Service) Enqueue(ctx context.Context, rawURL string) (*EnqueueResult, error) {
	normalizedURL := platform.Normalize(rawURL)

	provider, kind, ok := platform.Detect(rawURL)
	if !ok {
		return nil, apperr.NewWithKind("queue.Enqueue", apperr.ErrInvalidURL, apperr.KindInvalidURL, "URL does not match a supported platform")
	}

	existing, err := s.rawDownloads.FindActiveByNormalizedURL(normalizedURL)
	if err != nil {
		return nil, apperr.Wrap("queue.Enqueue", err)
	}
	if existing != nil {
		return nil, apperr.NewWithKind("queue.Enqueue", apperr.ErrDuplicateActive, apperr.KindDuplicateActive, "an active download already exists for this URL")
	}

	pendingCount, err := s.rawDownloads.CountByStatus(constants.StatusPending)
	if err != nil {
		return nil, apperr.Wrap("queue.Enqueue", err)
	}
	if pendingCount >= s.maxPendingDownloads {
		return nil, apperr.NewWithKind("queue.Enqueue", apperr.ErrQueueFull, apperr.KindQueueFull, "pending download queue is full")
	}

	download := &storage.Download{
		URL:           rawURL,
		NormalizedURL: normalizedURL,
		Status:        constants.StatusPending,
		Progress:      0,
	}
	if err := s.downloads.Create(download); err != nil {
		return nil, apperr.Wrap("queue.Enqueue", err)
	}

	if err := s.events.Append(download.ID, constants.EventDownloadEnqueued, "download enqueued", nil); err != nil {
		s.log.Warn().Err(err).Str("downloadId", download.ID).Msg("failed to append enqueued event")
	}

	go s.importMetadata(download.ID, download.URL, provider, kind)

	return &EnqueueResult{
		DownloadID: download.ID,
		MediaID:    download.MediaID,
		URL:        download.URL,
		Status:     download.Status,
	}, nil
}

// importMetadata runs the probe-and-link flow detached from Enqueue's
// response. Every failure is logged at warn level and swallowed; the
// download lifecycle never depends on it.
func (s *Service) importMetadata(downloadID, url string, provider constants.Provider, kind constants.MediaKind) {
	if err := s.events.Append(downloadID, constants.EventMetadataFetching, "fetching metadata", nil); err != nil {
		s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("failed to append metadata:fetching event")
	}

	if err := s.linkMetadata(context.Background(), downloadID, url, provider, kind); err != nil {
		s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("metadata import failed, proceeding without linked media")
	}
}

// linkMetadata probes for metadata, deduplicates/creates the Media row, and
// links it to the download if the download is still active (pending or
// in_progress). Used both by
// the async Enqueue flow and synchronously as a fallback inside
// ProcessDownload step 8.
func (s *Service) linkMetadata(ctx context.Context, downloadID, url string, provider constants.Provider, kind constants.MediaKind) error {
	probeCtx, cancel := context.WithTimeout(ctx, constants.MetadataTimeout)
	defer cancel()

	candidate, err := s.probe.Probe(probeCtx, provider, kind, url)
	if err != nil {
		return err
	}

	var mediaID string
	if candidate.ProviderID != nil {
		existing, err := s.media.FindByProviderAndProviderID(provider, *candidate.ProviderID)
		if err != nil {
			return err
		}
		if existing != nil {
			mediaID = existing.ID
		}
	}

	if mediaID == "" {
		m := &storage.Media{
			Title:       candidate.Title,
			Artist:      candidate.Artist,
			Album:       candidate.Album,
			AlbumArtist: candidate.AlbumArtist,
			Year:        candidate.Year,
			CoverURL:    candidate.CoverURL,
			Duration:    candidate.Duration,
			Provider:    candidate.Provider,
			ProviderID:  candidate.ProviderID,
			Kind:        candidate.Kind,
			Tracks:      candidate.Tracks,
		}
		if err := s.media.Create(m); err != nil {
			return err
		}
		mediaID = m.ID
	}

	if err := s.events.Append(downloadID, constants.EventMetadataFound, "metadata linked", map[string]any{"mediaId": mediaID}); err != nil {
		s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("failed to append metadata:found event")
	}

	// Link only while the download is still active: the async import must
	// not touch a row that reached a terminal state in the meantime, and the
	// synchronous fallback runs while the row is in_progress.
	current, err := s.rawDownloads.FindByID(downloadID)
	if err != nil {
		return err
	}
	if current != nil && !current.Status.IsTerminal() {
		return s.rawDownloads.UpdateMediaID(downloadID, mediaID)
	}
	return nil
}

// ProcessDownload runs one download end to end: admission check, subprocess
// execution with progress persistence, best-effort metadata linking, and the
// terminal status write.
func (s *Service) ProcessDownload(ctx context.Context, downloadID string) error {
	download, err := s.rawDownloads.FindByID(downloadID)
	if err != nil {
		return apperr.Wrap("queue.ProcessDownload", err)
	}
	if download == nil {
		return apperr.NewWithKind("queue.ProcessDownload", apperr.ErrNotFound, apperr.KindNotFound, "download not found")
	}
	if download.Status != constants.StatusPending {
		return apperr.NewWithKind("queue.ProcessDownload", apperr.ErrInvalidState, apperr.KindInvalidState, "download is not pending")
	}

	s.setThreshold(downloadID, 0)
	defer s.clearThreshold(downloadID)

	hasSpace, err := diskspace.HasAtLeast(s.tempDir, s.minStorageGB)
	if err != nil {
		return s.failDownload(downloadID, constants.StatusPending, 0, apperr.Wrap("queue.ProcessDownload", err))
	}
	if !hasSpace {
		available, _ := diskspace.AvailableBytes(s.tempDir)
		if err := s.events.Append(downloadID, constants.EventStorageLow, "insufficient free storage", map[string]any{
			"available":   diskspace.HumanizeBytes(available),
			"availableGB": diskspace.GB(available),
			"requiredGB":  s.minStorageGB,
		}); err != nil {
			s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("failed to append storage:low event")
		}
		return s.failDownload(downloadID, constants.StatusPending, 0, apperr.NewWithKind("queue.ProcessDownload", apperr.ErrInsufficientStorage, apperr.KindInsufficientStorage, "insufficient free storage"))
	}

	if err := s.rawDownloads.UpdateStatus(downloadID, constants.StatusInProgress, 0, nil, nil); err != nil {
		return apperr.Wrap("queue.ProcessDownload", err)
	}
	if err := s.events.Append(downloadID, constants.EventDownloadStarted, "download started", nil); err != nil {
		s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("failed to append download:started event")
	}

	provider, kind, ok := platform.Detect(download.URL)
	if !ok {
		return s.failDownload(downloadID, constants.StatusInProgress, 0, apperr.NewWithKind("queue.ProcessDownload", apperr.ErrInvalidURL, apperr.KindInvalidURL, "URL no longer classifies to a supported platform"))
	}

	processIDWritten := false
	onStarted := func(processID string) {
		if err := s.rawDownloads.UpdateProcessID(downloadID, processID); err != nil {
			s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("failed to persist process id")
			return
		}
		processIDWritten = true
	}

	onProgress := func(percent int) {
		if _, err := s.rawDownloads.UpdateStatusIfInProgress(downloadID, constants.StatusInProgress, percent, nil, nil); err != nil {
			s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("failed to persist progress")
		}

		last := s.threshold(downloadID)
		if percent-last >= s.progressLogThreshold || percent == 100 {
			if err := s.events.Append(downloadID, constants.EventDownloadProgress, "download progress", map[string]any{"progress": percent}); err != nil {
				s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("failed to append download:progress event")
			}
			s.setThreshold(downloadID, percent)
		}
	}

	result, err := s.executor.Execute(ctx, download.URL, provider, s.tempDir, onStarted, onProgress)
	if err != nil {
		return s.failDownload(downloadID, constants.StatusInProgress, s.threshold(downloadID), apperr.Wrap("queue.ProcessDownload", err))
	}

	if !processIDWritten && result.ProcessID != "" {
		if err := s.rawDownloads.UpdateProcessID(downloadID, result.ProcessID); err != nil {
			s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("failed to persist process id post-facto")
		}
	}

	if download.MediaID == nil {
		if err := s.linkMetadata(ctx, downloadID, download.URL, provider, kind); err != nil {
			s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("synchronous metadata link failed, proceeding without linked media")
		}
	}

	filePath := result.FilePath
	updated, err := s.rawDownloads.UpdateStatusIfInProgress(downloadID, constants.StatusCompleted, 100, nil, &filePath)
	if err != nil {
		return apperr.Wrap("queue.ProcessDownload", err)
	}
	if !updated {
		// A concurrent CancelDownload already wrote a terminal status; its
		// unconditional write must stand, so the completion is dropped.
		return nil
	}
	if err := s.events.Append(downloadID, constants.EventDownloadCompleted, "download completed", map[string]any{"filePath": filePath}); err != nil {
		s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("failed to append download:completed event")
	}

	return nil
}

// failDownload persists the terminal failed state, conditioned on the row
// still being in fromStatus (the status ProcessDownload last observed it
// in) so a concurrent CancelDownload that already moved the row to a
// terminal state is not clobbered, then re-raises err so the Worker can
// count it. fromStatus must be StatusPending (admission-time failures,
// before the in_progress transition) or StatusInProgress (failures during
// or after execution).
func (s *Service) failDownload(downloadID string, fromStatus constants.DownloadStatus, progress int, cause error) error {
	message := cause.Error()
	updated, err := s.rawDownloads.UpdateStatusIfCurrentStatus(downloadID, fromStatus, constants.StatusFailed, progress, &message, nil)
	if err != nil {
		s.log.Error().Err(err).Str("downloadId", downloadID).Msg("failed to persist failed status")
		return cause
	}
	if !updated {
		return cause
	}
	if err := s.events.Append(downloadID, constants.EventDownloadFailed, message, nil); err != nil {
		s.log.Warn().Err(err).Str("downloadId", downloadID).Msg("failed to append download:failed event")
	}
	return cause
}

// GetDownloadStatus returns a download and its linked media, if any.
func (s *Service) GetDownloadStatus(id string) (*DownloadDetail, error) {
	download, err := s.downloads.FindByID(id)
	if err != nil {
		return nil, apperr.Wrap("queue.GetDownloadStatus", err)
	}
	if download == nil {
		return nil, apperr.NewWithKind("queue.GetDownloadStatus", apperr.ErrNotFound, apperr.KindNotFound, "download not found")
	}

	detail := &DownloadDetail{Download: download}
	if download.MediaID != nil {
		m, err := s.media.FindByID(*download.MediaID)
		if err != nil {
			return nil, apperr.Wrap("queue.GetDownloadStatus", err)
		}
		detail.Media = m
	}
	return detail, nil
}

// ListDownloads returns downloads, optionally filtered by status, paginated.
func (s *Service) ListDownloads(status *constants.DownloadStatus, page, pageSize int) ([]*storage.Download, int, error) {
	if pageSize > 100 || pageSize < 1 || page < 1 {
		return nil, 0, apperr.NewWithKind("queue.ListDownloads", apperr.ErrBadPagination, apperr.KindBadPagination, "invalid pagination parameters")
	}

	if status != nil {
		downloads, err := s.downloads.FindByStatus(*status, page, pageSize)
		if err != nil {
			return nil, 0, apperr.Wrap("queue.ListDownloads", err)
		}
		total, err := s.downloads.CountByStatus(*status)
		if err != nil {
			return nil, 0, apperr.Wrap("queue.ListDownloads", err)
		}
		return downloads, total, nil
	}

	downloads, err := s.downloads.FindAll(page, pageSize)
	if err != nil {
		return nil, 0, apperr.Wrap("queue.ListDownloads", err)
	}
	total, err := s.downloads.CountAll()
	if err != nil {
		return nil, 0, apperr.Wrap("queue.ListDownloads", err)
	}
	return downloads, total, nil
}

// GetDownloadLogs returns paginated log entries for a download, verifying it
// exists and that pagination is in range first.
func (s *Service) GetDownloadLogs(id string, page, limit int) ([]*storage.DownloadLog, error) {
	if page < 1 || limit < 1 || limit > 100 {
		return nil, apperr.NewWithKind("queue.GetDownloadLogs", apperr.ErrBadPagination, apperr.KindBadPagination, "invalid pagination parameters")
	}

	download, err := s.downloads.FindByID(id)
	if err != nil {
		return nil, apperr.Wrap("queue.GetDownloadLogs", err)
	}
	if download == nil {
		return nil, apperr.NewWithKind("queue.GetDownloadLogs", apperr.ErrNotFound, apperr.KindNotFound, "download not found")
	}

	return s.logs.FindByDownloadID(id, page, limit)
}

// CancelDownload cancels a pending or in-progress download. For an
// in-progress download it kills the subprocess first; the terminal write
// that follows is unconditional, so it always wins the race against the
// Worker's own terminal write.
func (s *Service) CancelDownload(id string) error {
	download, err := s.rawDownloads.FindByID(id)
	if err != nil {
		return apperr.Wrap("queue.CancelDownload", err)
	}
	if download == nil {
		return apperr.NewWithKind("queue.CancelDownload", apperr.ErrNotFound, apperr.KindNotFound, "download not found")
	}
	if download.Status != constants.StatusPending && download.Status != constants.StatusInProgress {
		return apperr.NewWithKind("queue.CancelDownload", apperr.ErrInvalidState, apperr.KindInvalidState, "download is not cancellable")
	}

	if download.Status == constants.StatusInProgress && download.ProcessID != nil {
		if err := s.executor.Cancel(*download.ProcessID); err != nil {
			s.log.Warn().Err(err).Str("downloadId", id).Msg("failed to kill subprocess on cancel")
		}
	}

	message := "Cancelled by user"
	if err := s.rawDownloads.UpdateStatus(id, constants.StatusCancelled, download.Progress, &message, nil); err != nil {
		return apperr.Wrap("queue.CancelDownload", err)
	}
	return s.events.Append(id, constants.EventDownloadCancelled, message, nil)
}

// RetryDownload resets a failed or cancelled download back to pending.
func (s *Service) RetryDownload(id string) error {
	download, err := s.rawDownloads.FindByID(id)
	if err != nil {
		return apperr.Wrap("queue.RetryDownload", err)
	}
	if download == nil {
		return apperr.NewWithKind("queue.RetryDownload", apperr.ErrNotFound, apperr.KindNotFound, "download not found")
	}
	if download.Status != constants.StatusFailed && download.Status != constants.StatusCancelled {
		return apperr.NewWithKind("queue.RetryDownload", apperr.ErrInvalidState, apperr.KindInvalidState, "download is not retryable")
	}

	return s.rawDownloads.UpdateStatus(id, constants.StatusPending, 0, nil, nil)
}

// MoveToDestination relocates a completed download's file from tempDir to
// destDir, atomically, preserving its path relative to tempDir.
func (s *Service) MoveToDestination(id string) (string, error) {
	download, err := s.rawDownloads.FindByID(id)
	if err != nil {
		return "", apperr.Wrap("queue.MoveToDestination", err)
	}
	if download == nil {
		return "", apperr.NewWithKind("queue.MoveToDestination", apperr.ErrNotFound, apperr.KindNotFound, "download not found")
	}
	if download.Status != constants.StatusCompleted {
		return "", apperr.NewWithKind("queue.MoveToDestination", apperr.ErrInvalidState, apperr.KindInvalidState, "download is not completed")
	}
	if download.FilePath == nil || *download.FilePath == "" {
		return "", apperr.NewWithKind("queue.MoveToDestination", apperr.ErrInvalidState, apperr.KindInvalidState, "download has no file path")
	}
	if _, err := os.Stat(*download.FilePath); err != nil {
		return "", apperr.WrapWithMessage("queue.MoveToDestination", err, "file does not exist on disk")
	}

	rel, err := filepath.Rel(s.tempDir, *download.FilePath)
	if err != nil {
		rel = filepath.Base(*download.FilePath)
	}
	destPath := filepath.Join(s.destDir, rel)

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", apperr.Wrap("queue.MoveToDestination", err)
	}
	if err := os.Rename(*download.FilePath, destPath); err != nil {
		return "", apperr.Wrap("queue.MoveToDestination", err)
	}

	if err := s.rawDownloads.UpdateStatus(id, constants.StatusCompleted, download.Progress, nil, &destPath); err != nil {
		return "", apperr.Wrap("queue.MoveToDestination", err)
	}
	return destPath, nil
}

// UpdateMediaMetadata updates the enumerated editable fields on a media
// record. No-ops silently if fields is the zero value.
func (s *Service) UpdateMediaMetadata(id string, fields storage.MediaFields) error {
	m, err := s.rawMedia.FindByID(id)
	if err != nil {
		return apperr.Wrap("queue.UpdateMediaMetadata", err)
	}
	if m == nil {
		return apperr.NewWithKind("queue.UpdateMediaMetadata", apperr.ErrNotFound, apperr.KindNotFound, "media not found")
	}

	if fields.Title == nil && fields.Artist == nil && fields.Album == nil && fields.AlbumArtist == nil && fields.Year == nil {
		return nil
	}

	return s.rawMedia.UpdateMetadata(id, fields)
}

// GetMediaDetails reads a media record through the cache.
func (s *Service) GetMediaDetails(id string) (*storage.Media, error) {
	m, err := s.media.FindByID(id)
	if err != nil {
		return nil, apperr.Wrap("queue.GetMediaDetails", err)
	}
	if m == nil {
		return nil, apperr.NewWithKind("queue.GetMediaDetails", apperr.ErrNotFound, apperr.KindNotFound, "media not found")
	}
	return m, nil
}

// CleanupOrphanedFiles removes completed/failed downloads past the
// retention window (and their files) plus any media left with no
// referencing download. Individual failures are logged and skipped.
func (s *Service) CleanupOrphanedFiles(retentionDays int) (*CleanupResult, error) {
	result := &CleanupResult{}

	old, err := s.rawDownloads.FindOldCompleted(retentionDays)
	if err != nil {
		return nil, apperr.Wrap("queue.CleanupOrphanedFiles", err)
	}

	for _, d := range old {
		if d.FilePath != nil && *d.FilePath != "" {
			if info, err := os.Stat(*d.FilePath); err == nil {
				dir := filepath.Dir(*d.FilePath)
				if err := os.RemoveAll(dir); err != nil {
					s.log.Warn().Err(err).Str("downloadId", d.ID).Msg("failed to remove download directory during cleanup")
				} else {
					result.FilesDeleted++
					if info.Size() > 0 {
						result.BytesFreed += uint64(info.Size())
					}
				}
			}
		}
		if err := s.rawDownloads.Delete(d.ID); err != nil {
			s.log.Warn().Err(err).Str("downloadId", d.ID).Msg("failed to delete download row during cleanup")
			continue
		}
		result.DownloadsDeleted++
	}

	orphaned, err := s.rawMedia.FindOrphaned()
	if err != nil {
		return nil, apperr.Wrap("queue.CleanupOrphanedFiles", err)
	}
	for _, m := range orphaned {
		if err := s.rawMedia.Delete(m.ID); err != nil {
			s.log.Warn().Err(err).Str("mediaId", m.ID).Msg("failed to delete orphaned media during cleanup")
			continue
		}
		result.MediaDeleted++
	}

	return result, nil
}

// CleanupOldLogs delegates to the log repository's retention sweep.
func (s *Service) CleanupOldLogs(retentionDays int) (int, error) {
	n, err := s.logs.DeleteOldLogs(retentionDays)
	if err != nil {
		return 0, apperr.Wrap("queue.CleanupOldLogs", err)
	}
	return n, nil
}

// MarkStalledDownloads fails every in_progress download whose startedAt is
// older than timeoutMinutes, appending a download:stalled log entry.
func (s *Service) MarkStalledDownloads(timeoutMinutes int) (int, error) {
	stalled, err := s.rawDownloads.FindStalledInProgress(timeoutMinutes)
	if err != nil {
		return 0, apperr.Wrap("queue.MarkStalledDownloads", err)
	}

	count := 0
	message := strings.Builder{}
	for _, d := range stalled {
		message.Reset()
		message.WriteString("Download stalled after ")
		message.WriteString(strconv.Itoa(timeoutMinutes))
		message.WriteString(" minutes")
		msg := message.String()

		if err := s.rawDownloads.UpdateStatus(d.ID, constants.StatusFailed, d.Progress, &msg, nil); err != nil {
			s.log.Warn().Err(err).Str("downloadId", d.ID).Msg("failed to persist stalled status")
			continue
		}
		if err := s.events.Append(d.ID, constants.EventDownloadStalled, msg, nil); err != nil {
			s.log.Warn().Err(err).Str("downloadId", d.ID).Msg("failed to append download:stalled event")
		}
		count++
	}
	return count, nil
}

func (s *Service) threshold(downloadID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressThreshold[downloadID]
}

func (s *Service) setThreshold(downloadID string, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressThreshold[downloadID] = percent
}

func (s *Service) clearThreshold(downloadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.progressThreshold, downloadID)
}
