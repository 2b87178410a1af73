// Package worker drives the FIFO download queue: one long-running main loop
// polling for the next pending download, plus two cron-scheduled sweeps for
// retention cleanup and stall detection.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"trackforge/internal/cache"
	"trackforge/internal/diskspace"
	"trackforge/internal/queue"
	"trackforge/internal/storage"
)

// State is the Worker's observable status, read concurrently by the
// external interface layer.
type State struct {
	IsRunning         bool
	CurrentDownloadID string
	LastProcessedAt   *time.Time
	ProcessedCount    int64
	ErrorCount        int64
}

// Config bundles the timing knobs the Worker is constructed with.
type Config struct {
	PollInterval          time.Duration
	ShutdownTimeout       time.Duration
	CleanupInterval       time.Duration
	StalledCheckInterval  time.Duration
	CleanupRetentionDays  int
	LogRetentionDays      int
	StalledTimeoutMinutes int
}

// Worker owns the main FIFO loop and the two periodic schedulers. Exactly
// one Worker runs per process; admission control and process tracking both
// assume a single processor.
type Worker struct {
	svc   *queue.Service
	raw   *storage.DownloadRepository
	store *cache.Store
	cfg   Config
	log   zerolog.Logger

	cron *cron.Cron

	mu    sync.RWMutex
	state State

	quit chan struct{}
	done chan struct{}
}

// New builds a Worker around svc, using raw for the never-cached
// FindNextPending poll and store for the expired-cache-entry sweep.
func New(svc *queue.Service, raw *storage.DownloadRepository, store *cache.Store, cfg Config, log zerolog.Logger) *Worker {
	return &Worker{
		svc:   svc,
		raw:   raw,
		store: store,
		cfg:   cfg,
		log:   log,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start runs the cleanup and stalled-check sweeps immediately, schedules
// their recurring runs via cron, and launches the main loop as a goroutine.
func (w *Worker) Start() {
	w.runCleanup()
	w.runStalledCheck()

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(everySpec(w.cfg.CleanupInterval), w.runCleanup); err != nil {
		w.log.Error().Err(err).Msg("failed to schedule cleanup sweep")
	}
	if _, err := w.cron.AddFunc(everySpec(w.cfg.StalledCheckInterval), w.runStalledCheck); err != nil {
		w.log.Error().Err(err).Msg("failed to schedule stalled-check sweep")
	}
	w.cron.Start()

	w.mu.Lock()
	w.state.IsRunning = true
	w.mu.Unlock()

	go w.loop()
}

// Stop sets a stop flag, clears both scheduler timers, and awaits the loop
// up to cfg.ShutdownTimeout. On timeout it returns regardless; any in-flight
// subprocess continues unattended and the stalled check picks the orphaned
// row up after restart.
func (w *Worker) Stop() {
	if w.cron != nil {
		ctx := w.cron.Stop()
		<-ctx.Done()
	}

	close(w.quit)

	select {
	case <-w.done:
	case <-time.After(w.cfg.ShutdownTimeout):
		w.log.Warn().Msg("worker shutdown timed out; in-flight subprocess left unattended")
	}

	w.mu.Lock()
	w.state.IsRunning = false
	w.mu.Unlock()
}

// State returns a snapshot of the Worker's observable status.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// loop is the main FIFO processing loop.
func (w *Worker) loop() {
	defer close(w.done)

	for {
		select {
		case <-w.quit:
			return
		default:
		}

		if w.tick() {
			select {
			case <-w.quit:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case <-w.quit:
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// tick runs one iteration of the loop body: find the next pending download
// and process it. It returns false only when no download was pending, so the
// caller knows whether to use the short post-work sleep or the longer idle
// poll interval; it returns true when a download was processed (regardless
// of outcome) and also after a failed pending-download query or a recovered
// panic, both of which first sleep 5s. A panic anywhere in the body,
// ProcessDownload included, is recovered and counted as an error.
func (w *Worker) tick() (processed bool) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("worker loop body panicked")
			w.mu.Lock()
			w.state.ErrorCount++
			w.mu.Unlock()
			processed = true
			time.Sleep(5 * time.Second)
		}
	}()

	next, err := w.raw.FindNextPending()
	if err != nil {
		w.log.Error().Err(err).Msg("failed to query next pending download")
		time.Sleep(5 * time.Second)
		return true
	}
	if next == nil {
		return false
	}

	w.mu.Lock()
	w.state.CurrentDownloadID = next.ID
	w.mu.Unlock()

	err = w.svc.ProcessDownload(context.Background(), next.ID)

	now := time.Now()
	w.mu.Lock()
	w.state.CurrentDownloadID = ""
	w.state.LastProcessedAt = &now
	if err != nil {
		w.state.ErrorCount++
	} else {
		w.state.ProcessedCount++
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Error().Err(err).Str("downloadId", next.ID).Msg("download processing failed")
	}

	return true
}

// runCleanup runs CleanupOrphanedFiles and CleanupOldLogs. Failures are
// logged but never surfaced; these tasks are self-healing on the next run.
func (w *Worker) runCleanup() {
	result, err := w.svc.CleanupOrphanedFiles(w.cfg.CleanupRetentionDays)
	if err != nil {
		w.log.Error().Err(err).Msg("orphan cleanup sweep failed")
	} else {
		w.log.Info().
			Int("downloadsDeleted", result.DownloadsDeleted).
			Int("mediaDeleted", result.MediaDeleted).
			Int("filesDeleted", result.FilesDeleted).
			Str("bytesFreed", diskspace.HumanizeBytes(result.BytesFreed)).
			Msg("orphan cleanup sweep completed")
	}

	n, err := w.svc.CleanupOldLogs(w.cfg.LogRetentionDays)
	if err != nil {
		w.log.Error().Err(err).Msg("log retention sweep failed")
	} else {
		w.log.Info().Int("deleted", n).Msg("log retention sweep completed")
	}

	if w.store != nil {
		if n, err := w.store.Cleanup(); err != nil {
			w.log.Error().Err(err).Msg("expired cache entry sweep failed")
		} else if n > 0 {
			w.log.Info().Int("removed", n).Msg("expired cache entries removed")
		}
	}
}

// runStalledCheck runs MarkStalledDownloads. Failures are logged but never
// surfaced.
func (w *Worker) runStalledCheck() {
	n, err := w.svc.MarkStalledDownloads(w.cfg.StalledTimeoutMinutes)
	if err != nil {
		w.log.Error().Err(err).Msg("stalled-download sweep failed")
		return
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("marked stalled downloads as failed")
	}
}

// everySpec renders a cron.ParseStandard-compatible "@every" spec from a
// duration, falling back to a sane floor so a misconfigured zero interval
// never spins the scheduler.
func everySpec(d time.Duration) string {
	if d <= 0 {
		d = time.Minute
	}
	return "@every " + d.String()
}
