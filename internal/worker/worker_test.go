package worker

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trackforge/internal/cache"
	"trackforge/internal/cached"
	"trackforge/internal/constants"
	"trackforge/internal/eventlog"
	"trackforge/internal/fetch"
	"trackforge/internal/metadata"
	"trackforge/internal/queue"
	"trackforge/internal/storage"
)

const testTrackURL = "https://host.tld/track/x"

// fakeExtractorScript writes an executable shell script standing in for the
// Extractor binary, the way internal/queue's tests drive deterministic
// subprocess output without a network dependency.
func fakeExtractorScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake extractor scripts require a POSIX shell")
	}
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake extractor script: %v", err)
	}
	return path
}

type testHarness struct {
	worker *Worker
	raw    *storage.DownloadRepository
}

func setupWorker(t *testing.T, extractorPath string, cfg Config) *testHarness {
	t.Helper()

	dataDir := t.TempDir()
	tempDir := filepath.Join(dataDir, "tmp")
	destDir := filepath.Join(dataDir, "dest")
	for _, d := range []string{tempDir, destDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("failed to create dir %s: %v", d, err)
		}
	}

	db, err := storage.New(dataDir)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := cache.NewStore(db.Conn())
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate cache store: %v", err)
	}

	rawDownloads := storage.NewDownloadRepository(db)
	rawMedia := storage.NewMediaRepository(db)
	rawLogs := storage.NewDownloadLogRepository(db)

	svc := queue.New(queue.Deps{
		Downloads:            cached.NewCachedDownloadRepository(rawDownloads, store),
		Media:                cached.NewCachedMediaRepository(rawMedia, store),
		Logs:                 cached.NewCachedDownloadLogRepository(rawLogs, store),
		RawDownloads:         rawDownloads,
		RawMedia:             rawMedia,
		Events:               eventlog.NewWriter(rawLogs),
		Probe:                metadata.NewDriver(extractorPath),
		Executor:             fetch.NewExecutor(extractorPath, "ffmpeg"),
		TempDir:              tempDir,
		DestDir:              destDir,
		MinStorageGB:         0,
		MaxPendingDownloads:  10,
		ProgressLogThreshold: constants.ProgressLogThreshold,
		Log:                  zerolog.Nop(),
	})

	w := New(svc, rawDownloads, store, cfg, zerolog.Nop())
	return &testHarness{worker: w, raw: rawDownloads}
}

func waitFor(t *testing.T, timeout time.Duration, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWorker_ProcessesDownloadsInFIFOOrder(t *testing.T) {
	script := fakeExtractorScript(t, t.TempDir(), "extractor.sh", "echo '[download] 100%'\nexit 0")
	h := setupWorker(t, script, Config{
		PollInterval:          20 * time.Millisecond,
		ShutdownTimeout:       time.Second,
		CleanupInterval:       time.Hour,
		StalledCheckInterval:  time.Hour,
		CleanupRetentionDays:  7,
		LogRetentionDays:      90,
		StalledTimeoutMinutes: 60,
	})

	urls := []string{
		"https://host.tld/track/a",
		"https://host.tld/track/b",
		"https://host.tld/track/c",
	}
	var ids []string
	for _, u := range urls {
		result, err := h.worker.svc.Enqueue(context.Background(), u)
		if err != nil {
			t.Fatalf("Enqueue(%q) error: %v", u, err)
		}
		ids = append(ids, result.DownloadID)
	}

	h.worker.Start()
	defer h.worker.Stop()

	waitFor(t, 5*time.Second, func() bool {
		return h.worker.State().ProcessedCount >= int64(len(ids))
	})

	var finishedAt []time.Time
	for _, id := range ids {
		d, err := h.raw.FindByID(id)
		if err != nil {
			t.Fatalf("FindByID() error: %v", err)
		}
		if d.Status != constants.StatusCompleted {
			t.Fatalf("download %s status = %q, want completed", id, d.Status)
		}
		finishedAt = append(finishedAt, *d.FinishedAt)
	}

	for i := 1; i < len(finishedAt); i++ {
		if finishedAt[i].Before(finishedAt[i-1]) {
			t.Errorf("download %d finished before download %d; expected FIFO order", i, i-1)
		}
	}
}

// TestWorker_MarkStalledRunsOnStart relies on a zero-minute stall timeout so
// that a download started moments ago already counts as stalled by the
// sweep Start runs immediately, before the first scheduled interval.
func TestWorker_MarkStalledRunsOnStart(t *testing.T) {
	h := setupWorker(t, "no-such-extractor-binary", Config{
		PollInterval:          time.Hour,
		ShutdownTimeout:       time.Second,
		CleanupInterval:       time.Hour,
		StalledCheckInterval:  time.Hour,
		CleanupRetentionDays:  7,
		LogRetentionDays:      90,
		StalledTimeoutMinutes: 0,
	})

	result, err := h.worker.svc.Enqueue(context.Background(), testTrackURL)
	if err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}
	if err := h.raw.UpdateStatus(result.DownloadID, constants.StatusInProgress, 10, nil, nil); err != nil {
		t.Fatalf("UpdateStatus() error: %v", err)
	}
	if err := h.raw.UpdateProcessID(result.DownloadID, "1234"); err != nil {
		t.Fatalf("UpdateProcessID() error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	h.worker.Start()
	defer h.worker.Stop()

	waitFor(t, time.Second, func() bool {
		d, err := h.raw.FindByID(result.DownloadID)
		return err == nil && d.Status == constants.StatusFailed
	})
}

func TestWorker_StateReportsIdleWhenQueueEmpty(t *testing.T) {
	h := setupWorker(t, "no-such-extractor-binary", Config{
		PollInterval:          10 * time.Millisecond,
		ShutdownTimeout:       time.Second,
		CleanupInterval:       time.Hour,
		StalledCheckInterval:  time.Hour,
		CleanupRetentionDays:  7,
		LogRetentionDays:      90,
		StalledTimeoutMinutes: 60,
	})

	h.worker.Start()
	defer h.worker.Stop()

	waitFor(t, time.Second, func() bool { return h.worker.State().IsRunning })

	if h.worker.State().CurrentDownloadID != "" {
		t.Errorf("CurrentDownloadID = %q, want empty with no pending downloads", h.worker.State().CurrentDownloadID)
	}
}
