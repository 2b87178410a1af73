package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

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

func setupServer(t *testing.T) (*Server, *storage.DownloadRepository) {
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
		Probe:                metadata.NewDriver("no-such-extractor-binary"),
		Executor:             fetch.NewExecutor("no-such-extractor-binary", "ffmpeg"),
		TempDir:              tempDir,
		DestDir:              destDir,
		MinStorageGB:         0,
		MaxPendingDownloads:  10,
		ProgressLogThreshold: constants.ProgressLogThreshold,
		Log:                  zerolog.Nop(),
	})

	return NewServer(svc), rawDownloads
}

func TestHandleHealth(t *testing.T) {
	s, _ := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want %q", body["status"], "ok")
	}
}

func TestHandleEnqueue_Created(t *testing.T) {
	s, _ := setupServer(t)
	body, _ := json.Marshal(map[string]string{"url": "https://host.tld/track/x"})
	req := httptest.NewRequest(http.MethodPost, "/api/downloads/", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp["status"] != string(constants.StatusPending) {
		t.Errorf("status = %v, want pending", resp["status"])
	}
}

func TestHandleEnqueue_InvalidURLReturns400(t *testing.T) {
	s, _ := setupServer(t)
	body, _ := json.Marshal(map[string]string{"url": "https://unrelated.example.com"})
	req := httptest.NewRequest(http.MethodPost, "/api/downloads/", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGet_NotFoundReturns404(t *testing.T) {
	s, _ := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/downloads/no-such-id", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleCancel_PendingDownload(t *testing.T) {
	s, raw := setupServer(t)

	d := &storage.Download{URL: "https://host.tld/track/x", NormalizedURL: "https://host.tld/track/x", Status: constants.StatusPending}
	if err := raw.Create(d); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/downloads/"+d.ID+"/cancel", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	updated, err := raw.FindByID(d.ID)
	if err != nil {
		t.Fatalf("FindByID() error: %v", err)
	}
	if updated.Status != constants.StatusCancelled {
		t.Errorf("Status = %q, want cancelled", updated.Status)
	}
}

func TestHandleUpdateMedia_RejectsImmutableField(t *testing.T) {
	s, _ := setupServer(t)
	body, _ := json.Marshal(map[string]string{"provider": "A", "title": "x"})
	req := httptest.NewRequest(http.MethodPatch, "/api/downloads/media/some-id", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp["error"] != "immutable_field" {
		t.Errorf("error = %v, want immutable_field", resp["error"])
	}
}

func TestHandleList_RejectsOversizedPageSize(t *testing.T) {
	s, _ := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/downloads/?pageSize=101", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
