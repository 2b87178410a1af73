package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.MinStorageGB != 5 {
		t.Errorf("MinStorageGB = %v, want %v", cfg.MinStorageGB, 5)
	}
	if cfg.MaxPendingDownloads != 10 {
		t.Errorf("MaxPendingDownloads = %d, want %d", cfg.MaxPendingDownloads, 10)
	}
	if cfg.CleanupRetentionDays != 7 {
		t.Errorf("CleanupRetentionDays = %d, want %d", cfg.CleanupRetentionDays, 7)
	}
	if cfg.LogRetentionDays != 90 {
		t.Errorf("LogRetentionDays = %d, want %d", cfg.LogRetentionDays, 90)
	}
	if cfg.DownloadTimeoutMinutes != 60 {
		t.Errorf("DownloadTimeoutMinutes = %d, want %d", cfg.DownloadTimeoutMinutes, 60)
	}
	if cfg.PollIntervalMs != 2000 {
		t.Errorf("PollIntervalMs = %d, want %d", cfg.PollIntervalMs, 2000)
	}
	if cfg.StalledCheckIntervalMs != 300000 {
		t.Errorf("StalledCheckIntervalMs = %d, want %d", cfg.StalledCheckIntervalMs, 300000)
	}
	if cfg.CleanupIntervalMs != 604800000 {
		t.Errorf("CleanupIntervalMs = %d, want %d", cfg.CleanupIntervalMs, 604800000)
	}
	if cfg.DownloadTempDir == "" || cfg.DownloadDestDir == "" {
		t.Error("DownloadTempDir and DownloadDestDir should not be empty")
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() should not error for missing file: %v", err)
	}

	if cfg.MaxPendingDownloads != 10 {
		t.Errorf("should return defaults, got MaxPendingDownloads = %d", cfg.MaxPendingDownloads)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "trackforge.json")

	data := `{
		"downloadTempDir": "/data/tmp",
		"downloadDestDir": "/data/library",
		"minStorageGB": 10,
		"maxPendingDownloads": 25
	}`

	if err := os.WriteFile(filePath, []byte(data), 0644); err != nil {
		t.Fatalf("failed to seed config file: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DownloadTempDir != "/data/tmp" {
		t.Errorf("DownloadTempDir = %q, want %q", cfg.DownloadTempDir, "/data/tmp")
	}
	if cfg.MinStorageGB != 10 {
		t.Errorf("MinStorageGB = %v, want %v", cfg.MinStorageGB, 10)
	}
	if cfg.MaxPendingDownloads != 25 {
		t.Errorf("MaxPendingDownloads = %d, want %d", cfg.MaxPendingDownloads, 25)
	}
}

func TestLoad_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "trackforge.json")

	if err := os.WriteFile(filePath, []byte("not valid json {{{"), 0644); err != nil {
		t.Fatalf("failed to seed config file: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() should not error for corrupted file: %v", err)
	}

	if cfg.MaxPendingDownloads != 10 {
		t.Errorf("corrupted file should return defaults, got MaxPendingDownloads = %d", cfg.MaxPendingDownloads)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "trackforge.json")

	data := `{"minStorageGB": 5, "maxPendingDownloads": 10}`
	if err := os.WriteFile(filePath, []byte(data), 0644); err != nil {
		t.Fatalf("failed to seed config file: %v", err)
	}

	t.Setenv("TRACKFORGE_MIN_STORAGE_GB", "20")
	t.Setenv("TRACKFORGE_MAX_PENDING_DOWNLOADS", "3")
	t.Setenv("TRACKFORGE_DOWNLOAD_TEMP_DIR", "/override/tmp")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MinStorageGB != 20 {
		t.Errorf("MinStorageGB = %v, want %v (env override)", cfg.MinStorageGB, 20)
	}
	if cfg.MaxPendingDownloads != 3 {
		t.Errorf("MaxPendingDownloads = %d, want %d (env override)", cfg.MaxPendingDownloads, 3)
	}
	if cfg.DownloadTempDir != "/override/tmp" {
		t.Errorf("DownloadTempDir = %q, want %q (env override)", cfg.DownloadTempDir, "/override/tmp")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	cfg.MaxPendingDownloads = 42

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "trackforge.json"))
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}

	var saved Config
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("failed to unmarshal saved config: %v", err)
	}
	if saved.MaxPendingDownloads != 42 {
		t.Errorf("saved MaxPendingDownloads = %d, want %d", saved.MaxPendingDownloads, 42)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	cfg.DownloadTempDir = filepath.Join(dir, "tmp")
	cfg.DownloadDestDir = filepath.Join(dir, "library")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error: %v", err)
	}

	for _, d := range []string{cfg.DownloadTempDir, cfg.DownloadDestDir} {
		info, err := os.Stat(d)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", d, err)
		}
		if !info.IsDir() {
			t.Errorf("%q should be a directory", d)
		}
	}
}

func TestConfig_ThreadSafety(t *testing.T) {
	cfg := Default()
	cfg.filePath = filepath.Join(t.TempDir(), "trackforge.json")

	done := make(chan struct{})

	go func() {
		for i := 0; i < 100; i++ {
			cfg.Get()
		}
		close(done)
	}()

	for i := 0; i < 100; i++ {
		cfg.mu.Lock()
		cfg.MaxPendingDownloads = i
		cfg.mu.Unlock()
	}

	<-done
}
