// Command trackforged runs the download orchestration engine: it loads
// configuration, opens the database and cache store, starts the Worker's
// FIFO loop and periodic schedulers, and serves the HTTP contract surface
// until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackforge/internal/cache"
	"trackforge/internal/cached"
	"trackforge/internal/config"
	"trackforge/internal/eventlog"
	"trackforge/internal/fetch"
	"trackforge/internal/httpapi"
	"trackforge/internal/logger"
	"trackforge/internal/metadata"
	"trackforge/internal/queue"
	"trackforge/internal/storage"
	"trackforge/internal/worker"
)

func main() {
	dataDir := flag.String("data-dir", "./data", "directory holding the database, cache, and logs")
	flag.Parse()

	if err := logger.Init(*dataDir); err != nil {
		os.Exit(exitOnLoggerFailure(err))
	}
	log := logger.Log

	cfg, err := config.Load(*dataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal().Err(err).Msg("failed to create temp/dest directories")
	}
	if err := cfg.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to persist configuration defaults")
	}

	db, err := storage.New(*dataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	store := cache.NewStore(db.Conn())
	if err := store.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate cache store")
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
		Probe:                metadata.NewDriver(cfg.ExtractorPath),
		Executor:             fetch.NewExecutor(cfg.ExtractorPath, cfg.FfmpegPath),
		TempDir:              cfg.DownloadTempDir,
		DestDir:              cfg.DownloadDestDir,
		MinStorageGB:         cfg.MinStorageGB,
		MaxPendingDownloads:  cfg.MaxPendingDownloads,
		ProgressLogThreshold: cfg.ProgressLogThreshold,
		Log:                  log,
	})

	w := worker.New(svc, rawDownloads, store, worker.Config{
		PollInterval:          time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		ShutdownTimeout:       30 * time.Second,
		CleanupInterval:       time.Duration(cfg.CleanupIntervalMs) * time.Millisecond,
		StalledCheckInterval:  time.Duration(cfg.StalledCheckIntervalMs) * time.Millisecond,
		CleanupRetentionDays:  cfg.CleanupRetentionDays,
		LogRetentionDays:      cfg.LogRetentionDays,
		StalledTimeoutMinutes: cfg.DownloadTimeoutMinutes,
	}, log)
	w.Start()
	defer w.Stop()

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewServer(svc).Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown did not complete cleanly")
	}
}

// exitOnLoggerFailure reports a logger init failure on stderr, since the
// structured logger isn't available yet to report it itself, and returns
// the process exit code to use.
func exitOnLoggerFailure(err error) int {
	os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
	return 1
}
