// Package cached wraps the storage repositories with a TTL-keyed read cache.
// Write methods always pass straight through to the underlying repository;
// only reads are ever served from cache, and invalidation is purely
// TTL-based. FindNextPending, FindOldCompleted, and FindStalledInProgress
// are deliberately excluded: the worker loop needs fresh reads, so its
// callers use the underlying storage repository directly instead of going
// through this package.
package cached

import (
	"encoding/json"
	"fmt"
	"time"

	"trackforge/internal/cache"
	"trackforge/internal/constants"
	"trackforge/internal/storage"
)

// getOrLoad serves key from the cache store if present and unexpired,
// otherwise calls load, caches its result for ttl, and returns it. A nil
// result from load (not-found) is never cached, so a subsequent write can be
// observed immediately.
func getOrLoad[T any](store *cache.Store, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var zero T

	if raw, ok := store.Get(key); ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		_ = store.Delete(key)
	}

	value, err := load()
	if err != nil {
		return zero, err
	}

	if data, err := json.Marshal(value); err == nil && string(data) != "null" {
		_ = store.Set(key, data, ttl)
	}
	return value, nil
}

// CachedDownloadRepository wraps storage.DownloadRepository, serving
// FindByID/FindByStatus/FindAll/CountAll/CountByStatus from cache.
type CachedDownloadRepository struct {
	repo  *storage.DownloadRepository
	store *cache.Store
}

// NewCachedDownloadRepository wraps repo with a cache keyed through store.
func NewCachedDownloadRepository(repo *storage.DownloadRepository, store *cache.Store) *CachedDownloadRepository {
	return &CachedDownloadRepository{repo: repo, store: store}
}

// Create bypasses the cache and delegates straight through.
func (r *CachedDownloadRepository) Create(d *storage.Download) error {
	return r.repo.Create(d)
}

// FindByID is cache-backed, keyed per id.
func (r *CachedDownloadRepository) FindByID(id string) (*storage.Download, error) {
	return getOrLoad(r.store, fmt.Sprintf("download:id:%s", id), constants.DownloadCacheTTL, func() (*storage.Download, error) {
		return r.repo.FindByID(id)
	})
}

// FindActiveByNormalizedURL bypasses the cache: admission checks must see
// the latest row to correctly reject or accept a concurrent duplicate.
func (r *CachedDownloadRepository) FindActiveByNormalizedURL(normalizedURL string) (*storage.Download, error) {
	return r.repo.FindActiveByNormalizedURL(normalizedURL)
}

// FindByStatus is cache-backed, keyed per status/page/pageSize.
func (r *CachedDownloadRepository) FindByStatus(status constants.DownloadStatus, page, pageSize int) ([]*storage.Download, error) {
	key := fmt.Sprintf("download:status:%s:%d:%d", status, page, pageSize)
	return getOrLoad(r.store, key, constants.DownloadCacheTTL, func() ([]*storage.Download, error) {
		return r.repo.FindByStatus(status, page, pageSize)
	})
}

// FindAll is cache-backed, keyed per page/pageSize.
func (r *CachedDownloadRepository) FindAll(page, pageSize int) ([]*storage.Download, error) {
	key := fmt.Sprintf("download:all:%d:%d", page, pageSize)
	return getOrLoad(r.store, key, constants.DownloadCacheTTL, func() ([]*storage.Download, error) {
		return r.repo.FindAll(page, pageSize)
	})
}

// CountAll is cache-backed.
func (r *CachedDownloadRepository) CountAll() (int, error) {
	return getOrLoad(r.store, "download:count:all", constants.DownloadCacheTTL, r.repo.CountAll)
}

// CountByStatus is cache-backed, keyed per status.
func (r *CachedDownloadRepository) CountByStatus(status constants.DownloadStatus) (int, error) {
	key := fmt.Sprintf("download:count:%s", status)
	return getOrLoad(r.store, key, constants.DownloadCacheTTL, func() (int, error) {
		return r.repo.CountByStatus(status)
	})
}

// UpdateStatus bypasses the cache and delegates straight through.
func (r *CachedDownloadRepository) UpdateStatus(id string, status constants.DownloadStatus, progress int, errorMessage, filePath *string) error {
	return r.repo.UpdateStatus(id, status, progress, errorMessage, filePath)
}

// UpdateStatusIfInProgress bypasses the cache and delegates straight through.
func (r *CachedDownloadRepository) UpdateStatusIfInProgress(id string, status constants.DownloadStatus, progress int, errorMessage, filePath *string) (bool, error) {
	return r.repo.UpdateStatusIfInProgress(id, status, progress, errorMessage, filePath)
}

// UpdateProcessID bypasses the cache and delegates straight through.
func (r *CachedDownloadRepository) UpdateProcessID(id string, processID string) error {
	return r.repo.UpdateProcessID(id, processID)
}

// UpdateMediaID bypasses the cache and delegates straight through.
func (r *CachedDownloadRepository) UpdateMediaID(id string, mediaID string) error {
	return r.repo.UpdateMediaID(id, mediaID)
}

// Delete bypasses the cache and delegates straight through.
func (r *CachedDownloadRepository) Delete(id string) error {
	return r.repo.Delete(id)
}

// DeleteAll bypasses the cache and delegates straight through.
func (r *CachedDownloadRepository) DeleteAll() error {
	return r.repo.DeleteAll()
}

// CachedMediaRepository wraps storage.MediaRepository, serving FindByID/
// FindByProviderAndProviderID/FindAll/CountAll from cache.
type CachedMediaRepository struct {
	repo  *storage.MediaRepository
	store *cache.Store
}

// NewCachedMediaRepository wraps repo with a cache keyed through store.
func NewCachedMediaRepository(repo *storage.MediaRepository, store *cache.Store) *CachedMediaRepository {
	return &CachedMediaRepository{repo: repo, store: store}
}

// Create bypasses the cache and delegates straight through.
func (r *CachedMediaRepository) Create(m *storage.Media) error {
	return r.repo.Create(m)
}

// FindByID is cache-backed, keyed per id.
func (r *CachedMediaRepository) FindByID(id string) (*storage.Media, error) {
	return getOrLoad(r.store, fmt.Sprintf("media:id:%s", id), constants.MediaCacheTTL, func() (*storage.Media, error) {
		return r.repo.FindByID(id)
	})
}

// FindByProviderAndProviderID is cache-backed, keyed per natural key.
func (r *CachedMediaRepository) FindByProviderAndProviderID(provider constants.Provider, providerID string) (*storage.Media, error) {
	key := fmt.Sprintf("media:provider:%s:%s", provider, providerID)
	return getOrLoad(r.store, key, constants.MediaCacheTTL, func() (*storage.Media, error) {
		return r.repo.FindByProviderAndProviderID(provider, providerID)
	})
}

// FindAll is cache-backed.
func (r *CachedMediaRepository) FindAll() ([]*storage.Media, error) {
	return getOrLoad(r.store, "media:all", constants.MediaCacheTTL, r.repo.FindAll)
}

// CountAll is cache-backed.
func (r *CachedMediaRepository) CountAll() (int, error) {
	return getOrLoad(r.store, "media:count:all", constants.MediaCacheTTL, r.repo.CountAll)
}

// UpdateMetadata bypasses the cache and delegates straight through.
func (r *CachedMediaRepository) UpdateMetadata(id string, fields storage.MediaFields) error {
	return r.repo.UpdateMetadata(id, fields)
}

// Delete bypasses the cache and delegates straight through.
func (r *CachedMediaRepository) Delete(id string) error {
	return r.repo.Delete(id)
}

// DeleteAll bypasses the cache and delegates straight through.
func (r *CachedMediaRepository) DeleteAll() error {
	return r.repo.DeleteAll()
}

// FindOrphaned bypasses the cache: cleanup must see the current reference
// graph, not a stale snapshot.
func (r *CachedMediaRepository) FindOrphaned() ([]*storage.Media, error) {
	return r.repo.FindOrphaned()
}

// CachedDownloadLogRepository wraps storage.DownloadLogRepository, serving
// FindByDownloadID/CountByDownloadID from cache.
type CachedDownloadLogRepository struct {
	repo  *storage.DownloadLogRepository
	store *cache.Store
}

// NewCachedDownloadLogRepository wraps repo with a cache keyed through store.
func NewCachedDownloadLogRepository(repo *storage.DownloadLogRepository, store *cache.Store) *CachedDownloadLogRepository {
	return &CachedDownloadLogRepository{repo: repo, store: store}
}

// Create bypasses the cache and delegates straight through.
func (r *CachedDownloadLogRepository) Create(entry storage.NewDownloadLog) (*storage.DownloadLog, error) {
	return r.repo.Create(entry)
}

// FindByDownloadID is cache-backed, keyed per downloadID/page/pageSize.
func (r *CachedDownloadLogRepository) FindByDownloadID(downloadID string, page, pageSize int) ([]*storage.DownloadLog, error) {
	key := fmt.Sprintf("downloadlog:by:%s:%d:%d", downloadID, page, pageSize)
	return getOrLoad(r.store, key, constants.DownloadLogCacheTTL, func() ([]*storage.DownloadLog, error) {
		return r.repo.FindByDownloadID(downloadID, page, pageSize)
	})
}

// CountByDownloadID is cache-backed, keyed per downloadID.
func (r *CachedDownloadLogRepository) CountByDownloadID(downloadID string) (int, error) {
	key := fmt.Sprintf("downloadlog:count:%s", downloadID)
	return getOrLoad(r.store, key, constants.DownloadLogCacheTTL, func() (int, error) {
		return r.repo.CountByDownloadID(downloadID)
	})
}

// DeleteOldLogs bypasses the cache and delegates straight through.
func (r *CachedDownloadLogRepository) DeleteOldLogs(retentionDays int) (int, error) {
	return r.repo.DeleteOldLogs(retentionDays)
}
