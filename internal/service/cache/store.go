// Package cache persists query results keyed by a fingerprint of the exact
// query text, with TTL expiry evaluated at read time.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/fsx"
)

const entryExt = ".json"

// Fingerprint derives the cache key from the exact query text. No
// whitespace or case normalization: textually different queries are
// distinct entries even when semantically identical.
func Fingerprint(queryText string) string {
	h := sha256.Sum256([]byte(queryText))
	return hex.EncodeToString(h[:])
}

// FileStore is one profile's result cache: one JSON file per key under a
// profile-scoped directory. Implements domain.ResultCache.
type FileStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
	remove func(string) error

	mu         sync.RWMutex
	enabled    bool
	ttlSeconds int

	hits   atomic.Int64
	misses atomic.Int64
}

var _ domain.ResultCache = (*FileStore)(nil)

// NewFileStore creates a FileStore writing entries under dir.
func NewFileStore(dir string, enabled bool, ttlSeconds int, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		dir:        dir,
		enabled:    enabled,
		ttlSeconds: ttlSeconds,
		logger:     logger.With("component", "result-cache"),
		now:        time.Now,
		remove:     os.Remove,
	}
}

// configure updates policy without resetting hit/miss counters. The manager
// calls this when a profile resolves with changed cache settings.
func (s *FileStore) configure(enabled bool, ttlSeconds int) {
	s.mu.Lock()
	s.enabled = enabled
	s.ttlSeconds = ttlSeconds
	s.mu.Unlock()
}

func (s *FileStore) policy() (bool, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled, s.ttlSeconds
}

func (s *FileStore) entryPath(queryText string) string {
	return filepath.Join(s.dir, Fingerprint(queryText)+entryExt)
}

// Get returns the cached result for the exact query text. A disabled cache
// always misses without touching persisted entries. Expiry is re-evaluated
// on every read; stale and corrupt entries are misses.
func (s *FileStore) Get(queryText string) (*domain.QueryResult, bool) {
	enabled, _ := s.policy()
	if !enabled {
		s.misses.Add(1)
		return nil, false
	}

	path := s.entryPath(queryText)
	data, err := os.ReadFile(path) //nolint:gosec // path derived from a hash
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("cache read failed", "path", path, "error", err)
		}
		s.misses.Add(1)
		return nil, false
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		corrupt := domain.ErrCorruptEntry("cache entry %s: %v", filepath.Base(path), err)
		s.logger.Warn("cache entry corrupt", "path", path, "error", corrupt)
		s.misses.Add(1)
		return nil, false
	}

	if entry.Expired(s.now()) {
		// Lazy expiry: drop the stale file now that it has been observed.
		if err := s.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("stale cache entry not removed", "path", path, "error", err)
		}
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	result := entry.Data
	result.Cached = true
	return &result, true
}

// Set persists the result under the query's fingerprint. A disabled cache
// makes this a no-op. The write is atomic or not attempted at all.
func (s *FileStore) Set(queryText string, result *domain.QueryResult) error {
	enabled, ttl := s.policy()
	if !enabled || result == nil {
		return nil
	}

	stored := *result
	stored.Cached = false
	entry := domain.CacheEntry{
		Data:       stored,
		Timestamp:  s.now(),
		TTLSeconds: ttl,
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		return domain.ErrCacheWrite("encode cache entry: %v", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return domain.ErrCacheWrite("create cache directory %s: %v", s.dir, err)
	}
	if err := fsx.WriteFileAtomic(s.entryPath(queryText), data, 0o644); err != nil {
		return domain.ErrCacheWrite("write cache entry: %v", err)
	}
	return nil
}

// Clear deletes every persisted entry. Per-entry failures are counted, never
// propagated, and never abort the remaining deletions. Clearing works even
// while the cache is disabled.
func (s *FileStore) Clear() domain.CacheClearStats {
	stats := domain.CacheClearStats{}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("cache clear: directory unreadable", "dir", s.dir, "error", err)
		}
		return stats
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entryExt) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := s.remove(path); err != nil {
			stats.Errors++
			s.logger.Warn("cache clear: entry not removed", "path", path, "error", err)
			continue
		}
		stats.Deleted++
	}
	s.logger.Info("cache cleared", "dir", s.dir, "deleted", stats.Deleted, "errors", stats.Errors)
	return stats
}

// Stats combines in-memory hit/miss counters with an on-disk scan. Size
// counts parseable entries regardless of freshness; corrupt files are
// counted separately and never crash the pass.
func (s *FileStore) Stats() domain.CacheStats {
	stats := domain.CacheStats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return stats
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entryExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name())) //nolint:gosec // scanning own cache dir
		if err != nil {
			stats.Corrupt++
			continue
		}
		var entry domain.CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			stats.Corrupt++
			continue
		}
		stats.Size++
	}
	return stats
}
