package cache

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

// Sweeper deletes expired entries across every profile cache directory.
// Expiry stays lazy on the read path; sweeping only reclaims disk for
// entries nobody re-reads.
type Sweeper struct {
	root   string
	logger *slog.Logger
	cron   *cron.Cron
	now    func() time.Time
}

// SweepStats reports one sweep pass.
type SweepStats struct {
	Removed int
	Errors  int
}

// NewSweeper creates a Sweeper over the cache root.
func NewSweeper(root string, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		root:   root,
		logger: logger.With("component", "cache-sweeper"),
		cron:   cron.New(),
		now:    time.Now,
	}
}

// SweepOnce walks every profile directory and removes expired entries.
// Corrupt files are left in place so stats keep reporting them.
func (s *Sweeper) SweepOnce() SweepStats {
	stats := SweepStats{}
	profiles, err := os.ReadDir(s.root)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("sweep: cache root unreadable", "root", s.root, "error", err)
		}
		return stats
	}
	for _, p := range profiles {
		if !p.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, p.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			stats.Errors++
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), entryExt) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			data, err := os.ReadFile(path) //nolint:gosec // scanning own cache dirs
			if err != nil {
				stats.Errors++
				continue
			}
			var entry domain.CacheEntry
			if err := json.Unmarshal(data, &entry); err != nil {
				continue
			}
			if !entry.Expired(s.now()) {
				continue
			}
			if err := os.Remove(path); err != nil {
				stats.Errors++
				continue
			}
			stats.Removed++
		}
	}
	s.logger.Info("cache sweep complete", "removed", stats.Removed, "errors", stats.Errors)
	return stats
}

// Start schedules recurring sweeps. The schedule uses cron syntax,
// including descriptors like "@every 1h".
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.SweepOnce() }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("cache sweeper started", "schedule", schedule)
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	s.logger.Info("cache sweeper stopped")
}
