package cache

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// profileDirName maps a profile name to a filesystem-safe directory name.
func profileDirName(profileName string) string {
	if profileName == "" {
		profileName = domain.DefaultProfileName
	}
	return unsafePathChars.ReplaceAllString(profileName, "_")
}

// Manager hands out per-profile FileStores under one cache root, so each
// tenant's entries stay isolated. Stores are kept per profile for the
// process lifetime so hit/miss counters survive across calls; policy
// (enabled, TTL) is refreshed from the resolved config on every request.
// Implements domain.CacheProvider.
type Manager struct {
	root   string
	logger *slog.Logger

	mu     sync.Mutex
	stores map[string]*FileStore
}

var _ domain.CacheProvider = (*Manager)(nil)

// NewManager creates a Manager rooted at root.
func NewManager(root string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		root:   root,
		logger: logger,
		stores: make(map[string]*FileStore),
	}
}

// ForProfile returns the cache bound to cfg's profile.
func (m *Manager) ForProfile(cfg *domain.ResolvedConfig) domain.ResultCache {
	dirName := profileDirName(cfg.ProfileName)

	m.mu.Lock()
	defer m.mu.Unlock()
	store, ok := m.stores[dirName]
	if !ok {
		store = NewFileStore(filepath.Join(m.root, dirName), cfg.CacheEnabled, cfg.CacheTTLSeconds, m.logger)
		m.stores[dirName] = store
		return store
	}
	store.configure(cfg.CacheEnabled, cfg.CacheTTLSeconds)
	return store
}
