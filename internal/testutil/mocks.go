// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

// === Config Resolver Mock ===

// MockResolver implements domain.ConfigResolver for testing.
type MockResolver struct {
	ResolveProfileFn func(profileName string) (*domain.ResolvedConfig, error)
}

func (m *MockResolver) ResolveProfile(profileName string) (*domain.ResolvedConfig, error) {
	if m.ResolveProfileFn != nil {
		return m.ResolveProfileFn(profileName)
	}
	panic("unexpected call to MockResolver.ResolveProfile")
}

var _ domain.ConfigResolver = (*MockResolver)(nil)

// === Token Broker Mock ===

// MockBroker implements domain.TokenBroker for testing.
type MockBroker struct {
	AcquireTokenFn func(ctx context.Context, cfg *domain.ResolvedConfig, interactive bool) (*domain.CredentialSession, error)
	CheckAuthFn    func(ctx context.Context, cfg *domain.ResolvedConfig) (bool, error)
	SignOutFn      func(cfg *domain.ResolvedConfig) error

	mu           sync.Mutex
	AcquireCalls int
}

func (m *MockBroker) AcquireToken(ctx context.Context, cfg *domain.ResolvedConfig, interactive bool) (*domain.CredentialSession, error) {
	m.mu.Lock()
	m.AcquireCalls++
	m.mu.Unlock()
	if m.AcquireTokenFn != nil {
		return m.AcquireTokenFn(ctx, cfg, interactive)
	}
	panic("unexpected call to MockBroker.AcquireToken")
}

func (m *MockBroker) CheckAuth(ctx context.Context, cfg *domain.ResolvedConfig) (bool, error) {
	if m.CheckAuthFn != nil {
		return m.CheckAuthFn(ctx, cfg)
	}
	panic("unexpected call to MockBroker.CheckAuth")
}

func (m *MockBroker) SignOut(cfg *domain.ResolvedConfig) error {
	if m.SignOutFn != nil {
		return m.SignOutFn(cfg)
	}
	panic("unexpected call to MockBroker.SignOut")
}

// AcquireCount returns the number of AcquireToken invocations.
func (m *MockBroker) AcquireCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AcquireCalls
}

var _ domain.TokenBroker = (*MockBroker)(nil)

// === Host Session Provider Mock ===

// MockHost implements domain.HostSessionProvider for testing. It records the
// scopes and interactivity of the last call for assertions.
type MockHost struct {
	AcquireSessionFn func(ctx context.Context, scopes []string, interactive bool) (*domain.CredentialSession, error)

	LastScopes      []string
	LastInteractive bool
	Calls           int
}

func (m *MockHost) AcquireSession(ctx context.Context, scopes []string, interactive bool) (*domain.CredentialSession, error) {
	m.Calls++
	m.LastScopes = append([]string(nil), scopes...)
	m.LastInteractive = interactive
	if m.AcquireSessionFn != nil {
		return m.AcquireSessionFn(ctx, scopes, interactive)
	}
	panic("unexpected call to MockHost.AcquireSession")
}

var _ domain.HostSessionProvider = (*MockHost)(nil)

// === Query Backend Mock ===

// MockBackend implements domain.QueryBackend for testing.
type MockBackend struct {
	QueryFn func(ctx context.Context, cfg *domain.ResolvedConfig, accessToken, queryText string) (*domain.QueryResult, error)

	mu        sync.Mutex
	Calls     int
	LastQuery string
	LastToken string
}

func (m *MockBackend) Query(ctx context.Context, cfg *domain.ResolvedConfig, accessToken, queryText string) (*domain.QueryResult, error) {
	m.mu.Lock()
	m.Calls++
	m.LastQuery = queryText
	m.LastToken = accessToken
	m.mu.Unlock()
	if m.QueryFn != nil {
		return m.QueryFn(ctx, cfg, accessToken, queryText)
	}
	panic("unexpected call to MockBackend.Query")
}

// CallCount returns the number of Query invocations.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

var _ domain.QueryBackend = (*MockBackend)(nil)

// === Result Cache Mock ===

// MockCache implements domain.ResultCache for testing. Set calls are
// collected in Stored, keyed by query text, for assertions.
type MockCache struct {
	GetFn   func(queryText string) (*domain.QueryResult, bool)
	SetFn   func(queryText string, result *domain.QueryResult) error
	ClearFn func() domain.CacheClearStats
	StatsFn func() domain.CacheStats

	mu     sync.Mutex
	Stored map[string]*domain.QueryResult
}

func (m *MockCache) Get(queryText string) (*domain.QueryResult, bool) {
	if m.GetFn != nil {
		return m.GetFn(queryText)
	}
	return nil, false
}

func (m *MockCache) Set(queryText string, result *domain.QueryResult) error {
	m.mu.Lock()
	if m.Stored == nil {
		m.Stored = make(map[string]*domain.QueryResult)
	}
	m.Stored[queryText] = result
	m.mu.Unlock()
	if m.SetFn != nil {
		return m.SetFn(queryText, result)
	}
	return nil
}

func (m *MockCache) Clear() domain.CacheClearStats {
	if m.ClearFn != nil {
		return m.ClearFn()
	}
	panic("unexpected call to MockCache.Clear")
}

func (m *MockCache) Stats() domain.CacheStats {
	if m.StatsFn != nil {
		return m.StatsFn()
	}
	return domain.CacheStats{}
}

// StoredCount returns the number of distinct fingerprints stored.
func (m *MockCache) StoredCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Stored)
}

// StoredResult returns the stored result for a query text, or nil.
func (m *MockCache) StoredResult(queryText string) *domain.QueryResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Stored[queryText]
}

var _ domain.ResultCache = (*MockCache)(nil)

// === Cache Provider Mock ===

// MockCacheProvider implements domain.CacheProvider for testing, handing out
// a single fixed cache for every profile unless ForProfileFn is set.
type MockCacheProvider struct {
	ForProfileFn func(cfg *domain.ResolvedConfig) domain.ResultCache
	Cache        *MockCache
}

func (m *MockCacheProvider) ForProfile(cfg *domain.ResolvedConfig) domain.ResultCache {
	if m.ForProfileFn != nil {
		return m.ForProfileFn(cfg)
	}
	if m.Cache == nil {
		m.Cache = &MockCache{}
	}
	return m.Cache
}

var _ domain.CacheProvider = (*MockCacheProvider)(nil)

// === Sanitizer Mock ===

// MockSanitizer implements domain.Sanitizer for testing.
type MockSanitizer struct {
	SanitizeFn func(result *domain.QueryResult)
	Calls      int
}

func (m *MockSanitizer) Sanitize(result *domain.QueryResult) {
	m.Calls++
	if m.SanitizeFn != nil {
		m.SanitizeFn(result)
	}
}

var _ domain.Sanitizer = (*MockSanitizer)(nil)

// === History Repository Mock ===

// MockHistory implements domain.HistoryRepository for testing. Inserted
// entries are collected for assertions.
type MockHistory struct {
	InsertFn       func(ctx context.Context, e *domain.HistoryEntry) error
	ListFn         func(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error)
	DeleteBeforeFn func(ctx context.Context, cutoff time.Time) (int64, error)

	mu      sync.Mutex
	Entries []*domain.HistoryEntry
}

func (m *MockHistory) Insert(ctx context.Context, e *domain.HistoryEntry) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Entries = append(m.Entries, e)
	m.mu.Unlock()
	return nil
}

func (m *MockHistory) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	panic("unexpected call to MockHistory.List")
}

func (m *MockHistory) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteBeforeFn != nil {
		return m.DeleteBeforeFn(ctx, cutoff)
	}
	panic("unexpected call to MockHistory.DeleteBefore")
}

// LastEntry returns the last collected history entry, or nil if none.
func (m *MockHistory) LastEntry() *domain.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Entries) == 0 {
		return nil
	}
	return m.Entries[len(m.Entries)-1]
}

// EntryCount returns the number of collected history entries.
func (m *MockHistory) EntryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries)
}

var _ domain.HistoryRepository = (*MockHistory)(nil)
