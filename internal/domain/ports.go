package domain

import (
	"context"
	"time"
)

// ConfigResolver resolves a profile name into a flattened configuration.
// Implemented by config.Store.
type ConfigResolver interface {
	ResolveProfile(profileName string) (*ResolvedConfig, error)
}

// TokenBroker acquires credential sessions for a resolved configuration.
// Implemented by auth.Broker.
type TokenBroker interface {
	// AcquireToken returns a live session for cfg. With interactive=false it
	// never prompts; no silent session means a NoSessionError.
	AcquireToken(ctx context.Context, cfg *ResolvedConfig, interactive bool) (*CredentialSession, error)
	// CheckAuth answers "is the user currently authenticated for this
	// tenant?" without prompting or caching side effects. (false, nil) is a
	// definitive no; (false, err) means the check itself failed.
	CheckAuth(ctx context.Context, cfg *ResolvedConfig) (bool, error)
	// SignOut drops broker-held state for cfg's profile. Flows whose
	// sessions are owned elsewhere report that explicitly instead of
	// silently doing nothing.
	SignOut(cfg *ResolvedConfig) error
}

// HostSessionProvider is the embedding host's account system, used by the
// host_integrated flow. The scope slice is ordered; a tenant hint, when
// present, is always the first entry.
type HostSessionProvider interface {
	AcquireSession(ctx context.Context, scopes []string, interactive bool) (*CredentialSession, error)
}

// QueryBackend runs a query against the telemetry backend with a bearer
// token. Implemented by insights.Client.
type QueryBackend interface {
	Query(ctx context.Context, cfg *ResolvedConfig, accessToken, queryText string) (*QueryResult, error)
}

// ResultCache is one profile's TTL result cache.
// Implemented by cache.FileStore.
type ResultCache interface {
	// Get returns the cached result for the exact query text, or a miss.
	// Expiry is evaluated on every read.
	Get(queryText string) (*QueryResult, bool)
	// Set persists the result. A disabled cache makes this a no-op.
	Set(queryText string, result *QueryResult) error
	// Clear deletes every persisted entry, counting per-entry failures
	// instead of aborting.
	Clear() CacheClearStats
	// Stats reports counters and an on-disk scan.
	Stats() CacheStats
}

// CacheProvider hands out the cache bound to a resolved profile (its
// directory, enabled flag, and TTL). Implemented by cache.Manager.
type CacheProvider interface {
	ForProfile(cfg *ResolvedConfig) ResultCache
}

// Sanitizer redacts PII from result rows in place.
// Implemented by sanitize.Redactor.
type Sanitizer interface {
	Sanitize(result *QueryResult)
}

// HistoryRepository persists query execution records.
// Implemented by repository.HistoryRepo.
type HistoryRepository interface {
	Insert(ctx context.Context, entry *HistoryEntry) error
	List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
	// DeleteBefore removes entries started before cutoff and reports how
	// many were deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
