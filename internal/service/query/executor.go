// Package query orchestrates one KQL run end to end: profile resolution,
// credential acquisition, result caching, sanitization, and history.
package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/service/cache"
)

// ExecutorDeps holds dependencies for Executor. History is optional; every
// other field is required.
type ExecutorDeps struct {
	Resolver  domain.ConfigResolver
	Broker    domain.TokenBroker
	Backend   domain.QueryBackend
	Caches    domain.CacheProvider
	Sanitizer domain.Sanitizer
	History   domain.HistoryRepository
	Logger    *slog.Logger
}

// Executor runs queries for named profiles. Execute never returns a Go
// error: every failure is folded into the result envelope so callers always
// have something renderable.
type Executor struct {
	resolver  domain.ConfigResolver
	broker    domain.TokenBroker
	backend   domain.QueryBackend
	caches    domain.CacheProvider
	sanitizer domain.Sanitizer
	history   domain.HistoryRepository
	logger    *slog.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewExecutor creates an Executor.
func NewExecutor(deps ExecutorDeps) *Executor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		resolver:  deps.Resolver,
		broker:    deps.Broker,
		backend:   deps.Backend,
		caches:    deps.Caches,
		sanitizer: deps.Sanitizer,
		history:   deps.History,
		logger:    logger.With("component", "query-executor"),
		now:       time.Now,
	}
}

// Execute runs queryText under the named profile. An empty profileName
// selects the document's default profile.
func (e *Executor) Execute(ctx context.Context, profileName, queryText string) *domain.QueryResult {
	started := e.now()
	fingerprint := cache.Fingerprint(queryText)

	cfg, err := e.resolver.ResolveProfile(profileName)
	if err != nil {
		result := domain.NewErrorResult(err)
		e.record(ctx, profileName, fingerprint, queryText, result, started)
		return result
	}
	if !cfg.IsConfigured() {
		result := domain.NewErrorResult(domain.ErrMissingRequiredField(
			"profile %q is missing tenantId, applicationInsightsAppId, or kustoClusterUrl", cfg.ProfileName))
		e.record(ctx, cfg.ProfileName, fingerprint, queryText, result, started)
		return result
	}

	store := e.caches.ForProfile(cfg)
	if hit, ok := store.Get(queryText); ok {
		e.logger.Debug("cache hit", "profile", cfg.ProfileName, "fingerprint", fingerprint)
		e.record(ctx, cfg.ProfileName, fingerprint, queryText, hit, started)
		return hit
	}

	// Concurrent executions of the same query under the same profile share
	// one backend round trip.
	key := cfg.ProfileName + "\n" + fingerprint
	shared, _, _ := e.group.Do(key, func() (interface{}, error) {
		return e.runQuery(ctx, cfg, store, queryText), nil
	})
	result := shared.(*domain.QueryResult)
	e.record(ctx, cfg.ProfileName, fingerprint, queryText, result, started)
	return result
}

// Authenticate resolves the named profile and acquires a credential session
// for it. Unlike Execute, resolution and acquisition failures propagate, so
// connection-test callers can surface them directly.
func (e *Executor) Authenticate(ctx context.Context, profileName string, interactive bool) (*domain.CredentialSession, error) {
	cfg, err := e.resolver.ResolveProfile(profileName)
	if err != nil {
		return nil, err
	}
	return e.broker.AcquireToken(ctx, cfg, interactive)
}

// runQuery performs the token, backend, sanitize, and store steps of a cache
// miss. Cache write failures degrade to a log line; the caller still gets
// the fresh result.
func (e *Executor) runQuery(ctx context.Context, cfg *domain.ResolvedConfig, store domain.ResultCache, queryText string) *domain.QueryResult {
	session, err := e.broker.AcquireToken(ctx, cfg, true)
	if err != nil {
		return domain.NewErrorResult(err)
	}

	result, err := e.backend.Query(ctx, cfg, session.AccessToken, queryText)
	if err != nil {
		return domain.NewErrorResult(err)
	}

	// Redaction happens before the result is persisted so cached rows never
	// hold raw PII, whatever the flag says on later reads.
	if cfg.RemovePII && e.sanitizer != nil {
		e.sanitizer.Sanitize(result)
	}

	if err := store.Set(queryText, result); err != nil {
		e.logger.Warn("result not cached", "profile", cfg.ProfileName, "error", err)
	}
	return result
}

// record appends a history row for one execution. History is best effort;
// an insert failure never affects the query result.
func (e *Executor) record(ctx context.Context, profileName, fingerprint, queryText string, result *domain.QueryResult, started time.Time) {
	if e.history == nil {
		return
	}
	entry := &domain.HistoryEntry{
		ID:          uuid.NewString(),
		ProfileName: profileName,
		Fingerprint: fingerprint,
		QueryText:   queryText,
		Kind:        result.Kind,
		Category:    result.Category,
		RowCount:    result.RowCount,
		Cached:      result.Cached,
		DurationMs:  e.now().Sub(started).Milliseconds(),
		StartedAt:   started,
	}
	if err := e.history.Insert(ctx, entry); err != nil {
		e.logger.Warn("history insert failed", "profile", profileName, "error", err)
	}
}
