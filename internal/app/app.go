// Package app provides application-level wiring and dependency injection
// for the bctb runtime following hexagonal architecture.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/config"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/db"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/db/repository"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/insights"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/sanitize"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/service/auth"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/service/cache"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/service/history"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/service/queries"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/service/query"
)

// Deps holds the external dependencies that main() must provide: runtime
// config, the optional embedding host's session provider, and the logger.
type Deps struct {
	Cfg    *config.Config
	Host   domain.HostSessionProvider // nil outside an embedding host
	Logger *slog.Logger
}

// Services groups the wired service pointers the CLI commands need.
// History is nil when recording is disabled or its database is unusable.
type Services struct {
	Config   *config.Store
	Broker   *auth.Broker
	Executor *query.Executor
	Caches   *cache.Manager
	History  *history.Service
}

// App holds the fully-wired runtime.
type App struct {
	Cfg      *config.Config
	Services Services
	Logger   *slog.Logger

	historyDB *sql.DB
}

// New wires repositories and services from the provided deps. The history
// database is opened best effort: a broken local database degrades to a
// warning instead of blocking query execution.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// === Configuration ===
	resolver := config.NewResolver(cfg.Workspace, logger)
	store := config.NewStore(cfg.DocumentPath(), resolver, logger)

	// === Credential broker ===
	broker := auth.NewBroker(auth.BrokerDeps{
		Host:           deps.Host,
		DeviceClientID: cfg.DeviceClientID,
		DevicePrompt: func(_ context.Context, message string) error {
			_, err := fmt.Fprintln(os.Stderr, message)
			return err
		},
		Logger: logger,
	})

	// === Backend client ===
	backend := insights.NewClient(insights.ClientDeps{
		Timeout: cfg.QueryTimeout,
		RPS:     cfg.RateLimitRPS,
		Burst:   cfg.RateLimitBurst,
		Logger:  logger,
	})

	// === Result caches ===
	caches := cache.NewManager(cfg.CacheRoot(), logger)

	// === Query history (optional) ===
	var historyDB *sql.DB
	var historyRepo domain.HistoryRepository
	var historySvc *history.Service
	if cfg.HistoryEnabled {
		pool, err := openHistoryDB(ctx, cfg.HistoryDBPath())
		if err != nil {
			logger.Warn("query history disabled", "error", err)
		} else {
			historyDB = pool
			historyRepo = repository.NewHistoryRepo(pool)
			historySvc = history.NewService(history.ServiceDeps{Repo: historyRepo, Logger: logger})
		}
	}

	// === Executor ===
	executor := query.NewExecutor(query.ExecutorDeps{
		Resolver:  store,
		Broker:    broker,
		Backend:   backend,
		Caches:    caches,
		Sanitizer: sanitize.NewRedactor(),
		History:   historyRepo,
		Logger:    logger,
	})

	return &App{
		Cfg: cfg,
		Services: Services{
			Config:   store,
			Broker:   broker,
			Executor: executor,
			Caches:   caches,
			History:  historySvc,
		},
		Logger:    logger,
		historyDB: historyDB,
	}, nil
}

// QueriesFor returns the saved-query store for a resolved profile. A profile
// queriesFolder overrides the workspace default, resolved against the
// workspace root when relative.
func (a *App) QueriesFor(rc *domain.ResolvedConfig) *queries.Store {
	dir := a.Cfg.QueriesRoot()
	if rc != nil && rc.QueriesFolder != "" {
		dir = rc.QueriesFolder
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(a.Cfg.Workspace, dir)
		}
	}
	return queries.NewStore(dir, a.Logger)
}

// DefaultQueries returns the workspace-level saved-query store.
func (a *App) DefaultQueries() *queries.Store {
	return queries.NewStore(a.Cfg.QueriesRoot(), a.Logger)
}

// Close releases held resources.
func (a *App) Close() error {
	if a.historyDB != nil {
		return a.historyDB.Close()
	}
	return nil
}

// openHistoryDB creates the data directory, opens the pool, and applies
// migrations.
func openHistoryDB(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	pool, err := db.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(pool); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewLogger builds the process logger from config.
func NewLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
