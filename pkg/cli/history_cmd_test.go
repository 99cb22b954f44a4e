package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/config"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/db"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/db/repository"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/service/cache"
)

func TestHistoryRecordsAndListsThroughCLI(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)
	t.Setenv("BCTB_HISTORY", "1")

	queryText := "traces | take 2"

	// Seed a cache hit so the run completes without credentials; cached
	// executions are recorded like any other.
	manager := cache.NewManager(filepath.Join(ws, config.DataDirName, "cache"), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	store := manager.ForProfile(&domain.ResolvedConfig{ProfileName: "prod", CacheEnabled: true, CacheTTLSeconds: 3600})
	require.NoError(t, store.Set(queryText, domain.NewTableResult(
		[]domain.Column{{Name: "message"}},
		[][]interface{}{{"hello"}},
	)))

	_, err := runCLI(t, "-w", ws, "query", "run", queryText)
	require.NoError(t, err)

	ctx := context.Background()
	pool, err := db.Open(ctx, filepath.Join(ws, config.DataDirName, "bctb.db"))
	require.NoError(t, err)
	defer pool.Close() //nolint:errcheck

	entries, err := repository.NewHistoryRepo(pool).List(ctx, domain.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "prod", entries[0].ProfileName)
	assert.Equal(t, queryText, entries[0].QueryText)
	assert.Equal(t, domain.ResultKindTable, entries[0].Kind)
	assert.True(t, entries[0].Cached)

	_, err = runCLI(t, "-w", ws, "history", "list")
	require.NoError(t, err)

	_, err = runCLI(t, "-w", ws, "history", "list", "--kind", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown result kind")

	_, err = runCLI(t, "-w", ws, "history", "prune", "--older-than", "1ns")
	require.NoError(t, err)

	entries, err = repository.NewHistoryRepo(pool).List(ctx, domain.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
