package cli

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/config"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/service/cache"
)

// minimalDoc has a configured default profile and one derived profile. The
// azure_cli flow is used because its probes fail fast without touching the
// network when no CLI session exists.
const minimalDoc = `{
  "defaultProfile": "prod",
  "profiles": {
    "prod": {
      "tenantId": "t-123",
      "authFlow": "azure_cli",
      "applicationInsightsAppId": "app-1",
      "kustoClusterUrl": "https://api.applicationinsights.io/v1"
    },
    "sandbox": {
      "extends": "prod",
      "connectionName": "Sandbox"
    }
  }
}`

// testWorkspace isolates HOME and the BCTB environment, disables history
// recording, and returns a workspace dir optionally seeded with a document.
func testWorkspace(t *testing.T, doc string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"BCTB_WORKSPACE", "BCTB_PROFILE", "BCTB_OUTPUT", "BCTB_LOG_LEVEL", "BCTB_LOG_FORMAT", "BCTB_CACHE_DIR", "BCTB_HISTORY_DB"} {
		t.Setenv(key, "")
	}
	t.Setenv("BCTB_HISTORY", "0")

	dir := t.TempDir()
	if doc != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, config.DocumentName), []byte(doc), 0o600))
	}
	return dir
}

// runCLI executes a fresh root command and returns the state it resolved so
// tests can assert on precedence and wiring.
func runCLI(t *testing.T, args ...string) (*appState, error) {
	t.Helper()
	state := &appState{}
	cmd := newRootCmd(state)
	cmd.SetArgs(args)
	err := cmd.Execute()
	state.close()
	return state, err
}

// readDocument loads the workspace document a command mutated.
func readDocument(t *testing.T, workspace string) *domain.ProfiledConfig {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(workspace, config.DocumentName))
	require.NoError(t, err)
	var doc domain.ProfiledConfig
	require.NoError(t, json.Unmarshal(data, &doc))
	return &doc
}

func TestProfileCreate_WritesDocument(t *testing.T) {
	ws := testWorkspace(t, "")

	_, err := runCLI(t, "-w", ws, "profile", "create", "prod",
		"--tenant", "t-123",
		"--app-id", "app-1",
		"--cluster", "https://api.applicationinsights.io/v1",
		"--auth-flow", "azure_cli",
		"--cache-ttl", "600")
	require.NoError(t, err)

	doc := readDocument(t, ws)
	assert.Equal(t, "prod", doc.DefaultProfile, "first selectable profile becomes the default")
	p := doc.Profiles["prod"]
	assert.Equal(t, "t-123", p.TenantID)
	assert.Equal(t, domain.AuthFlowAzureCLI, p.AuthFlow)
	require.NotNil(t, p.CacheTTLSeconds)
	assert.Equal(t, 600, *p.CacheTTLSeconds)
	assert.Nil(t, p.CacheEnabled, "unset flag leaves the tri-state field empty")
	assert.Nil(t, p.RemovePII)
}

func TestProfileCreate_DuplicateRejected(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	_, err := runCLI(t, "-w", ws, "profile", "create", "prod", "--tenant", "other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestProfileUpdate_TouchesOnlyGivenFlags(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	_, err := runCLI(t, "-w", ws, "profile", "update", "prod", "--connection", "Production")
	require.NoError(t, err)

	p := readDocument(t, ws).Profiles["prod"]
	assert.Equal(t, "Production", p.ConnectionName)
	assert.Equal(t, "t-123", p.TenantID, "fields without a flag keep their value")
	assert.Equal(t, "app-1", p.ApplicationInsightsAppID)
}

func TestProfileUpdate_MissingProfile(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	_, err := runCLI(t, "-w", ws, "profile", "update", "ghost", "--tenant", "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestProfileDelete(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	_, err := runCLI(t, "-w", ws, "profile", "delete", "prod")
	require.Error(t, err, "deleting a profile others extend must fail")
	assert.Contains(t, err.Error(), "extended by")

	_, err = runCLI(t, "-w", ws, "profile", "delete", "sandbox")
	require.NoError(t, err)
	_, exists := readDocument(t, ws).Profiles["sandbox"]
	assert.False(t, exists)
}

func TestProfileUse_SetsDefault(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	_, err := runCLI(t, "-w", ws, "profile", "use", "sandbox")
	require.NoError(t, err)
	assert.Equal(t, "sandbox", readDocument(t, ws).DefaultProfile)
}

func TestProfileResolve_UnknownProfile(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	_, err := runCLI(t, "-w", ws, "profile", "resolve", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestProfileSelectionPrecedence(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	t.Run("env selects the profile", func(t *testing.T) {
		t.Setenv("BCTB_PROFILE", "sandbox")
		state, err := runCLI(t, "-w", ws, "profile", "resolve")
		require.NoError(t, err)
		assert.Equal(t, "sandbox", state.cfg.Profile)
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv("BCTB_PROFILE", "sandbox")
		state, err := runCLI(t, "-w", ws, "-p", "prod", "profile", "resolve")
		require.NoError(t, err)
		assert.Equal(t, "prod", state.cfg.Profile)
	})

	t.Run("user config fills the gap", func(t *testing.T) {
		require.NoError(t, SaveUserConfig(&UserConfig{Profile: "sandbox"}))
		state, err := runCLI(t, "-w", ws, "profile", "resolve")
		require.NoError(t, err)
		assert.Equal(t, "sandbox", state.cfg.Profile)
	})
}

func TestWorkspaceFromUserConfig(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)
	require.NoError(t, SaveUserConfig(&UserConfig{Workspace: ws}))

	state, err := runCLI(t, "profile", "resolve")
	require.NoError(t, err)
	assert.Equal(t, ws, state.cfg.Workspace)
}

func TestUnsupportedOutputFormat(t *testing.T) {
	testWorkspace(t, "")

	_, err := runCLI(t, "--output", "yaml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestZeroArgCommandsRejectUnexpectedPositionalArgs(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	tests := []struct {
		name string
		args []string
	}{
		{name: "version", args: []string{"version", "extra"}},
		{name: "auth status", args: []string{"-w", ws, "auth", "status", "extra"}},
		{name: "cache stats", args: []string{"-w", ws, "cache", "stats", "extra"}},
		{name: "history list", args: []string{"-w", ws, "history", "list", "extra"}},
		{name: "query list", args: []string{"-w", ws, "query", "list", "extra"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, tc.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), `unknown command "extra"`)
		})
	}
}

func TestQueryRun_CachedResultNeedsNoCredentials(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)
	queryText := "traces | take 5"

	// Seed the profile cache directly; the command must serve the hit
	// without ever reaching the credential broker or the backend.
	manager := cache.NewManager(filepath.Join(ws, config.DataDirName, "cache"), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	store := manager.ForProfile(&domain.ResolvedConfig{
		ProfileName:     "prod",
		CacheEnabled:    true,
		CacheTTLSeconds: 3600,
	})
	seeded := domain.NewTableResult(
		[]domain.Column{{Name: "message", Type: "string"}},
		[][]interface{}{{"hello"}},
	)
	require.NoError(t, store.Set(queryText, seeded))

	_, err := runCLI(t, "-w", ws, "query", "run", queryText)
	require.NoError(t, err)
}

func TestQueryRun_ErrorEnvelopeExitsNonzero(t *testing.T) {
	ws := testWorkspace(t, `{"profiles": {"incomplete": {"tenantId": "t-1"}}, "defaultProfile": "incomplete"}`)

	_, err := runCLI(t, "-w", ws, "query", "run", "traces | take 1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errQueryFailed), "rendered envelopes surface only as the exit-code sentinel")
}

func TestQueryRun_ConflictingSources(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	file := filepath.Join(t.TempDir(), "q.kql")
	require.NoError(t, os.WriteFile(file, []byte("traces"), 0o600))

	_, err := runCLI(t, "-w", ws, "query", "run", "traces | take 1", "--file", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not several at once")
}

func TestQuerySaveListShow(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	_, err := runCLI(t, "-w", ws, "query", "save", "slow-pages",
		"pageViews | where duration > 5000",
		"--description", "Pages slower than 5s",
		"--tag", "perf")
	require.NoError(t, err)

	path := filepath.Join(ws, config.DataDirName, "queries", "slow-pages.kql")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "// Description: Pages slower than 5s")
	assert.Contains(t, string(data), "pageViews | where duration > 5000")

	_, err = runCLI(t, "-w", ws, "query", "list")
	require.NoError(t, err)

	_, err = runCLI(t, "-w", ws, "query", "show", "slow-pages")
	require.NoError(t, err)

	_, err = runCLI(t, "-w", ws, "query", "show", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestQueryRun_SavedQueryByName(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	_, err := runCLI(t, "-w", ws, "query", "save", "probe", "traces | take 3")
	require.NoError(t, err)

	// Seed a cache hit for the saved text so no credentials are needed.
	manager := cache.NewManager(filepath.Join(ws, config.DataDirName, "cache"), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	store := manager.ForProfile(&domain.ResolvedConfig{ProfileName: "prod", CacheEnabled: true, CacheTTLSeconds: 3600})
	require.NoError(t, store.Set("traces | take 3\n", domain.NewTableResult(nil, nil)))

	_, err = runCLI(t, "-w", ws, "query", "run", "--name", "probe")
	require.NoError(t, err)
}

func TestAuthStatus_AllAbsorbsProbeFailures(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	// Neither profile has a live session; status must report that instead
	// of failing or prompting.
	_, err := runCLI(t, "-w", ws, "auth", "status", "--all")
	require.NoError(t, err)
}

func TestHistoryCommandsWhenDisabled(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	_, err := runCLI(t, "-w", ws, "history", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is disabled")

	_, err = runCLI(t, "-w", ws, "history", "prune")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is disabled")
}

func TestCacheStatsAndClear(t *testing.T) {
	ws := testWorkspace(t, minimalDoc)

	manager := cache.NewManager(filepath.Join(ws, config.DataDirName, "cache"), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	store := manager.ForProfile(&domain.ResolvedConfig{ProfileName: "prod", CacheEnabled: true, CacheTTLSeconds: 3600})
	require.NoError(t, store.Set("traces | take 1", domain.NewTableResult(nil, nil)))

	_, err := runCLI(t, "-w", ws, "cache", "stats")
	require.NoError(t, err)

	_, err = runCLI(t, "-w", ws, "cache", "clear")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(ws, config.DataDirName, "cache", "prod"))
	require.NoError(t, err)
	assert.Empty(t, entries, "clear removes every persisted entry")
}

func TestCacheSweepOnEmptyWorkspace(t *testing.T) {
	ws := testWorkspace(t, "")

	_, err := runCLI(t, "-w", ws, "cache", "sweep")
	require.NoError(t, err)
}
