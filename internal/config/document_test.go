package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

func TestLoadDocument_ProfiledLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), DocumentName)
	content := `{
  "defaultProfile": "prod",
  "cache": {"enabled": true, "ttlSeconds": 600},
  "sanitize": {"removePII": true},
  "profiles": {
    "_base": {"authFlow": "device_code", "kustoClusterUrl": "https://api.applicationinsights.io"},
    "prod": {"extends": "_base", "tenantId": "t-1", "applicationInsightsAppId": "app-1"}
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	doc, err := LoadDocument(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", doc.DefaultProfile)
	require.NotNil(t, doc.Cache)
	assert.Equal(t, 600, *doc.Cache.TTLSeconds)
	require.Len(t, doc.Profiles, 2)
	assert.Equal(t, "t-1", doc.Profiles["prod"].TenantID)
	assert.Equal(t, domain.AuthFlowDeviceCode, doc.Profiles["_base"].AuthFlow)
}

func TestLoadDocument_FlatLayoutBecomesDefaultProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DocumentName)
	content := `{
  "tenantId": "t-flat",
  "authFlow": "azure_cli",
  "applicationInsightsAppId": "app-flat",
  "kustoClusterUrl": "https://api.applicationinsights.io",
  "cacheEnabled": false
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	doc, err := LoadDocument(path)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultProfileName, doc.DefaultProfile)
	require.Len(t, doc.Profiles, 1)
	p := doc.Profiles[domain.DefaultProfileName]
	assert.Equal(t, "t-flat", p.TenantID)
	require.NotNil(t, p.CacheEnabled)
	assert.False(t, *p.CacheEnabled)
}

func TestLoadDocument_MissingFileIsEmptyDocument(t *testing.T) {
	doc, err := LoadDocument(filepath.Join(t.TempDir(), DocumentName))
	require.NoError(t, err)
	assert.Empty(t, doc.Profiles)
}

func TestLoadDocument_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), DocumentName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadDocument(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config document")
}

func TestSaveDocument_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DocumentName)
	doc := &domain.ProfiledConfig{
		DefaultProfile: "prod",
		Profiles: map[string]domain.Profile{
			"prod": {TenantID: "t-1", AuthFlow: domain.AuthFlowAzureCLI},
		},
	}
	require.NoError(t, SaveDocument(path, doc))

	loaded, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", loaded.DefaultProfile)
	assert.Equal(t, "t-1", loaded.Profiles["prod"].TenantID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "document may carry secrets")
}
