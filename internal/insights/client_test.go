package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

func testClientConfig(clusterURL string) *domain.ResolvedConfig {
	return &domain.ResolvedConfig{
		ProfileName:              "prod",
		TenantID:                 "t-123",
		AuthFlow:                 domain.AuthFlowAzureCLI,
		ApplicationInsightsAppID: "app-1",
		KustoClusterURL:          clusterURL,
	}
}

func TestClient_Query_DecodesFirstTable(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotRequestID string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("x-ms-client-request-id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"tables": [
				{
					"name": "PrimaryResult",
					"columns": [{"name": "timestamp", "type": "datetime"}, {"name": "message", "type": "string"}],
					"rows": [["2026-03-14T10:00:00Z", "hello"], ["2026-03-14T10:01:00Z", "world"]]
				},
				{"name": "Ignored", "columns": [], "rows": [[1]]}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientDeps{HTTP: server.Client()})
	result, err := client.Query(context.Background(), testClientConfig(server.URL), "secret-token", "traces | take 2")
	require.NoError(t, err)

	assert.Equal(t, "/v1/apps/app-1/query", gotPath)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, map[string]string{"query": "traces | take 2"}, gotBody)

	assert.Equal(t, domain.ResultKindTable, result.Kind)
	assert.Equal(t, []domain.Column{{Name: "timestamp", Type: "datetime"}, {Name: "message", Type: "string"}}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "hello", result.Rows[0][1])
	assert.False(t, result.Cached)
}

func TestClient_Query_ZeroRowsIsEmptyResult(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tables": [{"name": "PrimaryResult", "columns": [{"name": "x", "type": "long"}], "rows": []}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientDeps{HTTP: server.Client()})
	result, err := client.Query(context.Background(), testClientConfig(server.URL), "tok", "traces | take 0")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultKindEmpty, result.Kind)
	assert.Zero(t, result.RowCount)
}

func TestClient_Query_NoTablesIsEmptyResult(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tables": []}`))
	}))
	defer server.Close()

	client := NewClient(ClientDeps{HTTP: server.Client()})
	result, err := client.Query(context.Background(), testClientConfig(server.URL), "tok", "traces")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultKindEmpty, result.Kind)
}

func TestClient_Query_BadRequestSurfacesBackendMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": "BadArgumentError", "message": "The request had some invalid properties"}}`))
	}))
	defer server.Close()

	client := NewClient(ClientDeps{HTTP: server.Client()})
	_, err := client.Query(context.Background(), testClientConfig(server.URL), "tok", "traces | bogus")

	var rejected *domain.QueryRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Contains(t, err.Error(), "BadArgumentError")
	assert.Contains(t, err.Error(), "invalid properties")
}

func TestClient_Query_PlainTextErrorBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("forbidden"))
	}))
	defer server.Close()

	client := NewClient(ClientDeps{HTTP: server.Client()})
	_, err := client.Query(context.Background(), testClientConfig(server.URL), "tok", "traces")

	var rejected *domain.QueryRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestClient_Query_ServerErrorIsNetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(ClientDeps{HTTP: server.Client()})
	_, err := client.Query(context.Background(), testClientConfig(server.URL), "tok", "traces")

	var network *domain.NetworkFailureError
	require.ErrorAs(t, err, &network)
}

func TestClient_Query_DeadlineIsTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(ClientDeps{HTTP: server.Client()})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Query(ctx, testClientConfig(server.URL), "tok", "traces")

	var timeout *domain.TimeoutError
	require.ErrorAs(t, err, &timeout)
}

func TestClient_Query_UnreachableHostIsNetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(ClientDeps{})
	_, err := client.Query(context.Background(), testClientConfig(server.URL), "tok", "traces")

	var network *domain.NetworkFailureError
	require.ErrorAs(t, err, &network)
}

func TestQueryURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *domain.ResolvedConfig
		want string
	}{
		{
			name: "plain base",
			cfg:  testClientConfig("https://api.applicationinsights.io"),
			want: "https://api.applicationinsights.io/v1/apps/app-1/query",
		},
		{
			name: "trailing slash trimmed",
			cfg:  testClientConfig("https://api.applicationinsights.io/"),
			want: "https://api.applicationinsights.io/v1/apps/app-1/query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, queryURL(tt.cfg))
		})
	}
}
