// Package insights executes KQL against the Application Insights query
// REST API.
package insights

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

const (
	// DefaultTimeout bounds a single query round trip.
	DefaultTimeout = 2 * time.Minute

	// DefaultRPS and DefaultBurst keep the client inside the public API's
	// throttling envelope.
	DefaultRPS   = 5.0
	DefaultBurst = 10

	// maxErrorBody caps how much of an error response is read back.
	maxErrorBody = 1 << 20
)

// ClientDeps holds dependencies for Client.
type ClientDeps struct {
	Timeout time.Duration
	RPS     float64
	Burst   int
	HTTP    *http.Client // tests inject a client bound to a test server
	Logger  *slog.Logger
}

// Client implements domain.QueryBackend against the v1 apps query endpoint.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ domain.QueryBackend = (*Client)(nil)

// NewClient creates a rate-limited query client.
func NewClient(deps ClientDeps) *Client {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rps := deps.RPS
	if rps <= 0 {
		rps = DefaultRPS
	}
	burst := deps.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	httpClient := deps.HTTP
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger.With("component", "insights-client"),
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Tables []struct {
		Name    string `json:"name"`
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
		Rows [][]interface{} `json:"rows"`
	} `json:"tables"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Query posts queryText to the profile's app and returns the first result
// table. Errors are typed so callers can tell a rejected query from a
// transport problem.
func (c *Client) Query(ctx context.Context, cfg *domain.ResolvedConfig, accessToken, queryText string) (*domain.QueryResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrTimeout("query timed out waiting for rate limiter")
		}
		return nil, domain.ErrNetworkFailure("query aborted: %v", err)
	}

	endpoint := queryURL(cfg)
	body, err := json.Marshal(queryRequest{Query: queryText})
	if err != nil {
		return nil, domain.ErrNetworkFailure("encode query request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, domain.ErrNetworkFailure("create query request: %v", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-ms-client-request-id", requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, domain.ErrTimeout("query to %s timed out after %s", cfg.ApplicationInsightsAppID, time.Since(started).Round(time.Millisecond))
		}
		return nil, domain.ErrNetworkFailure("query request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decoding
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		message := backendErrorMessage(resp.Body)
		c.logger.Warn("query rejected",
			"app", cfg.ApplicationInsightsAppID,
			"status", resp.StatusCode,
			"request_id", requestID,
			"message", message)
		return nil, domain.ErrQueryRejected("backend rejected query (status %d): %s", resp.StatusCode, message)
	default:
		return nil, domain.ErrNetworkFailure("backend returned status %d", resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.ErrNetworkFailure("decode query response: %v", err)
	}

	result := firstTableResult(decoded)
	c.logger.Debug("query executed",
		"app", cfg.ApplicationInsightsAppID,
		"request_id", requestID,
		"rows", result.RowCount,
		"duration", time.Since(started).Round(time.Millisecond))
	return result, nil
}

// queryURL joins the cluster base with the v1 apps query path.
func queryURL(cfg *domain.ResolvedConfig) string {
	base := strings.TrimRight(strings.TrimSpace(cfg.KustoClusterURL), "/")
	return base + "/v1/apps/" + url.PathEscape(cfg.ApplicationInsightsAppID) + "/query"
}

// firstTableResult maps the primary response table into a QueryResult.
// Responses with no tables come back as an empty result, not an error.
func firstTableResult(decoded queryResponse) *domain.QueryResult {
	if len(decoded.Tables) == 0 {
		return domain.NewTableResult(nil, nil)
	}
	table := decoded.Tables[0]
	columns := make([]domain.Column, 0, len(table.Columns))
	for _, col := range table.Columns {
		columns = append(columns, domain.Column{Name: col.Name, Type: col.Type})
	}
	return domain.NewTableResult(columns, table.Rows)
}

// backendErrorMessage pulls the service's error message out of a failure
// body, falling back to the raw text when the shape is unexpected.
func backendErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return "no error detail"
	}
	var decoded errorResponse
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error.Message != "" {
		if decoded.Error.Code != "" {
			return fmt.Sprintf("%s: %s", decoded.Error.Code, decoded.Error.Message)
		}
		return decoded.Error.Message
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 300 {
		text = text[:300] + "..."
	}
	return text
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
