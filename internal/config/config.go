// Package config handles runtime configuration, the workspace profile
// document, and profile resolution.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DocumentName is the profile document filename at the workspace root.
const DocumentName = "bctb.config.json"

// DataDirName is the workspace-relative directory holding cache, saved
// queries, and history.
const DataDirName = ".bctb"

// Config holds runtime settings loaded from the environment. The profile
// document (profiles, tenants, endpoints) lives in the workspace instead;
// this struct covers only process-level concerns.
type Config struct {
	Workspace string // workspace root containing bctb.config.json (default ".")
	Profile   string // profile name override (BCTB_PROFILE)
	LogLevel  string // debug, info, warn, error (default "info")
	LogFormat string // "text" or "json" (default "text")

	CacheDir  string // cache root override; empty means <workspace>/.bctb/cache
	HistoryDB string // history database override; empty means <workspace>/.bctb/bctb.db

	HistoryEnabled bool // record query executions (default true)

	// Backend client tuning.
	QueryTimeout   time.Duration // per-query deadline (default 2m)
	RateLimitRPS   float64       // sustained backend requests per second (default 5)
	RateLimitBurst int           // burst capacity (default 10)

	// DeviceClientID overrides the public client id used by the device-code
	// flow; empty falls back to the SDK default.
	DeviceClientID string

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DocumentPath returns the profile document location for this workspace.
func (c *Config) DocumentPath() string {
	return filepath.Join(c.Workspace, DocumentName)
}

// CacheRoot returns the directory holding per-profile cache subdirectories.
func (c *Config) CacheRoot() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(c.Workspace, DataDirName, "cache")
}

// HistoryDBPath returns the SQLite history database location.
func (c *Config) HistoryDBPath() string {
	if c.HistoryDB != "" {
		return c.HistoryDB
	}
	return filepath.Join(c.Workspace, DataDirName, "bctb.db")
}

// QueriesRoot returns the default saved-queries directory. A profile's
// queriesFolder takes precedence when set.
func (c *Config) QueriesRoot() string {
	return filepath.Join(c.Workspace, DataDirName, "queries")
}

// LoadFromEnv loads runtime configuration from BCTB_* environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Workspace:      os.Getenv("BCTB_WORKSPACE"),
		Profile:        os.Getenv("BCTB_PROFILE"),
		LogLevel:       os.Getenv("BCTB_LOG_LEVEL"),
		LogFormat:      os.Getenv("BCTB_LOG_FORMAT"),
		CacheDir:       os.Getenv("BCTB_CACHE_DIR"),
		HistoryDB:      os.Getenv("BCTB_HISTORY_DB"),
		HistoryEnabled: parseBoolEnvDefault("BCTB_HISTORY", true),
		DeviceClientID: os.Getenv("BCTB_DEVICE_CLIENT_ID"),
	}

	if v := os.Getenv("BCTB_QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			cfg.QueryTimeout = d
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("BCTB_QUERY_TIMEOUT %q is not a valid duration; using default", v))
		}
	}
	if v := os.Getenv("BCTB_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RateLimitRPS = f
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("BCTB_RATE_LIMIT_RPS %q is not a positive number; using default", v))
		}
	}
	if v := os.Getenv("BCTB_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitBurst = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("BCTB_RATE_LIMIT_BURST %q is not a positive integer; using default", v))
		}
	}

	// Defaults
	if cfg.Workspace == "" {
		cfg.Workspace = "."
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 2 * time.Minute
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 5
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 10
	}

	return cfg, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
