// Package queries persists reusable KQL files under a workspace folder.
// Each query is one .kql file; description and tags ride along as leading
// comment lines, which KQL treats as comments, so a saved file runs as-is.
package queries

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/fsx"
)

// Extension is the saved-query file suffix.
const Extension = ".kql"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Store implements domain.SavedQueryStore over a flat directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

var _ domain.SavedQueryStore = (*Store)(nil)

// NewStore creates a Store rooted at dir. The directory is created lazily on
// the first save.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger.With("component", "query-store")}
}

// fileName maps a display name onto a filesystem-safe .kql name.
func fileName(name string) string {
	slug := unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "-")
	slug = strings.Trim(slug, "-")
	return filepath.Base(slug + Extension)
}

// Save writes the query under name and returns the file path. An existing
// query with the same name is overwritten.
func (s *Store) Save(name, text string, meta domain.SavedQueryMeta) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", domain.ErrMissingRequiredField("saved query name is required")
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrMissingRequiredField("saved query %q has no query text", name)
	}

	var b strings.Builder
	if desc := strings.TrimSpace(meta.Description); desc != "" {
		fmt.Fprintf(&b, "// Description: %s\n", desc)
	}
	if len(meta.Tags) > 0 {
		fmt.Fprintf(&b, "// Tags: %s\n", strings.Join(meta.Tags, ", "))
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(strings.TrimRight(text, "\n"))
	b.WriteString("\n")

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create queries folder: %w", err)
	}
	path := filepath.Join(s.dir, fileName(name))
	if err := fsx.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write saved query %q: %w", name, err)
	}
	s.logger.Debug("query saved", "name", name, "path", path)
	return path, nil
}

// Load returns the full text of a saved query, headers included.
func (s *Store) Load(name string) (string, error) {
	path := filepath.Join(s.dir, fileName(name))
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("saved query %q not found", name)
		}
		return "", fmt.Errorf("read saved query %q: %w", name, err)
	}
	return string(raw), nil
}

// List returns every saved query sorted by name. A missing folder is an
// empty list, not an error.
func (s *Store) List() ([]domain.SavedQueryInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read queries folder: %w", err)
	}

	var infos []domain.SavedQueryInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		info := domain.SavedQueryInfo{
			Name: strings.TrimSuffix(entry.Name(), Extension),
			Path: filepath.Join(s.dir, entry.Name()),
		}
		if fi, err := entry.Info(); err == nil {
			info.ModifiedAt = fi.ModTime()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Search returns queries whose name or content contains every keyword,
// case-insensitively. No keywords matches everything.
func (s *Store) Search(keywords []string) ([]domain.SavedQueryMatch, error) {
	infos, err := s.List()
	if err != nil {
		return nil, err
	}

	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}

	var matches []domain.SavedQueryMatch
	for _, info := range infos {
		raw, err := os.ReadFile(info.Path)
		if err != nil {
			s.logger.Warn("saved query unreadable", "path", info.Path, "error", err)
			continue
		}
		text := string(raw)
		haystack := strings.ToLower(info.Name + "\n" + text)
		if !containsAll(haystack, lowered) {
			continue
		}
		matches = append(matches, domain.SavedQueryMatch{
			Name:    info.Name,
			Path:    info.Path,
			Snippet: snippet(text, lowered),
		})
	}
	return matches, nil
}

func containsAll(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(haystack, kw) {
			return false
		}
	}
	return true
}

// snippet picks the first line hit by any keyword, falling back to the
// first non-comment line.
func snippet(text string, keywords []string) string {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		lowered := strings.ToLower(line)
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				return strings.TrimSpace(line)
			}
		}
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "//") {
			return trimmed
		}
	}
	return ""
}
