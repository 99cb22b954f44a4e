package queries

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

func TestStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), nil)
	path, err := s.Save("slow pages", "pageViews | where duration > 1000", domain.SavedQueryMeta{
		Description: "Pages slower than a second",
		Tags:        []string{"perf", "pages"},
	})
	require.NoError(t, err)
	assert.Equal(t, "slow-pages.kql", filepath.Base(path))

	text, err := s.Load("slow pages")
	require.NoError(t, err)
	assert.Contains(t, text, "// Description: Pages slower than a second")
	assert.Contains(t, text, "// Tags: perf, pages")
	assert.Contains(t, text, "pageViews | where duration > 1000")
}

func TestStore_SaveWithoutMetaHasNoHeader(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), nil)
	path, err := s.Save("bare", "traces | take 1", domain.SavedQueryMeta{})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "traces | take 1\n", string(raw))
}

func TestStore_SaveValidation(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), nil)

	var missing *domain.MissingRequiredFieldError
	_, err := s.Save("   ", "traces", domain.SavedQueryMeta{})
	require.ErrorAs(t, err, &missing)

	_, err = s.Save("named", "  \n ", domain.SavedQueryMeta{})
	require.ErrorAs(t, err, &missing)
}

func TestStore_SaveSanitizesName(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), nil)
	path, err := s.Save("prod/errors last hour!", "exceptions | take 5", domain.SavedQueryMeta{})
	require.NoError(t, err)
	assert.Equal(t, "prod-errors-last-hour.kql", filepath.Base(path))

	// Loading by the original display name resolves to the same file.
	text, err := s.Load("prod/errors last hour!")
	require.NoError(t, err)
	assert.Contains(t, text, "exceptions | take 5")
}

func TestStore_SaveOverwrites(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), nil)
	_, err := s.Save("q", "traces | take 1", domain.SavedQueryMeta{})
	require.NoError(t, err)
	_, err = s.Save("q", "traces | take 2", domain.SavedQueryMeta{})
	require.NoError(t, err)

	text, err := s.Load("q")
	require.NoError(t, err)
	assert.Contains(t, text, "take 2")
	assert.NotContains(t, text, "take 1")
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), nil)
	_, err := s.Load("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestStore_ListSorted(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := s.Save(name, "traces", domain.SavedQueryMeta{})
		require.NoError(t, err)
	}

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.Equal(t, "mid", infos[1].Name)
	assert.Equal(t, "zeta", infos[2].Name)
	assert.False(t, infos[0].ModifiedAt.IsZero())
}

func TestStore_ListMissingFolder(t *testing.T) {
	t.Parallel()

	s := NewStore(filepath.Join(t.TempDir(), "nope"), nil)
	infos, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestStore_ListIgnoresForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewStore(dir, nil)
	_, err := s.Save("real", "traces", domain.SavedQueryMeta{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.kql"), 0o755))

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "real", infos[0].Name)
}

func TestStore_Search(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir(), nil)
	_, err := s.Save("slow pages", "pageViews | where duration > 1000", domain.SavedQueryMeta{Tags: []string{"perf"}})
	require.NoError(t, err)
	_, err = s.Save("recent errors", "exceptions | where timestamp > ago(1h)", domain.SavedQueryMeta{Description: "Errors in the last hour"})
	require.NoError(t, err)
	_, err = s.Save("sessions", "pageViews | summarize count() by session_Id", domain.SavedQueryMeta{})
	require.NoError(t, err)

	t.Run("matches body case-insensitively", func(t *testing.T) {
		matches, err := s.Search([]string{"PAGEVIEWS"})
		require.NoError(t, err)
		require.Len(t, matches, 2)
	})

	t.Run("all keywords must match", func(t *testing.T) {
		matches, err := s.Search([]string{"pageviews", "duration"})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "slow-pages", matches[0].Name)
		assert.Contains(t, matches[0].Snippet, "duration > 1000")
	})

	t.Run("matches metadata header", func(t *testing.T) {
		matches, err := s.Search([]string{"last hour"})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "recent-errors", matches[0].Name)
	})

	t.Run("no hits", func(t *testing.T) {
		matches, err := s.Search([]string{"requests"})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("empty keywords return everything", func(t *testing.T) {
		matches, err := s.Search(nil)
		require.NoError(t, err)
		assert.Len(t, matches, 3)
	})
}
