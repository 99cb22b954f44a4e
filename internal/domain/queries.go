package domain

import "time"

// SavedQueryMeta is the small metadata header stored with a saved query.
type SavedQueryMeta struct {
	Description string
	Tags        []string
}

// SavedQueryInfo describes one saved query on disk.
type SavedQueryInfo struct {
	Name       string
	Path       string
	ModifiedAt time.Time
}

// SavedQueryMatch is one keyword-search hit over the saved-query store.
type SavedQueryMatch struct {
	Name    string
	Path    string
	Snippet string
}

// SavedQueryStore saves and retrieves reusable queries. The on-disk format
// is deliberately minimal; only this contract is relied upon.
// Implemented by queries.Store.
type SavedQueryStore interface {
	Save(name, text string, meta SavedQueryMeta) (string, error)
	Search(keywords []string) ([]SavedQueryMatch, error)
	List() ([]SavedQueryInfo, error)
	Load(name string) (string, error)
}
