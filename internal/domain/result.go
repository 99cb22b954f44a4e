package domain

import "time"

// ResultKind discriminates the query result envelope.
type ResultKind string

const (
	ResultKindTable ResultKind = "table"
	ResultKindEmpty ResultKind = "empty"
	ResultKindError ResultKind = "error"
)

// Column describes one result column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// QueryResult is the uniform envelope every query path returns: a table, an
// empty table, or a typed error with remediation category. Execute never
// propagates errors; it encodes them here.
type QueryResult struct {
	Kind     ResultKind      `json:"type"`
	Columns  []Column        `json:"columns,omitempty"`
	Rows     [][]interface{} `json:"rows,omitempty"`
	RowCount int             `json:"rowCount"`
	Cached   bool            `json:"cached"`

	// Summary and Category are set only for error results. Category is one
	// of the Category* constants so callers can render distinct remediation
	// guidance per failure area.
	Summary  string `json:"summary,omitempty"`
	Category string `json:"category,omitempty"`
}

// NewTableResult builds a table (or empty) result from backend columns/rows.
func NewTableResult(columns []Column, rows [][]interface{}) *QueryResult {
	kind := ResultKindTable
	if len(rows) == 0 {
		kind = ResultKindEmpty
	}
	return &QueryResult{
		Kind:     kind,
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
	}
}

// NewErrorResult converts err into an error envelope with its taxonomy
// category attached.
func NewErrorResult(err error) *QueryResult {
	return &QueryResult{
		Kind:     ResultKindError,
		Summary:  err.Error(),
		Category: ErrorCategory(err),
	}
}

// IsError reports whether the envelope carries a failure.
func (r *QueryResult) IsError() bool { return r.Kind == ResultKindError }

// CacheEntry is the persisted form of one cached query result. Validity is
// evaluated on every read: an entry is live iff now-Timestamp <= TTLSeconds.
type CacheEntry struct {
	Data       QueryResult `json:"data"`
	Timestamp  time.Time   `json:"timestamp"`
	TTLSeconds int         `json:"ttlSeconds"`
}

// Expired reports whether the entry is stale at the given instant. The
// boundary is inclusive: an entry written at t0 with TTL 3600 is still live
// at exactly t0+3600s.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > time.Duration(e.TTLSeconds)*time.Second
}

// CacheStats summarizes one profile cache: in-memory hit/miss counters plus
// an on-disk scan. Size counts parseable persisted entries regardless of
// freshness; Corrupt counts undecodable files separately.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Size    int   `json:"size"`
	Corrupt int   `json:"corrupt"`
}

// CacheClearStats reports a bulk clear. Per-entry failures never abort the
// remaining deletions; they are counted here instead.
type CacheClearStats struct {
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}
