package domain

import "time"

// HistoryEntry records one query execution, successful or not.
type HistoryEntry struct {
	ID          string
	ProfileName string
	Fingerprint string
	QueryText   string
	Kind        ResultKind
	Category    string
	RowCount    int
	Cached      bool
	DurationMs  int64
	StartedAt   time.Time
}

// HistoryFilter holds filter parameters for listing query history.
type HistoryFilter struct {
	ProfileName string
	Kind        ResultKind
	Limit       int
}
