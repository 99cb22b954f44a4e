// Package repository implements SQLite-backed persistence for the runtime's
// domain repositories.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

var _ domain.HistoryRepository = (*HistoryRepo)(nil)

// defaultListLimit bounds unfiltered history listings.
const defaultListLimit = 50

// HistoryRepo stores query execution records in SQLite.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Insert appends one execution record.
func (r *HistoryRepo) Insert(ctx context.Context, entry *domain.HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("history entry is required")
	}
	if entry.ID == "" {
		return fmt.Errorf("history entry id is required")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO query_history (id, profile_name, fingerprint, query_text, kind, category,
		                           row_count, cached, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.ProfileName, entry.Fingerprint, entry.QueryText, string(entry.Kind),
		entry.Category, entry.RowCount, entry.Cached, entry.DurationMs, entry.StartedAt)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// List returns execution records, newest first. Empty filter fields match
// everything.
func (r *HistoryRepo) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, profile_name, fingerprint, query_text, kind, category,
		       row_count, cached, duration_ms, started_at
		FROM query_history
		WHERE (? = '' OR profile_name = ?)
		  AND (? = '' OR kind = ?)
		ORDER BY started_at DESC, id
		LIMIT ?
	`, filter.ProfileName, filter.ProfileName, string(filter.Kind), string(filter.Kind), limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		var kind string
		if err := rows.Scan(&entry.ID, &entry.ProfileName, &entry.Fingerprint, &entry.QueryText,
			&kind, &entry.Category, &entry.RowCount, &entry.Cached, &entry.DurationMs,
			&entry.StartedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.Kind = domain.ResultKind(kind)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// DeleteBefore removes entries started before cutoff.
func (r *HistoryRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM query_history WHERE started_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history count: %w", err)
	}
	return deleted, nil
}
