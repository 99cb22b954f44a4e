// Package history surfaces the local execution log and enforces retention.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

// ServiceDeps holds dependencies for Service.
type ServiceDeps struct {
	Repo   domain.HistoryRepository
	Logger *slog.Logger
}

// Service answers questions about past query executions.
type Service struct {
	repo   domain.HistoryRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a history Service.
func NewService(deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   deps.Repo,
		logger: logger.With("component", "history"),
		now:    time.Now,
	}
}

// List returns executions matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	switch filter.Kind {
	case "", domain.ResultKindTable, domain.ResultKindEmpty, domain.ResultKindError:
	default:
		return nil, fmt.Errorf("unknown result kind %q (expected table, empty, or error)", filter.Kind)
	}
	return s.repo.List(ctx, filter)
}

// Prune removes entries older than retention and reports how many were
// deleted.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", retention)
	}
	cutoff := s.now().Add(-retention)
	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("history pruned", "cutoff", cutoff, "deleted", deleted)
	return deleted, nil
}
