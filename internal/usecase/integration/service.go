// Package integration keeps the trail of addon delivery outcomes.
package integration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"flaghook/internal/domain/entity"
	"flaghook/internal/repository"
)

const (
	// DefaultListLimit bounds GetEventsForIntegration when no limit is given.
	DefaultListLimit = 50
	// MaxListLimit is the largest accepted limit.
	MaxListLimit = 500
)

// Service stores and queries integration events.
type Service struct {
	Repo   repository.IntegrationEventRepository
	Logger *slog.Logger
	Now    func() time.Time
}

// RegisterEvent stores one delivery outcome.
func (s *Service) RegisterEvent(ctx context.Context, outcome entity.DeliveryOutcome) error {
	if _, err := s.Repo.Insert(ctx, outcome); err != nil {
		return fmt.Errorf("register integration event: %w", err)
	}
	return nil
}

// GetEventsForIntegration lists the newest outcomes of one addon config.
func (s *Service) GetEventsForIntegration(ctx context.Context, integrationID int64, limit int) ([]*entity.IntegrationEvent, error) {
	if integrationID <= 0 {
		return nil, &entity.ValidationError{Field: "id", Message: "must be positive"}
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	events, err := s.Repo.ListByIntegration(ctx, integrationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list integration events: %w", err)
	}
	return events, nil
}

// CleanUp removes outcomes older than retention and returns how many were
// deleted.
func (s *Service) CleanUp(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, &entity.ValidationError{Field: "retention", Message: "must be positive"}
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	cutoff := now().Add(-retention)
	deleted, err := s.Repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clean up integration events: %w", err)
	}
	if s.Logger != nil && deleted > 0 {
		s.Logger.Info("integration events cleaned up",
			slog.Int64("deleted", deleted),
			slog.Time("cutoff", cutoff))
	}
	return deleted, nil
}
