// Package audit stores domain events emitted by the service and republishes
// them on the event bus.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"flaghook/internal/domain/entity"
	"flaghook/internal/infra/eventbus"
	"flaghook/internal/repository"
)

// Service persists audit events. Stored events are emitted on Bus under
// their type so subscribed addons receive them.
type Service struct {
	Repo   repository.EventRepository
	Bus    eventbus.Bus
	Logger *slog.Logger
}

// StoreEvent persists event and emits the stored form.
func (s *Service) StoreEvent(ctx context.Context, event entity.DomainEvent) error {
	stored, err := s.Repo.Store(ctx, event)
	if err != nil {
		return fmt.Errorf("store event: %w", err)
	}
	if s.Logger != nil {
		s.Logger.Debug("stored audit event",
			slog.String("event_type", string(stored.Type)),
			slog.Int64("event_id", stored.ID))
	}
	if s.Bus != nil {
		s.Bus.Emit(ctx, string(stored.Type), *stored)
	}
	return nil
}
