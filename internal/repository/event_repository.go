package repository

import (
	"context"

	"flaghook/internal/domain/entity"
)

type EventRepository interface {
	Store(ctx context.Context, event entity.DomainEvent) (*entity.Event, error)
}
