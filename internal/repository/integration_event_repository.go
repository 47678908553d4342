package repository

import (
	"context"
	"time"

	"flaghook/internal/domain/entity"
)

type IntegrationEventRepository interface {
	Insert(ctx context.Context, outcome entity.DeliveryOutcome) (*entity.IntegrationEvent, error)
	ListByIntegration(ctx context.Context, integrationID int64, limit int) ([]*entity.IntegrationEvent, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
