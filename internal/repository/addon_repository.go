package repository

import (
	"context"

	"flaghook/internal/domain/entity"
)

// AddonFilter narrows AddonRepository.GetAll. A nil Enabled returns every config.
type AddonFilter struct {
	Enabled *bool
}

type AddonRepository interface {
	GetAll(ctx context.Context, filter AddonFilter) ([]*entity.AddonConfig, error)
	Get(ctx context.Context, id int64) (*entity.AddonConfig, error)
	Insert(ctx context.Context, in entity.AddonConfigInput) (*entity.AddonConfig, error)
	Update(ctx context.Context, id int64, in entity.AddonConfigInput) (*entity.AddonConfig, error)
	Delete(ctx context.Context, id int64) error
}
