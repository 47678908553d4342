package repository

import (
	"context"

	"flaghook/internal/domain/entity"
)

type TagTypeRepository interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, tagType entity.TagTypeDefinition) error
}
