package tagtype

import (
	"context"
	"fmt"
	"log/slog"

	"flaghook/internal/domain/entity"
	"flaghook/internal/repository"
)

// Service registers tag types.
type Service struct {
	Repo   repository.TagTypeRepository
	Logger *slog.Logger
}

// ValidateUnique returns ErrNameExists when name is taken.
func (s *Service) ValidateUnique(ctx context.Context, name string) error {
	exists, err := s.Repo.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("check tag type: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrNameExists, name)
	}
	return nil
}

// CreateTagType stores def. The name must be unique.
func (s *Service) CreateTagType(ctx context.Context, def entity.TagTypeDefinition, by entity.AuditUser) error {
	if def.Name == "" {
		return &entity.ValidationError{Field: "name", Message: "is required"}
	}
	if err := s.ValidateUnique(ctx, def.Name); err != nil {
		return err
	}
	if err := s.Repo.Create(ctx, def); err != nil {
		return fmt.Errorf("create tag type: %w", err)
	}
	if s.Logger != nil {
		s.Logger.Info("tag type created",
			slog.String("tag_type", def.Name),
			slog.String("created_by", by.Username))
	}
	return nil
}
