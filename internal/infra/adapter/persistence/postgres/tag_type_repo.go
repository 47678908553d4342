package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"flaghook/internal/domain/entity"
	"flaghook/internal/repository"
)

type TagTypeRepo struct{ db *sql.DB }

func NewTagTypeRepo(db *sql.DB) repository.TagTypeRepository {
	return &TagTypeRepo{db: db}
}

func (repo *TagTypeRepo) Exists(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM tag_types WHERE name = $1)`
	var exists bool
	if err := repo.db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return exists, nil
}

func (repo *TagTypeRepo) Create(ctx context.Context, tagType entity.TagTypeDefinition) error {
	const query = `
INSERT INTO tag_types (name, description, icon)
VALUES ($1, $2, $3)`
	if _, err := repo.db.ExecContext(ctx, query, tagType.Name, tagType.Description, tagType.Icon); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}
