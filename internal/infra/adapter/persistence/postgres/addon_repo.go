package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"flaghook/internal/domain/entity"
	"flaghook/internal/repository"
)

type AddonRepo struct{ db *sql.DB }

func NewAddonRepo(db *sql.DB) repository.AddonRepository {
	return &AddonRepo{db: db}
}

const addonColumns = `id, provider, enabled, description, parameters, events, projects, environments, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanAddon decodes one addons row; the list columns are JSONB.
func scanAddon(row rowScanner) (*entity.AddonConfig, error) {
	var (
		cfg                                        entity.AddonConfig
		description                                sql.NullString
		params, events, projects, environmentsJSON []byte
	)
	if err := row.Scan(
		&cfg.ID, &cfg.Provider, &cfg.Enabled, &description,
		&params, &events, &projects, &environmentsJSON, &cfg.CreatedAt,
	); err != nil {
		return nil, err
	}
	if description.Valid {
		cfg.Description = &description.String
	}

	targets := []struct {
		column string
		raw    []byte
		dst    any
	}{
		{"parameters", params, &cfg.Parameters},
		{"events", events, &cfg.Events},
		{"projects", projects, &cfg.Projects},
		{"environments", environmentsJSON, &cfg.Environments},
	}
	for _, t := range targets {
		if len(t.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(t.raw, t.dst); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", t.column, err)
		}
	}
	if cfg.Parameters == nil {
		cfg.Parameters = map[string]string{}
	}
	return &cfg, nil
}

// encodeAddon marshals the JSONB columns of an input in column order.
func encodeAddon(in entity.AddonConfigInput) ([]any, error) {
	params := in.Parameters
	if params == nil {
		params = map[string]string{}
	}
	values := []any{params, in.Events, in.Projects, in.Environments}
	encoded := make([]any, 0, len(values))
	for _, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, b)
	}
	return encoded, nil
}

func (repo *AddonRepo) GetAll(ctx context.Context, filter repository.AddonFilter) ([]*entity.AddonConfig, error) {
	query := `SELECT ` + addonColumns + ` FROM addons`
	var args []any
	if filter.Enabled != nil {
		query += ` WHERE enabled = $1`
		args = append(args, *filter.Enabled)
	}
	query += ` ORDER BY id ASC`

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("GetAll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	addons := make([]*entity.AddonConfig, 0, 16)
	for rows.Next() {
		cfg, err := scanAddon(rows)
		if err != nil {
			return nil, fmt.Errorf("GetAll: %w", err)
		}
		addons = append(addons, cfg)
	}
	return addons, rows.Err()
}

func (repo *AddonRepo) Get(ctx context.Context, id int64) (*entity.AddonConfig, error) {
	const query = `SELECT ` + addonColumns + `
FROM addons
WHERE id = $1
LIMIT 1`
	cfg, err := scanAddon(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return cfg, nil
}

func (repo *AddonRepo) Insert(ctx context.Context, in entity.AddonConfigInput) (*entity.AddonConfig, error) {
	encoded, err := encodeAddon(in)
	if err != nil {
		return nil, fmt.Errorf("Insert: marshal: %w", err)
	}

	const query = `
INSERT INTO addons (provider, enabled, description, parameters, events, projects, environments)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + addonColumns
	args := append([]any{in.Provider, in.Enabled, in.Description}, encoded...)
	cfg, err := scanAddon(repo.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("Insert: %w", err)
	}
	return cfg, nil
}

func (repo *AddonRepo) Update(ctx context.Context, id int64, in entity.AddonConfigInput) (*entity.AddonConfig, error) {
	encoded, err := encodeAddon(in)
	if err != nil {
		return nil, fmt.Errorf("Update: marshal: %w", err)
	}

	const query = `
UPDATE addons SET
       provider     = $1,
       enabled      = $2,
       description  = $3,
       parameters   = $4,
       events       = $5,
       projects     = $6,
       environments = $7
WHERE id = $8
RETURNING ` + addonColumns
	args := append([]any{in.Provider, in.Enabled, in.Description}, encoded...)
	args = append(args, id)
	cfg, err := scanAddon(repo.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	return cfg, nil
}

func (repo *AddonRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM addons WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
