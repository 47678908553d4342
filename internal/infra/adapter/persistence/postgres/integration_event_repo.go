package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"flaghook/internal/domain/entity"
	"flaghook/internal/repository"
)

type IntegrationEventRepo struct{ db *sql.DB }

func NewIntegrationEventRepo(db *sql.DB) repository.IntegrationEventRepository {
	return &IntegrationEventRepo{db: db}
}

func (repo *IntegrationEventRepo) Insert(ctx context.Context, outcome entity.DeliveryOutcome) (*entity.IntegrationEvent, error) {
	eventJSON, err := json.Marshal(outcome.Event)
	if err != nil {
		return nil, fmt.Errorf("Insert: marshal event: %w", err)
	}
	detailsJSON, err := json.Marshal(outcome.Details)
	if err != nil {
		return nil, fmt.Errorf("Insert: marshal details: %w", err)
	}

	const query = `
INSERT INTO integration_events (integration_id, state, state_details, event, details)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`
	stored := &entity.IntegrationEvent{DeliveryOutcome: outcome}
	err = repo.db.QueryRowContext(ctx, query,
		outcome.IntegrationID, string(outcome.State), outcome.StateDetails, eventJSON, detailsJSON,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("Insert: %w", err)
	}
	return stored, nil
}

func (repo *IntegrationEventRepo) ListByIntegration(ctx context.Context, integrationID int64, limit int) ([]*entity.IntegrationEvent, error) {
	const query = `
SELECT id, integration_id, state, state_details, event, details, created_at
FROM integration_events
WHERE integration_id = $1
ORDER BY id DESC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, integrationID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListByIntegration: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]*entity.IntegrationEvent, 0, limit)
	for rows.Next() {
		var (
			ev                     entity.IntegrationEvent
			state                  string
			eventJSON, detailsJSON []byte
		)
		if err := rows.Scan(&ev.ID, &ev.IntegrationID, &state, &ev.StateDetails,
			&eventJSON, &detailsJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListByIntegration: %w", err)
		}
		ev.State = entity.DeliveryState(state)
		if err := json.Unmarshal(eventJSON, &ev.Event); err != nil {
			return nil, fmt.Errorf("ListByIntegration: unmarshal event: %w", err)
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &ev.Details); err != nil {
				return nil, fmt.Errorf("ListByIntegration: unmarshal details: %w", err)
			}
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func (repo *IntegrationEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM integration_events WHERE created_at < $1`
	res, err := repo.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
