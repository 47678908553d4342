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

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) repository.EventRepository {
	return &EventRepo{db: db}
}

// Store appends an audit event and returns it in bus shape.
func (repo *EventRepo) Store(ctx context.Context, event entity.DomainEvent) (*entity.Event, error) {
	data, err := marshalNullable(event.Data)
	if err != nil {
		return nil, fmt.Errorf("Store: marshal data: %w", err)
	}
	preData, err := marshalNullable(event.PreData)
	if err != nil {
		return nil, fmt.Errorf("Store: marshal pre_data: %w", err)
	}

	const query = `
INSERT INTO events (type, created_by, created_by_user_id, ip, data, pre_data)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`
	stored := event.AsEvent(0, time.Time{})
	err = repo.db.QueryRowContext(ctx, query,
		string(event.Type), event.CreatedBy, event.CreatedByUserID, event.IP, data, preData,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("Store: %w", err)
	}
	return &stored, nil
}

// marshalNullable keeps absent maps as SQL NULL instead of 'null'::jsonb.
func marshalNullable(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
