package integration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"flaghook/internal/domain/entity"
	"flaghook/internal/usecase/integration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIntegrationRepo struct {
	inserted  []entity.DeliveryOutcome
	listLimit int
	cutoff    time.Time
	deleted   int64
	err       error
}

func (r *stubIntegrationRepo) Insert(_ context.Context, outcome entity.DeliveryOutcome) (*entity.IntegrationEvent, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.inserted = append(r.inserted, outcome)
	return &entity.IntegrationEvent{ID: int64(len(r.inserted)), DeliveryOutcome: outcome}, nil
}

func (r *stubIntegrationRepo) ListByIntegration(_ context.Context, id int64, limit int) ([]*entity.IntegrationEvent, error) {
	r.listLimit = limit
	if r.err != nil {
		return nil, r.err
	}
	return []*entity.IntegrationEvent{{ID: 1, DeliveryOutcome: entity.DeliveryOutcome{IntegrationID: id}}}, nil
}

func (r *stubIntegrationRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.cutoff = cutoff
	return r.deleted, r.err
}

func TestService_RegisterEvent(t *testing.T) {
	repo := &stubIntegrationRepo{}
	svc := &integration.Service{Repo: repo}

	err := svc.RegisterEvent(context.Background(), entity.DeliveryOutcome{IntegrationID: 7, State: entity.DeliverySuccess})

	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, int64(7), repo.inserted[0].IntegrationID)

	repo.err = errors.New("insert failed")
	err = svc.RegisterEvent(context.Background(), entity.DeliveryOutcome{})
	assert.ErrorContains(t, err, "insert failed")
}

func TestService_GetEventsForIntegration(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{name: "TC-1: default limit", limit: 0, wantLimit: integration.DefaultListLimit},
		{name: "TC-2: explicit limit", limit: 10, wantLimit: 10},
		{name: "TC-3: capped limit", limit: 10_000, wantLimit: integration.MaxListLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubIntegrationRepo{}
			svc := &integration.Service{Repo: repo}

			events, err := svc.GetEventsForIntegration(context.Background(), 4, tt.limit)

			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantLimit, repo.listLimit)
		})
	}

	t.Run("TC-4: rejects non-positive ids", func(t *testing.T) {
		svc := &integration.Service{Repo: &stubIntegrationRepo{}}

		_, err := svc.GetEventsForIntegration(context.Background(), 0, 10)

		assert.ErrorIs(t, err, entity.ErrValidationFailed)
	})
}

func TestService_CleanUp(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	repo := &stubIntegrationRepo{deleted: 3}
	svc := &integration.Service{Repo: repo, Now: func() time.Time { return now }}

	deleted, err := svc.CleanUp(context.Background(), 48*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, now.Add(-48*time.Hour), repo.cutoff)

	_, err = svc.CleanUp(context.Background(), 0)
	assert.ErrorIs(t, err, entity.ErrValidationFailed)
}
