package service

import (
	"context"
	"testing"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubOutbox struct {
	repository.OutboxRepository
	rows     map[uuid.UUID]model.NotificationOutbox
	requeued []uuid.UUID
}

func (s *stubOutbox) FindByID(_ context.Context, id uuid.UUID) (*model.NotificationOutbox, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (s *stubOutbox) Requeue(_ context.Context, id uuid.UUID, _ time.Time) error {
	s.requeued = append(s.requeued, id)
	return nil
}

func TestNotificationRetry(t *testing.T) {
	failed := model.NotificationOutbox{ID: uuid.New(), Kind: model.NotifyApproval, Status: model.OutboxFailed}
	sent := model.NotificationOutbox{ID: uuid.New(), Kind: model.NotifyDecline, Status: model.OutboxSent}
	reset := model.NotificationOutbox{ID: uuid.New(), Kind: model.NotifyPasswordReset, Status: model.OutboxFailed}
	repo := &stubOutbox{rows: map[uuid.UUID]model.NotificationOutbox{failed.ID: failed, sent.ID: sent, reset.ID: reset}}
	live := &recPublisher{}
	svc := NewNotificationService(repo, live, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Retry(ctx, failed.ID.String()))
	assert.Equal(t, []uuid.UUID{failed.ID}, repo.requeued)
	assert.Len(t, live.events, 1)

	assert.ErrorIs(t, svc.Retry(ctx, sent.ID.String()), ErrInvalidState)

	err := svc.Retry(ctx, reset.ID.String())
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "Reset codes are not resent. Ask the user to request a new code.", err.Error())

	assert.ErrorIs(t, svc.Retry(ctx, uuid.NewString()), ErrNotFound)
	assert.Len(t, repo.requeued, 1)
}
