package service

import (
	"context"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/repository"
	"tourdesk/internal/websocket"

	"go.uber.org/zap"
)

type NotificationResponse struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	Recipient     string  `json:"recipient"`
	Status        string  `json:"status"`
	Attempts      int     `json:"attempts"`
	LastError     string  `json:"last_error,omitempty"`
	NextAttemptAt string  `json:"next_attempt_at"`
	SentAt        *string `json:"sent_at"`
	CreatedAt     string  `json:"created_at"`
}

// NotificationService exposes outbox delivery state to admins
type NotificationService interface {
	List(ctx context.Context, status string, page, limit int) ([]NotificationResponse, int64, error)
	Retry(ctx context.Context, id string) error
}

type notificationService struct {
	repo repository.OutboxRepository
	live ChangePublisher
	log  *zap.Logger
	now  func() time.Time
}

// NewNotificationService returns a new instance of NotificationService
func NewNotificationService(repo repository.OutboxRepository, live ChangePublisher, log *zap.Logger) NotificationService {
	return &notificationService{repo: repo, live: live, log: log, now: time.Now}
}

func (s *notificationService) List(ctx context.Context, status string, page, limit int) ([]NotificationResponse, int64, error) {
	switch status {
	case "", model.OutboxPending, model.OutboxPublished, model.OutboxSent, model.OutboxFailed:
	default:
		return nil, 0, invalid("Invalid delivery status: %s", status)
	}
	page, limit = normalizePage(page, limit)
	rows, total, err := s.repo.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]NotificationResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, NotificationResponse{
			ID:            r.ID.String(),
			Kind:          r.Kind,
			Recipient:     r.Recipient,
			Status:        r.Status,
			Attempts:      r.Attempts,
			LastError:     r.LastError,
			NextAttemptAt: r.NextAttemptAt.Format(timestampLayout),
			SentAt:        formatOptionalTime(r.SentAt),
			CreatedAt:     r.CreatedAt.Format(timestampLayout),
		})
	}
	return out, total, nil
}

// Retry puts a FAILED row back in the relay queue.
func (s *notificationService) Retry(ctx context.Context, id string) error {
	nid, err := parseID(id, "notification")
	if err != nil {
		return err
	}
	row, err := s.repo.FindByID(ctx, nid)
	if err != nil {
		return lookupErr(err, "Notification not found")
	}
	if row.Status != model.OutboxFailed {
		return invalidState("Only failed notifications can be retried")
	}
	if model.IsSecretPayload(row.Kind) {
		return invalidState("Reset codes are not resent. Ask the user to request a new code.")
	}
	if err := s.repo.Requeue(ctx, nid, s.now()); err != nil {
		return lookupErr(err, "Notification not found")
	}
	s.log.Info("notification requeued", zap.String("id", id), zap.String("kind", row.Kind))
	publish(s.live, TableNotifications, websocket.OpUpdate, nid)
	return nil
}
