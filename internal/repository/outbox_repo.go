package repository

import (
	"context"
	"time"

	"tourdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutboxRepository interface {
	Create(ctx context.Context, msg *model.NotificationOutbox) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationOutbox, error)
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.NotificationOutbox, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkRetry(ctx context.Context, id uuid.UUID, attempts int, lastErr string, next time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error
	Requeue(ctx context.Context, id uuid.UUID, now time.Time) error
	List(ctx context.Context, status string, page, limit int) ([]model.NotificationOutbox, int64, error)
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Create(ctx context.Context, msg *model.NotificationOutbox) error {
	return GetDB(ctx, r.db).Create(msg).Error
}

func (r *outboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationOutbox, error) {
	var msg model.NotificationOutbox
	if err := GetDB(ctx, r.db).First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// ClaimDue locks a batch of pending rows; rows locked by another relay are skipped.
// Must run inside a transaction for the lock to hold.
func (r *outboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.NotificationOutbox, error) {
	var rows []model.NotificationOutbox
	err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND next_attempt_at <= ?", model.OutboxPending, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *outboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.NotificationOutbox{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": model.OutboxPublished, "last_error": ""}).Error
}

// scrubSecrets empties the payload of one-time-secret kinds and leaves others untouched.
func scrubSecrets() clause.Expr {
	return gorm.Expr("CASE WHEN kind IN ? THEN '{}' ELSE payload END", model.SecretPayloadKinds)
}

func (r *outboxRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.NotificationOutbox{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OutboxSent,
			"sent_at":    at,
			"last_error": "",
			"payload":    scrubSecrets(),
		}).Error
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, attempts int, lastErr string, next time.Time) error {
	return GetDB(ctx, r.db).Model(&model.NotificationOutbox{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          model.OutboxPending,
			"attempts":        attempts,
			"last_error":      lastErr,
			"next_attempt_at": next,
		}).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	return GetDB(ctx, r.db).Model(&model.NotificationOutbox{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OutboxFailed,
			"attempts":   attempts,
			"last_error": lastErr,
			"payload":    scrubSecrets(),
		}).Error
}

// Requeue moves a FAILED row back to PENDING with a fresh attempt budget.
// Secret-carrying kinds are never requeued.
func (r *outboxRepository) Requeue(ctx context.Context, id uuid.UUID, now time.Time) error {
	res := GetDB(ctx, r.db).Model(&model.NotificationOutbox{}).
		Where("id = ? AND status = ? AND kind NOT IN ?", id, model.OutboxFailed, model.SecretPayloadKinds).
		Updates(map[string]interface{}{
			"status":          model.OutboxPending,
			"attempts":        0,
			"next_attempt_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *outboxRepository) List(ctx context.Context, status string, page, limit int) ([]model.NotificationOutbox, int64, error) {
	var rows []model.NotificationOutbox
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}
	if err := scope(db.Model(&model.NotificationOutbox{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	if err := scope(db.Model(&model.NotificationOutbox{})).Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
