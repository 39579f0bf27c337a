package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/obs"
	"tourdesk/internal/repository"
)

// Outbox writes notification rows through whatever transaction ctx carries
type Outbox struct {
	repo repository.OutboxRepository
	now  func() time.Time
}

func NewOutbox(repo repository.OutboxRepository) *Outbox {
	return &Outbox{repo: repo, now: time.Now}
}

// Enqueue stores msg as PENDING, due immediately.
func (o *Outbox) Enqueue(ctx context.Context, msg Message) error {
	if !KnownKind(msg.Kind) {
		return fmt.Errorf("notify: unknown kind %q", msg.Kind)
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("notify: %s notification has no recipient", msg.Kind)
	}

	payload := []byte("{}")
	if len(msg.Data) > 0 {
		var err error
		if payload, err = json.Marshal(msg.Data); err != nil {
			return fmt.Errorf("notify: encode payload: %w", err)
		}
	}

	row := &model.NotificationOutbox{
		Kind:          msg.Kind,
		Recipient:     msg.To,
		FirstName:     msg.FirstName,
		Payload:       string(payload),
		Status:        model.OutboxPending,
		NextAttemptAt: o.now(),
	}
	if err := o.repo.Create(ctx, row); err != nil {
		return fmt.Errorf("failed to queue %s notification: %w", msg.Kind, err)
	}
	obs.NotificationsTotal.WithLabelValues(msg.Kind, "enqueued").Inc()
	return nil
}

// EnvelopeFromRow decodes a stored outbox row
func EnvelopeFromRow(row *model.NotificationOutbox) (Envelope, error) {
	env := Envelope{OutboxID: row.ID, Kind: row.Kind, To: row.Recipient, FirstName: row.FirstName}
	if row.Payload != "" {
		if err := json.Unmarshal([]byte(row.Payload), &env.Data); err != nil {
			return env, fmt.Errorf("notify: decode payload of %s: %w", row.ID, err)
		}
	}
	return env, nil
}
