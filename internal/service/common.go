package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tourdesk/internal/model"
	"tourdesk/internal/notify"
	"tourdesk/internal/repository"
	"tourdesk/internal/websocket"

	"github.com/google/uuid"
)

// Tables named in change events
const (
	TableUsers         = "users"
	TableArchivedUsers = "archived_users_documents"
	TableCases         = "cases"
	TableContracts     = "contracts"
	TableCompliance    = "compliance_records"
	TableFacilities    = "facilities"
	TableReservations  = "facility_reservations"
	TableVisitors      = "visitors"
	TableNotifications = "notification_outbox"
)

const (
	timestampLayout     = "2006-01-02T15:04:05Z07:00"
	dateLayout          = "2006-01-02"
	defaultPageSize     = 20
	maxPageSize         = 100
	minPasswordLength   = 8
	minimumApplicantAge = 18
)

// ChangePublisher fans change events out to live dashboards
type ChangePublisher interface {
	Publish(ev websocket.ChangeEvent)
}

// Notifier queues an email within the caller's transaction
type Notifier interface {
	Enqueue(ctx context.Context, msg notify.Message) error
}

func publish(p ChangePublisher, table, op string, id uuid.UUID) {
	if p == nil {
		return
	}
	p.Publish(websocket.ChangeEvent{Table: table, Type: op, ID: id.String(), At: time.Now()})
}

// actorID parses the authenticated admin id; system actions carry none.
func actorID(id string) *uuid.UUID {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	return &parsed
}

func parseID(id, label string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, invalid("Invalid %s id", label)
	}
	return parsed, nil
}

func optionalID(id, label string) (*uuid.UUID, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	parsed, err := parseID(id, label)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, admin *uuid.UUID, action, entityID, entityName string, details interface{}) error {
	raw := []byte("{}")
	if details != nil {
		var err error
		if raw, err = json.Marshal(details); err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
	}
	entry := &model.AuditLog{
		AdminID:    admin,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(raw),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func parseDate(v string) time.Time {
	t, _ := time.Parse(dateLayout, strings.TrimSpace(v))
	return t
}

func parseOptionalDate(v string) *time.Time {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	t := parseDate(v)
	return &t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timestampLayout)
	return &s
}

func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
