package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds
const (
	NotifyApproval      = "approval"
	NotifyDecline       = "decline"
	NotifyDeletion      = "deletion"
	NotifyArchival      = "archival"
	NotifyRetrieval     = "retrieval"
	NotifyPasswordReset = "password_reset"
)

// SecretPayloadKinds carry one-time secrets; their payload is wiped once delivery
// settles and they are never resent.
var SecretPayloadKinds = []string{NotifyPasswordReset}

// IsSecretPayload reports whether rows of kind must not outlive their delivery.
func IsSecretPayload(kind string) bool {
	for _, k := range SecretPayloadKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Outbox delivery states
const (
	OutboxPending   = "PENDING"
	OutboxPublished = "PUBLISHED"
	OutboxSent      = "SENT"
	OutboxFailed    = "FAILED"
)

// NotificationOutbox is an email queued in the same transaction as the change that caused it
type NotificationOutbox struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind          string     `gorm:"type:varchar(30);not null;index" json:"kind"`
	Recipient     string     `gorm:"type:varchar(255);not null" json:"recipient"`
	FirstName     string     `gorm:"type:varchar(100)" json:"first_name"`
	Payload       string     `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	Status        string     `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_outbox_due,priority:1" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	LastError     string     `gorm:"type:text" json:"last_error"`
	NextAttemptAt time.Time  `gorm:"not null;index:idx_outbox_due,priority:2" json:"next_attempt_at"`
	SentAt        *time.Time `json:"sent_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName keeps a readable table name
func (NotificationOutbox) TableName() string {
	return "notification_outbox"
}
