package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionApproveUser   = "APPROVE_USER"
	ActionDeclineUser   = "DECLINE_USER"
	ActionSetPending    = "SET_USER_PENDING"
	ActionCreateUser    = "CREATE_USER"
	ActionUpdateUser    = "UPDATE_USER"
	ActionDeleteUser    = "DELETE_USER"
	ActionArchiveUser   = "ARCHIVE_USER"
	ActionRetrieveUser  = "RETRIEVE_USER"
	ActionUploadUserDoc = "UPLOAD_USER_DOCUMENT"
	ActionResetPassword = "RESET_PASSWORD"

	ActionCreateCase       = "CREATE_CASE"
	ActionUpdateCase       = "UPDATE_CASE"
	ActionDeleteCase       = "DELETE_CASE"
	ActionCreateContract   = "CREATE_CONTRACT"
	ActionUpdateContract   = "UPDATE_CONTRACT"
	ActionDeleteContract   = "DELETE_CONTRACT"
	ActionCreateCompliance = "CREATE_COMPLIANCE"
	ActionUpdateCompliance = "UPDATE_COMPLIANCE"
	ActionDeleteCompliance = "DELETE_COMPLIANCE"

	ActionCreateFacility      = "CREATE_FACILITY"
	ActionUpdateFacility      = "UPDATE_FACILITY"
	ActionDeleteFacility      = "DELETE_FACILITY"
	ActionCreateReservation   = "CREATE_RESERVATION"
	ActionCancelReservation   = "CANCEL_RESERVATION"
	ActionCompleteReservation = "COMPLETE_RESERVATION"

	ActionCreateVisitor   = "CREATE_VISITOR"
	ActionUpdateVisitor   = "UPDATE_VISITOR"
	ActionDeleteVisitor   = "DELETE_VISITOR"
	ActionVisitorCheckIn  = "VISITOR_CHECK_IN"
	ActionVisitorCheckOut = "VISITOR_CHECK_OUT"
	ActionVisitorCancel   = "VISITOR_CANCEL"
)

// AuditLog tracks Who, What, and When for admin actions
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AdminID    *uuid.UUID `gorm:"type:uuid;index" json:"admin_id"` // nil for self-service or system actions
	Admin      *Admin     `gorm:"foreignKey:AdminID" json:"admin"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
