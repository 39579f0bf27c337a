package model

import (
	"time"

	"github.com/google/uuid"
)

// VisitorStatus enum constants
const (
	VisitorExpected   = "Expected"
	VisitorCheckedIn  = "Checked-in"
	VisitorCheckedOut = "Checked-out"
	VisitorCancelled  = "Cancelled"
)

// VisitorRemarks enum constants
const (
	RemarkCompleted   = "Completed"
	RemarkNoShow      = "No Show"
	RemarkRescheduled = "Rescheduled"
	RemarkLeftEarly   = "Left Early"
	RemarkOther       = "Other"
)

// Visitor is a front-desk log entry
type Visitor struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FirstName      string     `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName       string     `gorm:"type:varchar(100);not null" json:"last_name"`
	ContactNumber  string     `gorm:"type:varchar(20);not null" json:"contact_number"`
	Email          string     `gorm:"type:varchar(255)" json:"email"`
	Purpose        string     `gorm:"type:text;not null" json:"purpose"`
	PersonToVisit  string     `gorm:"type:varchar(255);not null" json:"person_to_visit"`
	VisitDate      time.Time  `gorm:"type:date;not null;index" json:"visit_date"`
	ExpectedTimeIn string     `gorm:"type:varchar(5);not null" json:"expected_time_in"` // HH:MM
	TimeIn         *time.Time `json:"time_in"`
	TimeOut        *time.Time `json:"time_out"`
	Status         string     `gorm:"type:varchar(20);not null;default:'Expected';index" json:"status"`
	Remarks        *string    `gorm:"type:varchar(20)" json:"remarks"`
	AdminID        *uuid.UUID `gorm:"type:uuid;index" json:"admin_id"`
	Admin          *Admin     `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
