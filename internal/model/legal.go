package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CaseStatus enum constants
const (
	CaseOpen       = "Open"
	CaseInProgress = "In Progress"
	CaseClosed     = "Closed"
	CaseAppealed   = "Appealed"
	CaseDismissed  = "Dismissed"
)

// Priority enum constants
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"
)

// ContractStatus enum constants
const (
	ContractPendingApproval = "Pending Approval"
	ContractActive          = "Active"
	ContractExpired         = "Expired"
	ContractTerminated      = "Terminated"
)

// ComplianceStatus enum constants
const (
	CompliancePending   = "Pending"
	ComplianceSubmitted = "Submitted"
	ComplianceApproved  = "Approved"
	ComplianceRejected  = "Rejected"
	ComplianceOverdue   = "Overdue"
)

// Case is a legal case handled by the operator
type Case struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CaseNumber   string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"case_number"`
	Title        string     `gorm:"type:varchar(255);not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	CaseType     string     `gorm:"type:varchar(100);not null" json:"case_type"`
	Status       string     `gorm:"type:varchar(20);not null;default:'Open';index" json:"status"`
	Priority     string     `gorm:"type:varchar(10);not null;default:'Medium'" json:"priority"`
	FilingDate   time.Time  `gorm:"type:date;not null" json:"filing_date"`
	HearingDate  *time.Time `gorm:"type:date" json:"hearing_date"`
	Court        string     `gorm:"type:varchar(255)" json:"court"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	AdminID      *uuid.UUID `gorm:"type:uuid;index" json:"admin_id"`
	DocumentPath *string    `gorm:"type:text" json:"document_path"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Contract is an agreement with a client or supplier
type Contract struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ContractNumber string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"contract_number"`
	Title          string          `gorm:"type:varchar(255);not null" json:"title"`
	PartyName      string          `gorm:"type:varchar(255);not null" json:"party_name"`
	ContractType   string          `gorm:"type:varchar(100);not null" json:"contract_type"`
	Value          decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"value"`
	Status         string          `gorm:"type:varchar(20);not null;default:'Pending Approval';index" json:"status"`
	StartDate      time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate        time.Time       `gorm:"type:date;not null" json:"end_date"`
	Description    string          `gorm:"type:text" json:"description"`
	UserID         *uuid.UUID      `gorm:"type:uuid;index" json:"user_id"`
	AdminID        *uuid.UUID      `gorm:"type:uuid;index" json:"admin_id"`
	DocumentPath   *string         `gorm:"type:text" json:"document_path"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ComplianceRecord tracks a regulatory filing
type ComplianceRecord struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ComplianceNumber string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"compliance_number"`
	Title            string     `gorm:"type:varchar(255);not null" json:"title"`
	Category         string     `gorm:"type:varchar(100);not null" json:"category"`
	RegulatoryBody   string     `gorm:"type:varchar(255);not null" json:"regulatory_body"`
	Status           string     `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	DueDate          time.Time  `gorm:"type:date;not null" json:"due_date"`
	SubmittedDate    *time.Time `gorm:"type:date" json:"submitted_date"`
	Description      string     `gorm:"type:text" json:"description"`
	UserID           *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	AdminID          *uuid.UUID `gorm:"type:uuid;index" json:"admin_id"`
	DocumentPath     *string    `gorm:"type:text" json:"document_path"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
