package model

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus enum constants
const (
	ApprovalPending  = "Pending"
	ApprovalApproved = "Approved"
	ApprovalDeclined = "Declined"
)

// Document kinds accepted for user identity uploads
const (
	DocVisa     = "visa"
	DocPassport = "passport"
	DocIDFront  = "id_front"
	DocIDBack   = "id_back"
)

// User represents an applicant account managed from the admin dashboard
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FirstName  string    `gorm:"type:varchar(100);not null" json:"first_name"`
	MiddleName string    `gorm:"type:varchar(100)" json:"middle_name"`
	LastName   string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Suffix     string    `gorm:"type:varchar(20)" json:"suffix"`
	Birthday   time.Time `gorm:"type:date;not null" json:"birthday"`
	Age        int       `gorm:"not null" json:"age"`
	Contact    string    `gorm:"type:varchar(20);not null" json:"contact"`
	Address    string    `gorm:"type:text;not null" json:"address"`
	Zipcode    string    `gorm:"type:varchar(10);not null" json:"zipcode"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash

	// Storage paths inside the user-documents bucket
	VisaPath       *string `gorm:"type:text" json:"visa_path"`
	PassportPath   *string `gorm:"type:text" json:"passport_path"`
	IDFrontPath    *string `gorm:"type:text" json:"id_front_path"`
	IDBackPath     *string `gorm:"type:text" json:"id_back_path"`
	ProfilePicture *string `gorm:"type:text" json:"profile_picture"`

	ApprovalStatus string     `gorm:"type:varchar(20);not null;default:'Pending';index" json:"approval_status"`
	ApprovedBy     *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	Approver       *Admin     `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at"`
	DeclineReason  *string    `gorm:"type:text" json:"decline_reason"`
	SessionToken   *string    `gorm:"type:varchar(64)" json:"-"` // sid of the only valid session

	ResetCodeHash      *string    `gorm:"type:varchar(255)" json:"-"`
	ResetCodeExpiresAt *time.Time `json:"-"`
	ResetAttempts      int        `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FullName joins the populated name parts.
func (u *User) FullName() string {
	name := u.FirstName
	if u.MiddleName != "" {
		name += " " + u.MiddleName
	}
	name += " " + u.LastName
	if u.Suffix != "" {
		name += " " + u.Suffix
	}
	return name
}

// DocumentPath returns a pointer to the document field for kind, or nil for an unknown kind.
func (u *User) DocumentPath(kind string) **string {
	switch kind {
	case DocVisa:
		return &u.VisaPath
	case DocPassport:
		return &u.PassportPath
	case DocIDFront:
		return &u.IDFrontPath
	case DocIDBack:
		return &u.IDBackPath
	}
	return nil
}

// AgeOn computes completed years between birthday and now.
func AgeOn(birthday, now time.Time) int {
	age := now.Year() - birthday.Year()
	if now.Month() < birthday.Month() || (now.Month() == birthday.Month() && now.Day() < birthday.Day()) {
		age--
	}
	return age
}
