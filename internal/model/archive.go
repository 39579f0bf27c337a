package model

import (
	"time"

	"github.com/google/uuid"
)

// ArchiveCategoryUserDocuments is the label stamped on every archived user record
const ArchiveCategoryUserDocuments = "User Documents"

// ArchivedUserDocument is a point-in-time copy of a User moved out of the live table.
// UserID keeps the original user id so a retrieve restores the same identity.
type ArchivedUserDocument struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	FirstName  string    `gorm:"type:varchar(100);not null" json:"first_name"`
	MiddleName string    `gorm:"type:varchar(100)" json:"middle_name"`
	LastName   string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Suffix     string    `gorm:"type:varchar(20)" json:"suffix"`
	Birthday   time.Time `gorm:"type:date;not null" json:"birthday"`
	Age        int       `json:"age"`
	Contact    string    `gorm:"type:varchar(20)" json:"contact"`
	Address    string    `gorm:"type:text" json:"address"`
	Zipcode    string    `gorm:"type:varchar(10)" json:"zipcode"`
	Email      string    `gorm:"type:varchar(255);not null;index" json:"email"`
	Password   string    `gorm:"type:varchar(255);not null" json:"-"`

	VisaPath       *string `gorm:"type:text" json:"visa_path"`
	PassportPath   *string `gorm:"type:text" json:"passport_path"`
	IDFrontPath    *string `gorm:"type:text" json:"id_front_path"`
	IDBackPath     *string `gorm:"type:text" json:"id_back_path"`
	ProfilePicture *string `gorm:"type:text" json:"profile_picture"`

	ApprovalStatus string     `gorm:"type:varchar(20);not null" json:"approval_status"`
	ApprovedBy     *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt     *time.Time `json:"approved_at"`
	DeclineReason  *string    `gorm:"type:text" json:"decline_reason"`
	UserCreatedAt  time.Time  `json:"user_created_at"`

	Category   string     `gorm:"type:varchar(100);not null;index" json:"category"`
	ArchivedAt time.Time  `gorm:"not null;index" json:"archived_at"`
	ArchivedBy *uuid.UUID `gorm:"type:uuid" json:"archived_by"`
}

// TableName keeps the table name used by the dashboards
func (ArchivedUserDocument) TableName() string {
	return "archived_users_documents"
}

// NewArchiveCopy snapshots the live user into an archive row.
func NewArchiveCopy(u *User, archivedBy *uuid.UUID, at time.Time) *ArchivedUserDocument {
	return &ArchivedUserDocument{
		UserID:         u.ID,
		FirstName:      u.FirstName,
		MiddleName:     u.MiddleName,
		LastName:       u.LastName,
		Suffix:         u.Suffix,
		Birthday:       u.Birthday,
		Age:            u.Age,
		Contact:        u.Contact,
		Address:        u.Address,
		Zipcode:        u.Zipcode,
		Email:          u.Email,
		Password:       u.Password,
		VisaPath:       u.VisaPath,
		PassportPath:   u.PassportPath,
		IDFrontPath:    u.IDFrontPath,
		IDBackPath:     u.IDBackPath,
		ProfilePicture: u.ProfilePicture,
		ApprovalStatus: u.ApprovalStatus,
		ApprovedBy:     u.ApprovedBy,
		ApprovedAt:     u.ApprovedAt,
		DeclineReason:  u.DeclineReason,
		UserCreatedAt:  u.CreatedAt,
		Category:       ArchiveCategoryUserDocuments,
		ArchivedAt:     at,
		ArchivedBy:     archivedBy,
	}
}

// RestoredUser rebuilds the live user row under its original id.
// Session and reset state are not carried over.
func (a *ArchivedUserDocument) RestoredUser() *User {
	return &User{
		ID:             a.UserID,
		FirstName:      a.FirstName,
		MiddleName:     a.MiddleName,
		LastName:       a.LastName,
		Suffix:         a.Suffix,
		Birthday:       a.Birthday,
		Age:            a.Age,
		Contact:        a.Contact,
		Address:        a.Address,
		Zipcode:        a.Zipcode,
		Email:          a.Email,
		Password:       a.Password,
		VisaPath:       a.VisaPath,
		PassportPath:   a.PassportPath,
		IDFrontPath:    a.IDFrontPath,
		IDBackPath:     a.IDBackPath,
		ProfilePicture: a.ProfilePicture,
		ApprovalStatus: a.ApprovalStatus,
		ApprovedBy:     a.ApprovedBy,
		ApprovedAt:     a.ApprovedAt,
		DeclineReason:  a.DeclineReason,
		CreatedAt:      a.UserCreatedAt,
	}
}
