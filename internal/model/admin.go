package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles carried in session tokens
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
	RoleUser       = "user"
)

// Admin is an operator account of the dashboard
type Admin struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FirstName      string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName       string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"type:varchar(255);not null" json:"-"`
	Role           string    `gorm:"type:varchar(20);not null;default:'admin'" json:"role"`
	ProfilePicture *string   `gorm:"type:text" json:"profile_picture"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
