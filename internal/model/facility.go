package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FacilityCategory enum constants
const (
	FacilityVIP      = "VIP"
	FacilityPremium  = "Premium"
	FacilityStandard = "Standard"
)

// FacilityStatus enum constants
const (
	FacilityAvailable        = "Available"
	FacilityReserved         = "Reserved"
	FacilityUnderMaintenance = "Under Maintenance"
)

// ReservationStatus enum constants
const (
	ReservationReserved  = "Reserved"
	ReservationCancelled = "Cancelled"
	ReservationCompleted = "Completed"
)

// Facility is a vehicle unit with its assigned driver
type Facility struct {
	ID            uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string                `gorm:"type:varchar(255);not null" json:"name"`
	Category      string                `gorm:"type:varchar(20);not null;index" json:"category"`
	VehicleType   string                `gorm:"type:varchar(100);not null" json:"vehicle_type"`
	PlateNumber   string                `gorm:"type:varchar(20);uniqueIndex;not null" json:"plate_number"`
	Capacity      int                   `gorm:"not null" json:"capacity"`
	DriverName    string                `gorm:"type:varchar(255);not null" json:"driver_name"`
	DriverContact string                `gorm:"type:varchar(20);not null" json:"driver_contact"`
	DailyRate     decimal.Decimal       `gorm:"type:decimal(12,2);not null;default:0" json:"daily_rate"`
	Status        string                `gorm:"type:varchar(20);not null;default:'Available';index" json:"status"`
	ImagePath     *string               `gorm:"type:text" json:"image_path"`
	Reservations  []FacilityReservation `gorm:"foreignKey:FacilityID;constraint:OnDelete:CASCADE" json:"reservations,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// FacilityReservation books a facility for a time range on one day
type FacilityReservation struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FacilityID      uuid.UUID `gorm:"type:uuid;not null;index" json:"facility_id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User            *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	ReservationDate time.Time `gorm:"type:date;not null;index" json:"reservation_date"`
	StartTime       string    `gorm:"type:varchar(5);not null" json:"start_time"` // HH:MM
	EndTime         string    `gorm:"type:varchar(5);not null" json:"end_time"`
	Purpose         string    `gorm:"type:text" json:"purpose"`
	Status          string    `gorm:"type:varchar(20);not null;default:'Reserved'" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
