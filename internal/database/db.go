package database

import (
	"tourdesk/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormConfig is shared with repository tests. TranslateError maps SQLSTATE 23505
// to gorm.ErrDuplicatedKey, which services report as 409.
func GormConfig(level gormlogger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	}
}

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), GormConfig(gormlogger.Warn))
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.Admin{},
		&model.User{},
		&model.ArchivedUserDocument{},
		&model.Case{},
		&model.Contract{},
		&model.ComplianceRecord{},
		&model.Facility{},
		&model.FacilityReservation{},
		&model.Visitor{},
		&model.AuditLog{},
		&model.NotificationOutbox{},
	)
	if err != nil {
		log.Warn("failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}
