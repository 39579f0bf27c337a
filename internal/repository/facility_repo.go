package repository

import (
	"context"
	"strings"
	"time"

	"tourdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FacilityFilter struct {
	Category string
	Status   string
	Search   string
	Page     int
	Limit    int
}

type FacilityRepository interface {
	Create(ctx context.Context, facility *model.Facility) error
	Update(ctx context.Context, facility *model.Facility) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Facility, error)
	LockByID(ctx context.Context, id uuid.UUID) (*model.Facility, error)
	FindByPlate(ctx context.Context, plate string) (*model.Facility, error)
	List(ctx context.Context, filter FacilityFilter) ([]model.Facility, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	CreateReservation(ctx context.Context, res *model.FacilityReservation) error
	UpdateReservation(ctx context.Context, res *model.FacilityReservation) error
	FindReservation(ctx context.Context, id uuid.UUID) (*model.FacilityReservation, error)
	ListReservations(ctx context.Context, facilityID uuid.UUID) ([]model.FacilityReservation, error)
	ListActiveOnDate(ctx context.Context, facilityID uuid.UUID, date time.Time) ([]model.FacilityReservation, error)
	CountActiveReservations(ctx context.Context, facilityID uuid.UUID) (int64, error)
}

type facilityRepository struct {
	db *gorm.DB
}

func NewFacilityRepository(db *gorm.DB) FacilityRepository {
	return &facilityRepository{db: db}
}

func (r *facilityRepository) Create(ctx context.Context, facility *model.Facility) error {
	return GetDB(ctx, r.db).Omit("Reservations").Create(facility).Error
}

func (r *facilityRepository) Update(ctx context.Context, facility *model.Facility) error {
	return GetDB(ctx, r.db).Omit("Reservations").Save(facility).Error
}

func (r *facilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(GetDB(ctx, r.db), &model.Facility{}, id)
}

func (r *facilityRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Facility, error) {
	var facility model.Facility
	if err := GetDB(ctx, r.db).Preload("Reservations", func(db *gorm.DB) *gorm.DB {
		return db.Order("reservation_date DESC, start_time ASC")
	}).First(&facility, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &facility, nil
}

// LockByID reads the facility with FOR UPDATE so reservations on it are serialized.
// Only meaningful inside RunInTx.
func (r *facilityRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.Facility, error) {
	var facility model.Facility
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&facility, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &facility, nil
}

// FindByPlate matches plate numbers ignoring case and surrounding whitespace.
func (r *facilityRepository) FindByPlate(ctx context.Context, plate string) (*model.Facility, error) {
	var facility model.Facility
	normalized := strings.ToUpper(strings.TrimSpace(plate))
	if err := GetDB(ctx, r.db).First(&facility, "UPPER(TRIM(plate_number)) = ?", normalized).Error; err != nil {
		return nil, err
	}
	return &facility, nil
}

func (r *facilityRepository) List(ctx context.Context, filter FacilityFilter) ([]model.Facility, int64, error) {
	var facilities []model.Facility
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			q = q.Where("name ILIKE ? OR plate_number ILIKE ? OR driver_name ILIKE ?", like, like, like)
		}
		return q
	}

	if err := scope(db.Model(&model.Facility{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := scope(db.Model(&model.Facility{})).Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&facilities).Error; err != nil {
		return nil, 0, err
	}

	return facilities, total, nil
}

func (r *facilityRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Facility{}).Where("id = ?", id).Update("status", status).Error
}

func (r *facilityRepository) CreateReservation(ctx context.Context, res *model.FacilityReservation) error {
	return GetDB(ctx, r.db).Omit("User").Create(res).Error
}

func (r *facilityRepository) UpdateReservation(ctx context.Context, res *model.FacilityReservation) error {
	return GetDB(ctx, r.db).Omit("User").Save(res).Error
}

func (r *facilityRepository) FindReservation(ctx context.Context, id uuid.UUID) (*model.FacilityReservation, error) {
	var res model.FacilityReservation
	if err := GetDB(ctx, r.db).First(&res, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *facilityRepository) ListReservations(ctx context.Context, facilityID uuid.UUID) ([]model.FacilityReservation, error) {
	var list []model.FacilityReservation
	err := GetDB(ctx, r.db).Preload("User").
		Where("facility_id = ?", facilityID).
		Order("reservation_date DESC, start_time ASC").
		Find(&list).Error
	return list, err
}

func (r *facilityRepository) ListActiveOnDate(ctx context.Context, facilityID uuid.UUID, date time.Time) ([]model.FacilityReservation, error) {
	var list []model.FacilityReservation
	err := GetDB(ctx, r.db).
		Where("facility_id = ? AND reservation_date = ? AND status = ?", facilityID, date.Format("2006-01-02"), model.ReservationReserved).
		Find(&list).Error
	return list, err
}

func (r *facilityRepository) CountActiveReservations(ctx context.Context, facilityID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.FacilityReservation{}).
		Where("facility_id = ? AND status = ?", facilityID, model.ReservationReserved).
		Count(&count).Error
	return count, err
}
