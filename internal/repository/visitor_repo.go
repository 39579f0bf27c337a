package repository

import (
	"context"
	"time"

	"tourdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VisitorFilter struct {
	Status string
	Search string
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int // 0 means no limit (exports)
}

type VisitorRepository interface {
	Create(ctx context.Context, v *model.Visitor) error
	Update(ctx context.Context, v *model.Visitor) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Visitor, error)
	List(ctx context.Context, filter VisitorFilter) ([]model.Visitor, int64, error)
}

type visitorRepository struct {
	db *gorm.DB
}

func NewVisitorRepository(db *gorm.DB) VisitorRepository {
	return &visitorRepository{db: db}
}

func (r *visitorRepository) Create(ctx context.Context, v *model.Visitor) error {
	return GetDB(ctx, r.db).Omit("Admin").Create(v).Error
}

func (r *visitorRepository) Update(ctx context.Context, v *model.Visitor) error {
	return GetDB(ctx, r.db).Omit("Admin").Save(v).Error
}

func (r *visitorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(GetDB(ctx, r.db), &model.Visitor{}, id)
}

func (r *visitorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Visitor, error) {
	var v model.Visitor
	if err := GetDB(ctx, r.db).Preload("Admin").First(&v, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *visitorRepository) List(ctx context.Context, filter VisitorFilter) ([]model.Visitor, int64, error) {
	var visitors []model.Visitor
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.From != nil {
			q = q.Where("visit_date >= ?", filter.From.Format("2006-01-02"))
		}
		if filter.To != nil {
			q = q.Where("visit_date <= ?", filter.To.Format("2006-01-02"))
		}
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			q = q.Where("first_name ILIKE ? OR last_name ILIKE ? OR person_to_visit ILIKE ? OR contact_number ILIKE ?", like, like, like, like)
		}
		return q
	}

	if err := scope(db.Model(&model.Visitor{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := scope(db.Model(&model.Visitor{})).Preload("Admin").Order("visit_date DESC, expected_time_in ASC")
	if filter.Limit > 0 {
		fetch = fetch.Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit)
	}
	if err := fetch.Find(&visitors).Error; err != nil {
		return nil, 0, err
	}

	return visitors, total, nil
}
