package repository

import (
	"context"

	"tourdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordFilter is shared by the legal record listings
type RecordFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

func (f RecordFilter) apply(q *gorm.DB, searchCols ...string) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" && len(searchCols) > 0 {
		like := "%" + f.Search + "%"
		cond := ""
		args := make([]interface{}, 0, len(searchCols))
		for i, col := range searchCols {
			if i > 0 {
				cond += " OR "
			}
			cond += col + " ILIKE ?"
			args = append(args, like)
		}
		q = q.Where(cond, args...)
	}
	return q
}

func deleteByID(db *gorm.DB, value interface{}, id uuid.UUID) error {
	res := db.Where("id = ?", id).Delete(value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// --- Cases ---

type CaseRepository interface {
	Create(ctx context.Context, c *model.Case) error
	Update(ctx context.Context, c *model.Case) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Case, error)
	FindByNumber(ctx context.Context, number string) (*model.Case, error)
	List(ctx context.Context, filter RecordFilter) ([]model.Case, int64, error)
}

type caseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) CaseRepository {
	return &caseRepository{db: db}
}

func (r *caseRepository) Create(ctx context.Context, c *model.Case) error {
	return GetDB(ctx, r.db).Create(c).Error
}

func (r *caseRepository) Update(ctx context.Context, c *model.Case) error {
	return GetDB(ctx, r.db).Save(c).Error
}

func (r *caseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(GetDB(ctx, r.db), &model.Case{}, id)
}

func (r *caseRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Case, error) {
	var c model.Case
	if err := GetDB(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) FindByNumber(ctx context.Context, number string) (*model.Case, error) {
	var c model.Case
	if err := GetDB(ctx, r.db).First(&c, "case_number = ?", number).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) List(ctx context.Context, filter RecordFilter) ([]model.Case, int64, error) {
	var cases []model.Case
	var total int64
	db := GetDB(ctx, r.db)
	cols := []string{"case_number", "title", "court"}

	if err := filter.apply(db.Model(&model.Case{}), cols...).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (filter.Page - 1) * filter.Limit
	if err := filter.apply(db.Model(&model.Case{}), cols...).Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&cases).Error; err != nil {
		return nil, 0, err
	}
	return cases, total, nil
}

// --- Contracts ---

type ContractRepository interface {
	Create(ctx context.Context, c *model.Contract) error
	Update(ctx context.Context, c *model.Contract) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	FindByNumber(ctx context.Context, number string) (*model.Contract, error)
	List(ctx context.Context, filter RecordFilter) ([]model.Contract, int64, error)
}

type contractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, c *model.Contract) error {
	return GetDB(ctx, r.db).Create(c).Error
}

func (r *contractRepository) Update(ctx context.Context, c *model.Contract) error {
	return GetDB(ctx, r.db).Save(c).Error
}

func (r *contractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(GetDB(ctx, r.db), &model.Contract{}, id)
}

func (r *contractRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var c model.Contract
	if err := GetDB(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contractRepository) FindByNumber(ctx context.Context, number string) (*model.Contract, error) {
	var c model.Contract
	if err := GetDB(ctx, r.db).First(&c, "contract_number = ?", number).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contractRepository) List(ctx context.Context, filter RecordFilter) ([]model.Contract, int64, error) {
	var contracts []model.Contract
	var total int64
	db := GetDB(ctx, r.db)
	cols := []string{"contract_number", "title", "party_name"}

	if err := filter.apply(db.Model(&model.Contract{}), cols...).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (filter.Page - 1) * filter.Limit
	if err := filter.apply(db.Model(&model.Contract{}), cols...).Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&contracts).Error; err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}

// --- Compliance records ---

type ComplianceRepository interface {
	Create(ctx context.Context, c *model.ComplianceRecord) error
	Update(ctx context.Context, c *model.ComplianceRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ComplianceRecord, error)
	FindByNumber(ctx context.Context, number string) (*model.ComplianceRecord, error)
	List(ctx context.Context, filter RecordFilter) ([]model.ComplianceRecord, int64, error)
}

type complianceRepository struct {
	db *gorm.DB
}

func NewComplianceRepository(db *gorm.DB) ComplianceRepository {
	return &complianceRepository{db: db}
}

func (r *complianceRepository) Create(ctx context.Context, c *model.ComplianceRecord) error {
	return GetDB(ctx, r.db).Create(c).Error
}

func (r *complianceRepository) Update(ctx context.Context, c *model.ComplianceRecord) error {
	return GetDB(ctx, r.db).Save(c).Error
}

func (r *complianceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(GetDB(ctx, r.db), &model.ComplianceRecord{}, id)
}

func (r *complianceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ComplianceRecord, error) {
	var c model.ComplianceRecord
	if err := GetDB(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *complianceRepository) FindByNumber(ctx context.Context, number string) (*model.ComplianceRecord, error) {
	var c model.ComplianceRecord
	if err := GetDB(ctx, r.db).First(&c, "compliance_number = ?", number).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *complianceRepository) List(ctx context.Context, filter RecordFilter) ([]model.ComplianceRecord, int64, error) {
	var records []model.ComplianceRecord
	var total int64
	db := GetDB(ctx, r.db)
	cols := []string{"compliance_number", "title", "regulatory_body"}

	if err := filter.apply(db.Model(&model.ComplianceRecord{}), cols...).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (filter.Page - 1) * filter.Limit
	if err := filter.apply(db.Model(&model.ComplianceRecord{}), cols...).Order("due_date ASC").Offset(offset).Limit(filter.Limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
