package repository

import (
	"context"

	"tourdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ArchiveRepository interface {
	Create(ctx context.Context, doc *model.ArchivedUserDocument) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ArchivedUserDocument, error)
	List(ctx context.Context, search string, page, limit int) ([]model.ArchivedUserDocument, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type archiveRepository struct {
	db *gorm.DB
}

func NewArchiveRepository(db *gorm.DB) ArchiveRepository {
	return &archiveRepository{db: db}
}

func (r *archiveRepository) Create(ctx context.Context, doc *model.ArchivedUserDocument) error {
	return GetDB(ctx, r.db).Create(doc).Error
}

func (r *archiveRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ArchivedUserDocument, error) {
	var doc model.ArchivedUserDocument
	if err := GetDB(ctx, r.db).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *archiveRepository) List(ctx context.Context, search string, page, limit int) ([]model.ArchivedUserDocument, int64, error) {
	var docs []model.ArchivedUserDocument
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if search != "" {
			like := "%" + search + "%"
			q = q.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", like, like, like)
		}
		return q
	}
	if err := scope(db.Model(&model.ArchivedUserDocument{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := scope(db.Model(&model.ArchivedUserDocument{})).Order("archived_at DESC").Offset(offset).Limit(limit).Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *archiveRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.ArchivedUserDocument{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
