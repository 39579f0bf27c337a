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

// UserFilter narrows admin listings of users
type UserFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	LockByEmail(ctx context.Context, email string) (*model.User, error)
	SetResetCode(ctx context.Context, id uuid.UUID, hash *string, expiresAt *time.Time) error
	IncrementResetAttempts(ctx context.Context, id uuid.UUID) (int, error)
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	Upsert(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Approver").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "LOWER(email) = ?", strings.ToLower(email)).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("approval_status = ?", filter.Status)
		}
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			q = q.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ? OR contact ILIKE ?", like, like, like, like)
		}
		return q
	}

	if err := scope(db.Model(&model.User{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := scope(db.Model(&model.User{})).Order("created_at DESC").Offset(offset).Limit(filter.Limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(user).Error
}

// LockByEmail is GetByEmail with FOR UPDATE; call it inside RunInTx.
func (r *userRepository) LockByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "LOWER(email) = ?", strings.ToLower(email)).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetResetCode stores a new code hash with a fresh attempt budget. Nil clears it.
func (r *userRepository) SetResetCode(ctx context.Context, id uuid.UUID, hash *string, expiresAt *time.Time) error {
	return updateColumns(GetDB(ctx, r.db), id, map[string]interface{}{
		"reset_code_hash":       hash,
		"reset_code_expires_at": expiresAt,
		"reset_attempts":        0,
	})
}

// IncrementResetAttempts bumps the counter in SQL and returns the new value.
func (r *userRepository) IncrementResetAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	res := GetDB(ctx, r.db).
		Raw(`UPDATE users SET reset_attempts = reset_attempts + 1 WHERE id = ? RETURNING reset_attempts`, id).
		Scan(&attempts)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return attempts, nil
}

// SetPassword replaces the password hash and ends any reset or session in flight.
func (r *userRepository) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return updateColumns(GetDB(ctx, r.db), id, map[string]interface{}{
		"password":              hash,
		"reset_code_hash":       nil,
		"reset_code_expires_at": nil,
		"reset_attempts":        0,
		"session_token":         nil,
	})
}

func updateColumns(db *gorm.DB, id uuid.UUID, cols map[string]interface{}) error {
	res := db.Model(&model.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Upsert writes the user keyed by its id, replacing every column on conflict.
func (r *userRepository) Upsert(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(user).Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
