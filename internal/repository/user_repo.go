package repository

import (
	"context"
	"time"

	"riverwatch/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserFilter narrows user listings
type UserFilter struct {
	RoleCode string
	Status   string
	AreaID   *uuid.UUID
	Keyword  string
	Page     int
	Limit    int
}

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error

	RecordSession(ctx context.Context, session *model.UserSession) error
	RevokeSessions(ctx context.Context, userID uuid.UUID) error
	RemoveFromRosters(ctx context.Context, userID uuid.UUID) error
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
	if err := GetDB(ctx, r.db).Preload("Role").Preload("Area").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Role").First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]model.User, int64, error) {
	db := GetDB(ctx, r.db).Model(&model.User{})

	if filter.RoleCode != "" {
		db = db.Joins("JOIN roles ON roles.id = users.role_id").Where("roles.code = ?", filter.RoleCode)
	}
	if filter.Status != "" {
		db = db.Where("users.status = ?", filter.Status)
	}
	if filter.AreaID != nil {
		db = db.Where("users.area_id = ?", *filter.AreaID)
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		db = db.Where("users.username ILIKE ? OR users.name ILIKE ?", like, like)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	offset := (filter.Page - 1) * filter.Limit
	if err := db.Preload("Role").Preload("Area").
		Order("users.created_at desc").Offset(offset).Limit(filter.Limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Save(user).Error
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.User{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.User{}).Error
}

func (r *userRepository) RecordSession(ctx context.Context, session *model.UserSession) error {
	return GetDB(ctx, r.db).Create(session).Error
}

func (r *userRepository) RevokeSessions(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	return GetDB(ctx, r.db).Model(&model.UserSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
}

func (r *userRepository) RemoveFromRosters(ctx context.Context, userID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("user_id = ?", userID).
		Delete(&model.AreaMaintenanceWorker{}).Error
}
