package repository

import (
	"context"
	"time"

	"riverwatch/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationFilter narrows notification listings
type NotificationFilter struct {
	Type       string
	UnreadOnly bool
	Page       int
	Limit      int
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateBatch(ctx context.Context, ns []model.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filter NotificationFilter) ([]model.Notification, int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	CountByType(ctx context.Context, userID uuid.UUID) (map[string]int64, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteBatch(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return GetDB(ctx, r.db).Create(n).Error
}

func (r *notificationRepository) CreateBatch(ctx context.Context, ns []model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&ns).Error
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	if err := GetDB(ctx, r.db).First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, filter NotificationFilter) ([]model.Notification, int64, error) {
	db := GetDB(ctx, r.db).Model(&model.Notification{}).Where("user_id = ?", userID)

	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.UnreadOnly {
		db = db.Where("read_at IS NULL")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ns []model.Notification
	offset := (filter.Page - 1) * filter.Limit
	if err := db.Order("created_at desc").Offset(offset).Limit(filter.Limit).
		Find(&ns).Error; err != nil {
		return nil, 0, err
	}

	return ns, total, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) CountByType(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err := GetDB(ctx, r.db).Model(&model.Notification{}).
		Select("type, count(*) as count").
		Where("user_id = ?", userID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Type] = row.Count
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	now := time.Now()
	res := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("user_id = ? AND id IN ? AND read_at IS NULL", userID, ids).
		Update("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := time.Now()
	res := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) DeleteBatch(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}
