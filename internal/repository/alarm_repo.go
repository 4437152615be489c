package repository

import (
	"context"

	"riverwatch/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlarmFilter narrows alarm listings
type AlarmFilter struct {
	Status   string
	Statuses []string
	Type     string
	Level    string
	AreaID   *uuid.UUID
	Page     int
	Limit    int
}

type AlarmRepository interface {
	Create(ctx context.Context, alarm *model.Alarm) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Alarm, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Alarm, error)
	List(ctx context.Context, filter AlarmFilter) ([]model.Alarm, int64, error)
	Update(ctx context.Context, alarm *model.Alarm) error
	UpdateBatch(ctx context.Context, ids []uuid.UUID, fields map[string]interface{}) error
}

type alarmRepository struct {
	db *gorm.DB
}

func NewAlarmRepository(db *gorm.DB) AlarmRepository {
	return &alarmRepository{db: db}
}

func (r *alarmRepository) Create(ctx context.Context, alarm *model.Alarm) error {
	return GetDB(ctx, r.db).Create(alarm).Error
}

func (r *alarmRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Alarm, error) {
	var alarm model.Alarm
	if err := GetDB(ctx, r.db).
		Preload("Area").Preload("Device").
		Preload("Confirmer").Preload("Resolver").
		First(&alarm, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &alarm, nil
}

func (r *alarmRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Alarm, error) {
	var alarms []model.Alarm
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&alarms).Error; err != nil {
		return nil, err
	}
	return alarms, nil
}

func (r *alarmRepository) List(ctx context.Context, filter AlarmFilter) ([]model.Alarm, int64, error) {
	db := GetDB(ctx, r.db).Model(&model.Alarm{})

	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.Level != "" {
		db = db.Where("level = ?", filter.Level)
	}
	if filter.AreaID != nil {
		db = db.Where("area_id = ?", *filter.AreaID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var alarms []model.Alarm
	offset := (filter.Page - 1) * filter.Limit
	if err := db.Preload("Area").Preload("Device").
		Order("created_at desc").Offset(offset).Limit(filter.Limit).
		Find(&alarms).Error; err != nil {
		return nil, 0, err
	}

	return alarms, total, nil
}

func (r *alarmRepository) Update(ctx context.Context, alarm *model.Alarm) error {
	return GetDB(ctx, r.db).Save(alarm).Error
}

func (r *alarmRepository) UpdateBatch(ctx context.Context, ids []uuid.UUID, fields map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.Alarm{}).
		Where("id IN ?", ids).
		Updates(fields).Error
}
