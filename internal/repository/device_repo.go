package repository

import (
	"context"

	"riverwatch/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceFilter narrows device listings
type DeviceFilter struct {
	Type   string
	Status string
	AreaID *uuid.UUID
	Page   int
	Limit  int
}

type DeviceRepository interface {
	Create(ctx context.Context, device *model.Device) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Device, error)
	List(ctx context.Context, filter DeviceFilter) ([]model.Device, int64, error)
	Update(ctx context.Context, device *model.Device) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type deviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) Create(ctx context.Context, device *model.Device) error {
	return GetDB(ctx, r.db).Create(device).Error
}

func (r *deviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Device, error) {
	var device model.Device
	if err := GetDB(ctx, r.db).Preload("Area").First(&device, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *deviceRepository) List(ctx context.Context, filter DeviceFilter) ([]model.Device, int64, error) {
	db := GetDB(ctx, r.db).Model(&model.Device{})

	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.AreaID != nil {
		db = db.Where("area_id = ?", *filter.AreaID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var devices []model.Device
	offset := (filter.Page - 1) * filter.Limit
	if err := db.Preload("Area").Order("device_no asc").
		Offset(offset).Limit(filter.Limit).
		Find(&devices).Error; err != nil {
		return nil, 0, err
	}

	return devices, total, nil
}

func (r *deviceRepository) Update(ctx context.Context, device *model.Device) error {
	return GetDB(ctx, r.db).Save(device).Error
}

func (r *deviceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Device{}).Error
}
