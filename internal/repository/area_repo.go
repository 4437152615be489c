package repository

import (
	"context"

	"riverwatch/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AreaRepository interface {
	Create(ctx context.Context, area *model.Area) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Area, error)
	ListAll(ctx context.Context) ([]model.Area, error)
	Update(ctx context.Context, area *model.Area) error
	ListWorkers(ctx context.Context, areaID uuid.UUID) ([]model.AreaMaintenanceWorker, error)
	AddWorker(ctx context.Context, entry *model.AreaMaintenanceWorker) error
	RemoveWorker(ctx context.Context, areaID, userID uuid.UUID) error
}

type areaRepository struct {
	db *gorm.DB
}

func NewAreaRepository(db *gorm.DB) AreaRepository {
	return &areaRepository{db: db}
}

func (r *areaRepository) Create(ctx context.Context, area *model.Area) error {
	return GetDB(ctx, r.db).Create(area).Error
}

func (r *areaRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Area, error) {
	var area model.Area
	if err := GetDB(ctx, r.db).Preload("Supervisor").First(&area, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &area, nil
}

func (r *areaRepository) ListAll(ctx context.Context) ([]model.Area, error) {
	var areas []model.Area
	if err := GetDB(ctx, r.db).Preload("Supervisor").Order("code asc").Find(&areas).Error; err != nil {
		return nil, err
	}
	return areas, nil
}

func (r *areaRepository) Update(ctx context.Context, area *model.Area) error {
	return GetDB(ctx, r.db).Save(area).Error
}

func (r *areaRepository) ListWorkers(ctx context.Context, areaID uuid.UUID) ([]model.AreaMaintenanceWorker, error) {
	var entries []model.AreaMaintenanceWorker
	if err := GetDB(ctx, r.db).Preload("User").
		Where("area_id = ?", areaID).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *areaRepository) AddWorker(ctx context.Context, entry *model.AreaMaintenanceWorker) error {
	return GetDB(ctx, r.db).
		Where("area_id = ? AND user_id = ?", entry.AreaID, entry.UserID).
		FirstOrCreate(entry).Error
}

func (r *areaRepository) RemoveWorker(ctx context.Context, areaID, userID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Where("area_id = ? AND user_id = ?", areaID, userID).
		Delete(&model.AreaMaintenanceWorker{}).Error
}
