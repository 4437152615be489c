package repository

import (
	"context"

	"riverwatch/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkOrderFilter narrows work order listings
type WorkOrderFilter struct {
	Status     string
	Statuses   []string
	Type       string
	AreaID     *uuid.UUID
	AssigneeID *uuid.UUID
	CreatorID  *uuid.UUID
	Page       int
	Limit      int
}

type WorkOrderRepository interface {
	Create(ctx context.Context, order *model.WorkOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error)
	List(ctx context.Context, filter WorkOrderFilter) ([]model.WorkOrder, int64, error)
	Update(ctx context.Context, order *model.WorkOrder) error
	AppendHistory(ctx context.Context, entry *model.WorkOrderStatusHistory) error
	History(ctx context.Context, workOrderID uuid.UUID) ([]model.WorkOrderStatusHistory, error)
}

type workOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) WorkOrderRepository {
	return &workOrderRepository{db: db}
}

func (r *workOrderRepository) Create(ctx context.Context, order *model.WorkOrder) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *workOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	var order model.WorkOrder
	if err := GetDB(ctx, r.db).
		Preload("Area").Preload("Creator").Preload("Assignee").
		Preload("Reviewer").Preload("Alarm").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *workOrderRepository) List(ctx context.Context, filter WorkOrderFilter) ([]model.WorkOrder, int64, error) {
	db := GetDB(ctx, r.db).Model(&model.WorkOrder{})

	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.AreaID != nil {
		db = db.Where("area_id = ?", *filter.AreaID)
	}
	if filter.AssigneeID != nil {
		db = db.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.CreatorID != nil {
		db = db.Where("creator_id = ?", *filter.CreatorID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []model.WorkOrder
	offset := (filter.Page - 1) * filter.Limit
	if err := db.Preload("Area").Preload("Assignee").Preload("Creator").
		Order("created_at desc").Offset(offset).Limit(filter.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *workOrderRepository) Update(ctx context.Context, order *model.WorkOrder) error {
	return GetDB(ctx, r.db).Save(order).Error
}

func (r *workOrderRepository) AppendHistory(ctx context.Context, entry *model.WorkOrderStatusHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *workOrderRepository) History(ctx context.Context, workOrderID uuid.UUID) ([]model.WorkOrderStatusHistory, error) {
	var entries []model.WorkOrderStatusHistory
	if err := GetDB(ctx, r.db).Preload("Changer").
		Where("work_order_id = ?", workOrderID).
		Order("created_at asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
