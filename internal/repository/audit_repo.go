package repository

import (
	"context"

	"riverwatch/internal/model"

	"gorm.io/gorm"
)

// AuditFilter narrows operation log listings
type AuditFilter struct {
	Module string
	Action string
	Status string
	Page   int
	Limit  int
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.OperationLog) error
	LogBatch(ctx context.Context, entries []model.OperationLog) error
	List(ctx context.Context, filter AuditFilter) ([]model.OperationLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.OperationLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) LogBatch(ctx context.Context, entries []model.OperationLog) error {
	if len(entries) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&entries).Error
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]model.OperationLog, int64, error) {
	db := GetDB(ctx, r.db).Model(&model.OperationLog{})

	if filter.Module != "" {
		db = db.Where("module = ?", filter.Module)
	}
	if filter.Action != "" {
		db = db.Where("action = ?", filter.Action)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.OperationLog
	offset := (filter.Page - 1) * filter.Limit
	if err := db.Preload("User").Order("created_at desc").
		Offset(offset).Limit(filter.Limit).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
