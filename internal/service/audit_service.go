package service

import (
	"context"

	"riverwatch/internal/model"
	"riverwatch/internal/repository"
)

// --- DTOs ---

type ListAuditQuery struct {
	Module string
	Action string
	Status string
	Page   int
	Limit  int
}

// AuditService exposes the operation log for administrator review
type AuditService interface {
	List(ctx context.Context, q ListAuditQuery) ([]model.OperationLog, int64, error)
}

type auditService struct {
	audits repository.AuditRepository
}

func NewAuditService(audits repository.AuditRepository) AuditService {
	return &auditService{audits: audits}
}

func (s *auditService) List(ctx context.Context, q ListAuditQuery) ([]model.OperationLog, int64, error) {
	return s.audits.List(ctx, repository.AuditFilter{
		Module: q.Module,
		Action: q.Action,
		Status: q.Status,
		Page:   q.Page,
		Limit:  q.Limit,
	})
}
