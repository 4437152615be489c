package service

import (
	"context"
	"errors"

	"riverwatch/internal/authority"
	"riverwatch/internal/model"
	"riverwatch/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrAreaNotFound  = errors.New("区域不存在")
	ErrWorkerInvalid = errors.New("只有在职的河道维护员可以加入区域班组")
)

// --- DTOs ---

type CreateAreaRequest struct {
	Code         string     `json:"code" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	RiverName    string     `json:"river_name"`
	SupervisorID *uuid.UUID `json:"supervisor_id"`
}

type AreaWorkerRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// AreaService manages patrolled river sections and their maintenance
// worker rosters
type AreaService interface {
	Create(ctx context.Context, actor authority.Identity, req CreateAreaRequest) (*model.Area, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Area, error)
	ListAll(ctx context.Context) ([]model.Area, error)
	ListWorkers(ctx context.Context, areaID uuid.UUID) ([]model.AreaMaintenanceWorker, error)
	AddWorker(ctx context.Context, actor authority.Identity, areaID uuid.UUID, req AreaWorkerRequest) error
	RemoveWorker(ctx context.Context, actor authority.Identity, areaID, userID uuid.UUID) error
}

type areaService struct {
	areas  repository.AreaRepository
	users  repository.UserRepository
	audits repository.AuditRepository
	txm    repository.TransactionManager
}

func NewAreaService(
	areas repository.AreaRepository,
	users repository.UserRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
) AreaService {
	return &areaService{areas: areas, users: users, audits: audits, txm: txm}
}

func (s *areaService) Create(ctx context.Context, actor authority.Identity, req CreateAreaRequest) (*model.Area, error) {
	area := &model.Area{
		Code:         req.Code,
		Name:         req.Name,
		RiverName:    req.RiverName,
		SupervisorID: req.SupervisorID,
	}
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.areas.Create(txCtx, area); createErr != nil {
			return createErr
		}
		return s.audits.Log(txCtx, &model.OperationLog{
			UserID:     &actor.UserID,
			Username:   actor.Username,
			Module:     model.ModuleUser,
			Action:     "create_area",
			TargetType: "area",
			TargetID:   area.ID.String(),
			TargetName: area.Code,
			Status:     model.LogStatusSuccess,
		})
	})
	if err != nil {
		return nil, err
	}
	return area, nil
}

func (s *areaService) Get(ctx context.Context, id uuid.UUID) (*model.Area, error) {
	area, err := s.areas.GetByID(ctx, id)
	if err != nil {
		return nil, ErrAreaNotFound
	}
	return area, nil
}

func (s *areaService) ListAll(ctx context.Context) ([]model.Area, error) {
	return s.areas.ListAll(ctx)
}

func (s *areaService) ListWorkers(ctx context.Context, areaID uuid.UUID) ([]model.AreaMaintenanceWorker, error) {
	return s.areas.ListWorkers(ctx, areaID)
}

// AddWorker enrolls an active maintenance worker into the area's roster.
func (s *areaService) AddWorker(ctx context.Context, actor authority.Identity, areaID uuid.UUID, req AreaWorkerRequest) error {
	if _, err := s.areas.GetByID(ctx, areaID); err != nil {
		return ErrAreaNotFound
	}
	worker, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return ErrUserNotFound
	}
	if worker.Status != model.UserStatusActive ||
		worker.Role == nil || authority.RoleCode(worker.Role.Code) != authority.RoleMaintenanceWorker {
		return ErrWorkerInvalid
	}
	return s.areas.AddWorker(ctx, &model.AreaMaintenanceWorker{
		AreaID: areaID,
		UserID: req.UserID,
	})
}

func (s *areaService) RemoveWorker(ctx context.Context, actor authority.Identity, areaID, userID uuid.UUID) error {
	return s.areas.RemoveWorker(ctx, areaID, userID)
}
