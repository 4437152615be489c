package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"riverwatch/internal/authority"
	"riverwatch/internal/model"
	"riverwatch/internal/repository"
	"riverwatch/internal/websocket"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	ErrWorkOrderNotFound = errors.New("工单不存在")
	ErrAssigneeInvalid   = errors.New("指定的维护员不可用")
)

// --- DTOs ---

type CreateWorkOrderRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority" binding:"omitempty,oneof=low medium high critical"`
	AreaID       *uuid.UUID `json:"area_id"`
	DepartmentID *uuid.UUID `json:"department_id"`
}

type AssignWorkOrderRequest struct {
	AssigneeID uuid.UUID `json:"assignee_id" binding:"required"`
	Note       string    `json:"note"`
}

type CompleteWorkOrderRequest struct {
	ResultNote   string `json:"result_note" binding:"required"`
	ResultImages string `json:"result_images"`
}

type ReviewWorkOrderRequest struct {
	Approved bool   `json:"approved"`
	Note     string `json:"note"`
}

type WorkOrderNoteRequest struct {
	Note string `json:"note"`
}

type ListWorkOrdersQuery struct {
	Status string
	Type   string
	Page   int
	Limit  int
}

type WorkOrderDetail struct {
	Order   *model.WorkOrder               `json:"order"`
	History []model.WorkOrderStatusHistory `json:"history"`
}

// WorkOrderService drives maintenance orders through the
// pending → assigned → processing → pending_review → completed flow
type WorkOrderService interface {
	Create(ctx context.Context, actor authority.Identity, req CreateWorkOrderRequest) (*model.WorkOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*WorkOrderDetail, error)
	List(ctx context.Context, actor authority.Identity, q ListWorkOrdersQuery) ([]model.WorkOrder, int64, error)
	Assign(ctx context.Context, actor authority.Identity, id uuid.UUID, req AssignWorkOrderRequest) (*model.WorkOrder, error)
	Start(ctx context.Context, actor authority.Identity, id uuid.UUID) (*model.WorkOrder, error)
	Complete(ctx context.Context, actor authority.Identity, id uuid.UUID, req CompleteWorkOrderRequest) (*model.WorkOrder, error)
	Review(ctx context.Context, actor authority.Identity, id uuid.UUID, req ReviewWorkOrderRequest) (*model.WorkOrder, error)
	Return(ctx context.Context, actor authority.Identity, id uuid.UUID, req WorkOrderNoteRequest) (*model.WorkOrder, error)
	Cancel(ctx context.Context, actor authority.Identity, id uuid.UUID, req WorkOrderNoteRequest) (*model.WorkOrder, error)
}

type workOrderService struct {
	orders        repository.WorkOrderRepository
	alarms        repository.AlarmRepository
	users         repository.UserRepository
	areas         repository.AreaRepository
	notifications repository.NotificationRepository
	audits        repository.AuditRepository
	txm           repository.TransactionManager
	auth          *authority.Authority
	hub           *websocket.Hub
}

func NewWorkOrderService(
	orders repository.WorkOrderRepository,
	alarms repository.AlarmRepository,
	users repository.UserRepository,
	areas repository.AreaRepository,
	notifications repository.NotificationRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	auth *authority.Authority,
	hub *websocket.Hub,
) WorkOrderService {
	return &workOrderService{
		orders: orders, alarms: alarms, users: users, areas: areas,
		notifications: notifications, audits: audits, txm: txm,
		auth: auth, hub: hub,
	}
}

// newWorkOrderNo generates a sortable unique work order number
func newWorkOrderNo() string {
	return "WO" + ulid.Make().String()
}

func (s *workOrderService) Create(ctx context.Context, actor authority.Identity, req CreateWorkOrderRequest) (*model.WorkOrder, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("工单标题不能为空")
	}

	ref := authority.EntityRef{Kind: authority.KindManualWorkOrder, State: authority.StatePending}
	if req.AreaID != nil {
		ref.AreaID = *req.AreaID
	}
	if d := s.auth.Authorize(actor, authority.ActionCreate, ref); !d.Allowed {
		s.logDenied(ctx, actor, "create_workorder", uuid.Nil, d)
		return nil, &DeniedError{Decision: d}
	}

	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}

	order := &model.WorkOrder{
		WorkOrderNo:  newWorkOrderNo(),
		Title:        req.Title,
		Description:  req.Description,
		Type:         string(authority.KindManualWorkOrder),
		Priority:     priority,
		Status:       string(authority.StatePending),
		AreaID:       req.AreaID,
		DepartmentID: req.DepartmentID,
		CreatorID:    &actor.UserID,
	}

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.orders.Create(txCtx, order); createErr != nil {
			return createErr
		}
		if histErr := s.orders.AppendHistory(txCtx, &model.WorkOrderStatusHistory{
			WorkOrderID: order.ID,
			FromStatus:  "",
			ToStatus:    order.Status,
			ChangedBy:   &actor.UserID,
			Reason:      "created",
		}); histErr != nil {
			return histErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "create_workorder", order, model.LogStatusSuccess, ""))
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastEvent("workorder_created", order)
	return order, nil
}

func (s *workOrderService) Get(ctx context.Context, id uuid.UUID) (*WorkOrderDetail, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, ErrWorkOrderNotFound
	}
	history, err := s.orders.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return &WorkOrderDetail{Order: order, History: history}, nil
}

func (s *workOrderService) List(ctx context.Context, actor authority.Identity, q ListWorkOrdersQuery) ([]model.WorkOrder, int64, error) {
	filter := repository.WorkOrderFilter{
		Status: q.Status,
		Type:   q.Type,
		Page:   q.Page,
		Limit:  q.Limit,
	}

	role, ok := s.auth.Roles().Lookup(actor.RoleCode)
	if ok {
		switch role.Scope {
		case authority.ScopeAssigned:
			assignee := actor.UserID
			filter.AssigneeID = &assignee
		case authority.ScopeArea:
			if actor.AreaID != uuid.Nil {
				areaID := actor.AreaID
				filter.AreaID = &areaID
			}
		}
		// Listing honors role visibility when no explicit status asked for
		if q.Status == "" && role.Scope != authority.ScopeAll {
			for _, st := range role.ViewableStatuses {
				filter.Statuses = append(filter.Statuses, string(st))
			}
		}
	}

	return s.orders.List(ctx, filter)
}

// Assign hands a pending order to a maintenance worker and notifies them.
func (s *workOrderService) Assign(ctx context.Context, actor authority.Identity, id uuid.UUID, req AssignWorkOrderRequest) (*model.WorkOrder, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, ErrWorkOrderNotFound
	}

	assignee, err := s.users.GetByID(ctx, req.AssigneeID)
	if err != nil || assignee.Status != model.UserStatusActive {
		return nil, ErrAssigneeInvalid
	}

	now := time.Now()
	order2, err := s.transition(ctx, actor, order, authority.ActionAssign, req.Note, func(o *model.WorkOrder) {
		o.AssigneeID = &req.AssigneeID
		o.Assignee = nil
		o.AssignedAt = &now
	})
	if err != nil {
		return nil, err
	}

	_ = s.notifications.Create(ctx, &model.Notification{
		UserID:     req.AssigneeID,
		Title:      "新工单指派",
		Content:    fmt.Sprintf("工单 %s 已指派给您：%s", order2.WorkOrderNo, order2.Title),
		Type:       "workorder",
		TargetType: "workorder",
		TargetID:   &order2.ID,
	})
	return order2, nil
}

func (s *workOrderService) Start(ctx context.Context, actor authority.Identity, id uuid.UUID) (*model.WorkOrder, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, ErrWorkOrderNotFound
	}
	now := time.Now()
	return s.transition(ctx, actor, order, authority.ActionStart, "", func(o *model.WorkOrder) {
		o.StartedAt = &now
	})
}

func (s *workOrderService) Complete(ctx context.Context, actor authority.Identity, id uuid.UUID, req CompleteWorkOrderRequest) (*model.WorkOrder, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, ErrWorkOrderNotFound
	}
	now := time.Now()
	return s.transition(ctx, actor, order, authority.ActionComplete, req.ResultNote, func(o *model.WorkOrder) {
		o.CompletedAt = &now
		o.ResultNote = req.ResultNote
		if req.ResultImages != "" {
			o.ResultImages = req.ResultImages
		}
	})
}

// Review closes out a pending_review order. Approval completes it and
// resolves the source alarm of ai_alarm orders; rejection sends the order
// back to processing.
func (s *workOrderService) Review(ctx context.Context, actor authority.Identity, id uuid.UUID, req ReviewWorkOrderRequest) (*model.WorkOrder, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, ErrWorkOrderNotFound
	}

	action := authority.ActionReview
	if !req.Approved {
		action = authority.ActionReject
	}

	now := time.Now()
	order2, err := s.transition(ctx, actor, order, action, req.Note, func(o *model.WorkOrder) {
		o.ReviewerID = &actor.UserID
		o.ReviewedAt = &now
		o.ReviewNote = req.Note
	})
	if err != nil {
		return nil, err
	}

	if req.Approved && order2.AlarmID != nil {
		if alarm, alarmErr := s.alarms.GetByID(ctx, *order2.AlarmID); alarmErr == nil &&
			alarm.Status == string(authority.StateProcessing) {
			alarm.Status = string(authority.StateResolved)
			alarm.ResolvedBy = &actor.UserID
			alarm.ResolvedAt = &now
			alarm.ResolutionNote = fmt.Sprintf("工单 %s 已完成", order2.WorkOrderNo)
			if updErr := s.alarms.Update(ctx, alarm); updErr == nil {
				s.hub.BroadcastEvent("alarm_updated", alarm)
			}
		}
	}

	if order2.AssigneeID != nil {
		verdict := "已通过审核"
		if !req.Approved {
			verdict = "审核未通过，请重新处理"
		}
		_ = s.notifications.Create(ctx, &model.Notification{
			UserID:     *order2.AssigneeID,
			Title:      "工单审核结果",
			Content:    fmt.Sprintf("工单 %s %s", order2.WorkOrderNo, verdict),
			Type:       "workorder",
			TargetType: "workorder",
			TargetID:   &order2.ID,
		})
	}
	return order2, nil
}

// Return sends an assigned order back to the pending pool.
func (s *workOrderService) Return(ctx context.Context, actor authority.Identity, id uuid.UUID, req WorkOrderNoteRequest) (*model.WorkOrder, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, ErrWorkOrderNotFound
	}
	return s.transition(ctx, actor, order, authority.ActionReturn, req.Note, func(o *model.WorkOrder) {
		o.AssigneeID = nil
		o.Assignee = nil
		o.AssignedAt = nil
	})
}

func (s *workOrderService) Cancel(ctx context.Context, actor authority.Identity, id uuid.UUID, req WorkOrderNoteRequest) (*model.WorkOrder, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, ErrWorkOrderNotFound
	}
	return s.transition(ctx, actor, order, authority.ActionCancel, req.Note, nil)
}

// transition authorizes and applies one lifecycle step, writing the order
// update, the status history entry and the audit row in one transaction.
func (s *workOrderService) transition(ctx context.Context, actor authority.Identity, order *model.WorkOrder, action authority.Action, note string, mutate func(*model.WorkOrder)) (*model.WorkOrder, error) {
	ref := s.refFor(ctx, order)
	if d := s.auth.Authorize(actor, action, ref); !d.Allowed {
		s.logDenied(ctx, actor, "workorder_"+string(action), order.ID, d)
		return nil, &DeniedError{Decision: d}
	}

	next, _ := authority.TargetState(ref.Kind, action)
	from := order.Status

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		order.Status = string(next)
		if mutate != nil {
			mutate(order)
		}
		if updErr := s.orders.Update(txCtx, order); updErr != nil {
			return updErr
		}
		if histErr := s.orders.AppendHistory(txCtx, &model.WorkOrderStatusHistory{
			WorkOrderID: order.ID,
			FromStatus:  from,
			ToStatus:    order.Status,
			ChangedBy:   &actor.UserID,
			Reason:      note,
		}); histErr != nil {
			return histErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "workorder_"+string(action), order, model.LogStatusSuccess, note))
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastEvent("workorder_updated", order)
	return order, nil
}

func (s *workOrderService) refFor(ctx context.Context, order *model.WorkOrder) authority.EntityRef {
	ref := authority.EntityRef{
		Kind:  authority.EntityKind(order.Type),
		State: authority.State(order.Status),
	}
	if order.AssigneeID != nil {
		ref.AssigneeID = *order.AssigneeID
	}
	if order.CreatorID != nil {
		ref.CreatorID = *order.CreatorID
	}
	if order.DepartmentID != nil {
		ref.DepartmentID = *order.DepartmentID
	}
	if order.AreaID != nil {
		ref.AreaID = *order.AreaID
		if order.Area != nil && order.Area.SupervisorID != nil {
			ref.AreaSupervisorID = *order.Area.SupervisorID
		} else if area, err := s.areas.GetByID(ctx, *order.AreaID); err == nil && area.SupervisorID != nil {
			ref.AreaSupervisorID = *area.SupervisorID
		}
	}
	return ref
}

func (s *workOrderService) entry(actor authority.Identity, action string, order *model.WorkOrder, status, detail string) *model.OperationLog {
	return &model.OperationLog{
		UserID:     &actor.UserID,
		Username:   actor.Username,
		Module:     model.ModuleWorkOrder,
		Action:     action,
		TargetType: "workorder",
		TargetID:   order.ID.String(),
		TargetName: order.WorkOrderNo,
		Status:     status,
		Detail:     detail,
	}
}

func (s *workOrderService) logDenied(ctx context.Context, actor authority.Identity, action string, targetID uuid.UUID, d authority.Decision) {
	target := ""
	if targetID != uuid.Nil {
		target = targetID.String()
	}
	_ = s.audits.Log(ctx, &model.OperationLog{
		UserID:     &actor.UserID,
		Username:   actor.Username,
		Module:     model.ModuleWorkOrder,
		Action:     action,
		TargetType: "workorder",
		TargetID:   target,
		Status:     model.LogStatusFailure,
		Detail:     fmt.Sprintf("reason=%s %s", d.Reason, d.Message),
	})
}
