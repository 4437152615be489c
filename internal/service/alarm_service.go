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
	ErrAlarmNotFound       = errors.New("告警不存在")
	ErrAlarmNotConvertible = errors.New("只有已确认的告警可以转为工单")
	ErrAlarmAlreadyLinked  = errors.New("该告警已生成工单")
)

// --- DTOs ---

type CreateAlarmRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Level       string     `json:"level" binding:"omitempty,oneof=low medium high critical"`
	ImageURL    string     `json:"image_url"`
	AreaID      *uuid.UUID `json:"area_id"`
	DeviceID    *uuid.UUID `json:"device_id"`
	Type        string     `json:"type" binding:"omitempty,oneof=ai manual"`
}

type AlarmActionRequest struct {
	Note string `json:"note"`
}

type BatchAlarmRequest struct {
	IDs    []uuid.UUID `json:"ids" binding:"required"`
	Action string      `json:"action" binding:"required,oneof=confirm resolve false_alarm ignore"`
	Note   string      `json:"note"`
}

// BatchResult reports a best-effort batch outcome. Items whose state does
// not admit the action are skipped, not failed.
type BatchResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

type ListAlarmsQuery struct {
	Status string
	Type   string
	Level  string
	AreaID *uuid.UUID
	Page   int
	Limit  int
}

// AlarmService manages the alarm lifecycle: creation, the confirm/resolve/
// false-alarm/ignore flow, best-effort batch handling and conversion into
// maintenance work orders
type AlarmService interface {
	Create(ctx context.Context, actor authority.Identity, req CreateAlarmRequest) (*model.Alarm, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Alarm, error)
	List(ctx context.Context, actor authority.Identity, q ListAlarmsQuery) ([]model.Alarm, int64, error)
	Confirm(ctx context.Context, actor authority.Identity, id uuid.UUID, req AlarmActionRequest) (*model.Alarm, error)
	Resolve(ctx context.Context, actor authority.Identity, id uuid.UUID, req AlarmActionRequest) (*model.Alarm, error)
	MarkFalseAlarm(ctx context.Context, actor authority.Identity, id uuid.UUID, req AlarmActionRequest) (*model.Alarm, error)
	Ignore(ctx context.Context, actor authority.Identity, id uuid.UUID, req AlarmActionRequest) (*model.Alarm, error)
	Batch(ctx context.Context, actor authority.Identity, req BatchAlarmRequest) (*BatchResult, error)
	ConvertToWorkOrder(ctx context.Context, actor authority.Identity, id uuid.UUID, req CreateWorkOrderRequest) (*model.WorkOrder, error)
}

type alarmService struct {
	alarms repository.AlarmRepository
	orders repository.WorkOrderRepository
	areas  repository.AreaRepository
	audits repository.AuditRepository
	txm    repository.TransactionManager
	auth   *authority.Authority
	hub    *websocket.Hub
}

func NewAlarmService(
	alarms repository.AlarmRepository,
	orders repository.WorkOrderRepository,
	areas repository.AreaRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	auth *authority.Authority,
	hub *websocket.Hub,
) AlarmService {
	return &alarmService{
		alarms: alarms, orders: orders, areas: areas,
		audits: audits, txm: txm, auth: auth, hub: hub,
	}
}

// newAlarmNo generates a sortable unique alarm number
func newAlarmNo() string {
	return "AL" + ulid.Make().String()
}

func (s *alarmService) Create(ctx context.Context, actor authority.Identity, req CreateAlarmRequest) (*model.Alarm, error) {
	ref := authority.EntityRef{Kind: authority.KindAlarm, State: authority.StatePending}
	if req.AreaID != nil {
		ref.AreaID = *req.AreaID
	}
	if d := s.auth.Authorize(actor, authority.ActionCreate, ref); !d.Allowed {
		s.logDenied(ctx, actor, "create_alarm", uuid.Nil, d)
		return nil, &DeniedError{Decision: d}
	}

	alarmType := req.Type
	if alarmType == "" {
		alarmType = model.AlarmTypeManual
	}
	level := req.Level
	if level == "" {
		level = "medium"
	}

	alarm := &model.Alarm{
		AlarmNo:     newAlarmNo(),
		Title:       req.Title,
		Description: req.Description,
		Type:        alarmType,
		Category:    req.Category,
		Level:       level,
		Status:      string(authority.StatePending),
		ImageURL:    req.ImageURL,
		AreaID:      req.AreaID,
		DeviceID:    req.DeviceID,
		ReportedBy:  &actor.UserID,
	}

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.alarms.Create(txCtx, alarm); createErr != nil {
			return createErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "create_alarm", alarm, model.LogStatusSuccess, ""))
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastEvent("alarm_created", alarm)
	return alarm, nil
}

func (s *alarmService) Get(ctx context.Context, id uuid.UUID) (*model.Alarm, error) {
	alarm, err := s.alarms.GetByID(ctx, id)
	if err != nil {
		return nil, ErrAlarmNotFound
	}
	return alarm, nil
}

func (s *alarmService) List(ctx context.Context, actor authority.Identity, q ListAlarmsQuery) ([]model.Alarm, int64, error) {
	filter := repository.AlarmFilter{
		Status: q.Status,
		Type:   q.Type,
		Level:  q.Level,
		AreaID: q.AreaID,
		Page:   q.Page,
		Limit:  q.Limit,
	}

	// Area-scoped roles only see their own area's alarms
	if role, ok := s.auth.Roles().Lookup(actor.RoleCode); ok && role.Scope == authority.ScopeArea {
		if actor.AreaID != uuid.Nil {
			areaID := actor.AreaID
			filter.AreaID = &areaID
		}
	}

	return s.alarms.List(ctx, filter)
}

func (s *alarmService) Confirm(ctx context.Context, actor authority.Identity, id uuid.UUID, req AlarmActionRequest) (*model.Alarm, error) {
	return s.act(ctx, actor, id, authority.ActionConfirm, req.Note)
}

func (s *alarmService) Resolve(ctx context.Context, actor authority.Identity, id uuid.UUID, req AlarmActionRequest) (*model.Alarm, error) {
	return s.act(ctx, actor, id, authority.ActionResolve, req.Note)
}

func (s *alarmService) MarkFalseAlarm(ctx context.Context, actor authority.Identity, id uuid.UUID, req AlarmActionRequest) (*model.Alarm, error) {
	return s.act(ctx, actor, id, authority.ActionFalseAlarm, req.Note)
}

func (s *alarmService) Ignore(ctx context.Context, actor authority.Identity, id uuid.UUID, req AlarmActionRequest) (*model.Alarm, error) {
	return s.act(ctx, actor, id, authority.ActionIgnore, req.Note)
}

// act drives a single alarm through one lifecycle action. Re-confirming an
// already handled alarm is an idempotent no-op rather than an error.
func (s *alarmService) act(ctx context.Context, actor authority.Identity, id uuid.UUID, action authority.Action, note string) (*model.Alarm, error) {
	alarm, err := s.alarms.GetByID(ctx, id)
	if err != nil {
		return nil, ErrAlarmNotFound
	}

	ref := s.refFor(ctx, alarm)
	if d := s.auth.Authorize(actor, action, ref); !d.Allowed {
		if action == authority.ActionConfirm &&
			d.Reason == authority.ReasonInvalidTransition &&
			alarm.Status != string(authority.StatePending) {
			// Already confirmed or beyond: no mutation, no audit row
			return alarm, nil
		}
		s.logDenied(ctx, actor, "alarm_"+string(action), alarm.ID, d)
		return nil, &DeniedError{Decision: d}
	}

	next, _ := authority.TargetState(authority.KindAlarm, action)
	now := time.Now()

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		alarm.Status = string(next)
		switch action {
		case authority.ActionConfirm:
			alarm.ConfirmedBy = &actor.UserID
			alarm.ConfirmedAt = &now
		case authority.ActionResolve, authority.ActionFalseAlarm, authority.ActionIgnore:
			alarm.ResolvedBy = &actor.UserID
			alarm.ResolvedAt = &now
			if note != "" {
				alarm.ResolutionNote = note
			}
		}
		if updErr := s.alarms.Update(txCtx, alarm); updErr != nil {
			return updErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "alarm_"+string(action), alarm, model.LogStatusSuccess, note))
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastEvent("alarm_updated", alarm)
	return alarm, nil
}

// Batch applies one action to up to MaxBatchSize alarms. Items in a state
// the action cannot leave are skipped and the caller gets processed and
// skipped counts. Permission and scope denials are not per-item conditions;
// they fail the whole request.
func (s *alarmService) Batch(ctx context.Context, actor authority.Identity, req BatchAlarmRequest) (*BatchResult, error) {
	if err := authority.ValidateBatch(req.IDs); err != nil {
		return nil, err
	}
	action := authority.Action(req.Action)

	alarms, err := s.alarms.GetByIDs(ctx, req.IDs)
	if err != nil {
		return nil, err
	}

	var (
		eligible []uuid.UUID
		entries  []model.OperationLog
		skipped  = len(req.IDs) - len(alarms) // unknown ids count as skipped
	)
	for i := range alarms {
		alarm := &alarms[i]
		ref := s.refFor(ctx, alarm)
		d := s.auth.Authorize(actor, action, ref)
		if !d.Allowed {
			if d.Reason != authority.ReasonInvalidTransition {
				s.logDenied(ctx, actor, "alarm_batch_"+req.Action, alarm.ID, d)
				return nil, &DeniedError{Decision: d}
			}
			skipped++
			entries = append(entries, *s.entry(actor, "alarm_batch_"+req.Action, alarm, model.LogStatusFailure,
				fmt.Sprintf("reason=%s %s", d.Reason, d.Message)))
			continue
		}
		eligible = append(eligible, alarm.ID)
		entries = append(entries, *s.entry(actor, "alarm_batch_"+req.Action, alarm, model.LogStatusSuccess, req.Note))
	}

	next, _ := authority.TargetState(authority.KindAlarm, action)
	now := time.Now()
	fields := map[string]interface{}{"status": string(next)}
	switch action {
	case authority.ActionConfirm:
		fields["confirmed_by"] = actor.UserID
		fields["confirmed_at"] = now
	case authority.ActionResolve, authority.ActionFalseAlarm, authority.ActionIgnore:
		fields["resolved_by"] = actor.UserID
		fields["resolved_at"] = now
		if req.Note != "" {
			fields["resolution_note"] = req.Note
		}
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if len(eligible) > 0 {
			if updErr := s.alarms.UpdateBatch(txCtx, eligible, fields); updErr != nil {
				return updErr
			}
		}
		return s.audits.LogBatch(txCtx, entries)
	})
	if err != nil {
		return nil, err
	}

	if len(eligible) > 0 {
		s.hub.BroadcastEvent("alarm_updated", map[string]interface{}{
			"ids": eligible, "status": string(next),
		})
	}
	return &BatchResult{Processed: len(eligible), Skipped: skipped}, nil
}

// ConvertToWorkOrder creates an ai_alarm work order from a confirmed alarm
// and moves the alarm into processing until the order completes.
func (s *alarmService) ConvertToWorkOrder(ctx context.Context, actor authority.Identity, id uuid.UUID, req CreateWorkOrderRequest) (*model.WorkOrder, error) {
	alarm, err := s.alarms.GetByID(ctx, id)
	if err != nil {
		return nil, ErrAlarmNotFound
	}
	if alarm.WorkOrderID != nil {
		return nil, ErrAlarmAlreadyLinked
	}
	if alarm.Status != string(authority.StateConfirmed) {
		return nil, ErrAlarmNotConvertible
	}

	ref := s.refFor(ctx, alarm)
	ref.Kind = authority.KindAIAlarmWorkOrder
	if d := s.auth.Authorize(actor, authority.ActionCreate, ref); !d.Allowed {
		s.logDenied(ctx, actor, "convert_alarm", alarm.ID, d)
		return nil, &DeniedError{Decision: d}
	}

	title := req.Title
	if title == "" {
		title = alarm.Title
	}
	priority := req.Priority
	if priority == "" {
		priority = alarm.Level
	}

	order := &model.WorkOrder{
		WorkOrderNo: newWorkOrderNo(),
		Title:       title,
		Description: req.Description,
		Type:        string(authority.KindAIAlarmWorkOrder),
		Priority:    priority,
		Status:      string(authority.StatePending),
		AlarmID:     &alarm.ID,
		AreaID:      alarm.AreaID,
		CreatorID:   &actor.UserID,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.orders.Create(txCtx, order); createErr != nil {
			return createErr
		}
		alarm.Status = string(authority.StateProcessing)
		alarm.WorkOrderID = &order.ID
		if updErr := s.alarms.Update(txCtx, alarm); updErr != nil {
			return updErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "convert_alarm", alarm, model.LogStatusSuccess,
			fmt.Sprintf("workorder=%s", order.WorkOrderNo)))
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastEvent("workorder_created", order)
	s.hub.BroadcastEvent("alarm_updated", alarm)
	return order, nil
}

// refFor builds the decision-time entity view; the area supervisor binding
// lets supervisors act on unassigned-area alarms they oversee.
func (s *alarmService) refFor(ctx context.Context, alarm *model.Alarm) authority.EntityRef {
	ref := authority.EntityRef{
		Kind:  authority.KindAlarm,
		State: authority.State(alarm.Status),
	}
	if alarm.AreaID != nil {
		ref.AreaID = *alarm.AreaID
		if alarm.Area != nil && alarm.Area.SupervisorID != nil {
			ref.AreaSupervisorID = *alarm.Area.SupervisorID
		} else if area, err := s.areas.GetByID(ctx, *alarm.AreaID); err == nil && area.SupervisorID != nil {
			ref.AreaSupervisorID = *area.SupervisorID
		}
	}
	if alarm.ReportedBy != nil {
		ref.CreatorID = *alarm.ReportedBy
	}
	return ref
}

func (s *alarmService) entry(actor authority.Identity, action string, alarm *model.Alarm, status, detail string) *model.OperationLog {
	return &model.OperationLog{
		UserID:     &actor.UserID,
		Username:   actor.Username,
		Module:     model.ModuleAlarm,
		Action:     action,
		TargetType: "alarm",
		TargetID:   alarm.ID.String(),
		TargetName: alarm.AlarmNo,
		Status:     status,
		Detail:     detail,
	}
}

func (s *alarmService) logDenied(ctx context.Context, actor authority.Identity, action string, targetID uuid.UUID, d authority.Decision) {
	target := ""
	if targetID != uuid.Nil {
		target = targetID.String()
	}
	_ = s.audits.Log(ctx, &model.OperationLog{
		UserID:     &actor.UserID,
		Username:   actor.Username,
		Module:     model.ModuleAlarm,
		Action:     action,
		TargetType: "alarm",
		TargetID:   target,
		Status:     model.LogStatusFailure,
		Detail:     fmt.Sprintf("reason=%s %s", d.Reason, d.Message),
	})
}
