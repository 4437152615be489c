package service

import (
	"context"
	"errors"
	"testing"

	"riverwatch/internal/authority"
	"riverwatch/internal/model"
	"riverwatch/internal/websocket"

	"github.com/google/uuid"
)

type alarmFixture struct {
	svc    AlarmService
	alarms *fakeAlarmRepo
	orders *fakeWorkOrderRepo
	audits *fakeAuditRepo
}

func newAlarmFixture() *alarmFixture {
	alarms := newFakeAlarmRepo()
	orders := newFakeWorkOrderRepo()
	audits := &fakeAuditRepo{}
	svc := NewAlarmService(alarms, orders, newFakeAreaRepo(), audits, fakeTxManager{},
		authority.NewDefault(), websocket.NewHub())
	return &alarmFixture{svc: svc, alarms: alarms, orders: orders, audits: audits}
}

func adminIdentity() authority.Identity {
	return authority.Identity{
		UserID:   uuid.New(),
		Username: "admin",
		RoleCode: authority.RoleAdmin,
	}
}

func seedAlarm(alarms *fakeAlarmRepo, status string) *model.Alarm {
	return alarms.add(&model.Alarm{
		ID:      uuid.New(),
		AlarmNo: newAlarmNo(),
		Title:   "漂浮物告警",
		Type:    model.AlarmTypeAI,
		Level:   "medium",
		Status:  status,
	})
}

func TestConfirmPendingAlarm(t *testing.T) {
	f := newAlarmFixture()
	actor := adminIdentity()
	alarm := seedAlarm(f.alarms, "pending")

	got, err := f.svc.Confirm(context.Background(), actor, alarm.ID, AlarmActionRequest{})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got.Status != "confirmed" {
		t.Fatalf("status = %s, want confirmed", got.Status)
	}
	if got.ConfirmedBy == nil || *got.ConfirmedBy != actor.UserID {
		t.Fatal("confirmer not recorded")
	}
	if f.audits.countByStatus(model.LogStatusSuccess) != 1 {
		t.Fatal("expected one success audit entry")
	}
}

func TestReconfirmIsIdempotent(t *testing.T) {
	f := newAlarmFixture()
	actor := adminIdentity()
	alarm := seedAlarm(f.alarms, "confirmed")

	got, err := f.svc.Confirm(context.Background(), actor, alarm.ID, AlarmActionRequest{})
	if err != nil {
		t.Fatalf("re-confirm should not error, got %v", err)
	}
	if got.Status != "confirmed" {
		t.Fatalf("status = %s, want unchanged confirmed", got.Status)
	}
	// Idempotent path writes no audit row at all
	if len(f.audits.entries) != 0 {
		t.Fatalf("audit entries = %d, want 0", len(f.audits.entries))
	}
}

func TestResolveRequiresConfirmedOrProcessing(t *testing.T) {
	f := newAlarmFixture()
	actor := adminIdentity()
	alarm := seedAlarm(f.alarms, "pending")

	_, err := f.svc.Resolve(context.Background(), actor, alarm.ID, AlarmActionRequest{Note: "done"})
	de, ok := AsDenied(err)
	if !ok {
		t.Fatalf("err = %v, want denial", err)
	}
	if de.Decision.Reason != authority.ReasonInvalidTransition {
		t.Fatalf("reason = %s, want invalid_transition", de.Decision.Reason)
	}
	// Denials are recorded with failure status
	if f.audits.countByStatus(model.LogStatusFailure) != 1 {
		t.Fatal("expected one failure audit entry")
	}
}

func TestResolveConfirmedAlarm(t *testing.T) {
	f := newAlarmFixture()
	actor := adminIdentity()
	alarm := seedAlarm(f.alarms, "confirmed")

	got, err := f.svc.Resolve(context.Background(), actor, alarm.ID, AlarmActionRequest{Note: "已打捞"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Status != "resolved" {
		t.Fatalf("status = %s, want resolved", got.Status)
	}
	if got.ResolutionNote != "已打捞" {
		t.Fatalf("note = %q", got.ResolutionNote)
	}
}

func TestMaintenanceWorkerCannotConfirm(t *testing.T) {
	f := newAlarmFixture()
	worker := authority.Identity{UserID: uuid.New(), Username: "worker", RoleCode: authority.RoleMaintenanceWorker}
	alarm := seedAlarm(f.alarms, "pending")

	_, err := f.svc.Confirm(context.Background(), worker, alarm.ID, AlarmActionRequest{})
	de, ok := AsDenied(err)
	if !ok {
		t.Fatalf("err = %v, want denial", err)
	}
	if de.Decision.Reason != authority.ReasonActionNotPermitted {
		t.Fatalf("reason = %s, want action_not_permitted", de.Decision.Reason)
	}
}

func TestBatchConfirmSkipsIneligible(t *testing.T) {
	f := newAlarmFixture()
	actor := adminIdentity()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		ids = append(ids, seedAlarm(f.alarms, "pending").ID)
	}
	for i := 0; i < 2; i++ {
		ids = append(ids, seedAlarm(f.alarms, "confirmed").ID)
	}

	result, err := f.svc.Batch(context.Background(), actor, BatchAlarmRequest{IDs: ids, Action: "confirm"})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if result.Processed != 3 || result.Skipped != 2 {
		t.Fatalf("processed/skipped = %d/%d, want 3/2", result.Processed, result.Skipped)
	}

	// Pending alarms moved, confirmed alarms untouched
	for _, id := range ids[:3] {
		if f.alarms.alarms[id].Status != "confirmed" {
			t.Fatalf("alarm %s status = %s, want confirmed", id, f.alarms.alarms[id].Status)
		}
	}
	// Audit rows: one per item, success for processed and failure for skipped
	if f.audits.countByStatus(model.LogStatusSuccess) != 3 {
		t.Fatalf("success audits = %d, want 3", f.audits.countByStatus(model.LogStatusSuccess))
	}
	if f.audits.countByStatus(model.LogStatusFailure) != 2 {
		t.Fatalf("failure audits = %d, want 2", f.audits.countByStatus(model.LogStatusFailure))
	}
}

func TestBatchRejectsOversizedRequest(t *testing.T) {
	f := newAlarmFixture()
	actor := adminIdentity()

	ids := make([]uuid.UUID, authority.MaxBatchSize+1)
	for i := range ids {
		ids[i] = uuid.New()
	}

	if _, err := f.svc.Batch(context.Background(), actor, BatchAlarmRequest{IDs: ids, Action: "confirm"}); err == nil {
		t.Fatal("expected oversized batch to fail before any processing")
	}
	if len(f.audits.entries) != 0 {
		t.Fatal("oversized batch must not write audit rows")
	}
}

func TestBatchDeniesRoleWithoutPermission(t *testing.T) {
	f := newAlarmFixture()
	worker := authority.Identity{UserID: uuid.New(), Username: "worker", RoleCode: authority.RoleMaintenanceWorker}

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		ids = append(ids, seedAlarm(f.alarms, "pending").ID)
	}

	_, err := f.svc.Batch(context.Background(), worker, BatchAlarmRequest{IDs: ids, Action: "confirm"})
	de, ok := AsDenied(err)
	if !ok {
		t.Fatalf("err = %v, want denial for role without confirm permission", err)
	}
	if de.Decision.Reason != authority.ReasonActionNotPermitted {
		t.Fatalf("reason = %s, want action_not_permitted", de.Decision.Reason)
	}
	for _, id := range ids {
		if f.alarms.alarms[id].Status != "pending" {
			t.Fatalf("alarm %s mutated by a denied batch", id)
		}
	}
	// The denial itself is audited, nothing else
	if f.audits.countByStatus(model.LogStatusFailure) != 1 {
		t.Fatalf("failure audits = %d, want 1", f.audits.countByStatus(model.LogStatusFailure))
	}
	if f.audits.countByStatus(model.LogStatusSuccess) != 0 {
		t.Fatal("denied batch must not write success audit rows")
	}
}

func TestBatchOutOfScopeFailsWholeBatch(t *testing.T) {
	f := newAlarmFixture()
	otherArea := uuid.New()

	inScope := seedAlarm(f.alarms, "pending")
	outOfScope := seedAlarm(f.alarms, "pending")
	outOfScope.AreaID = &otherArea

	inspector := authority.Identity{UserID: uuid.New(), RoleCode: authority.RoleInspector, AreaID: uuid.New()}
	inScope.AreaID = &inspector.AreaID

	_, err := f.svc.Batch(context.Background(), inspector, BatchAlarmRequest{
		IDs:    []uuid.UUID{inScope.ID, outOfScope.ID},
		Action: "confirm",
	})
	de, ok := AsDenied(err)
	if !ok {
		t.Fatalf("err = %v, want denial for out-of-area item", err)
	}
	if de.Decision.Reason != authority.ReasonOutOfScope {
		t.Fatalf("reason = %s, want out_of_scope", de.Decision.Reason)
	}
	if f.alarms.alarms[inScope.ID].Status != "pending" {
		t.Fatal("no alarm may change when the batch is denied")
	}
}

func TestBatchCountsUnknownIDsAsSkipped(t *testing.T) {
	f := newAlarmFixture()
	actor := adminIdentity()
	known := seedAlarm(f.alarms, "pending")

	result, err := f.svc.Batch(context.Background(), actor, BatchAlarmRequest{
		IDs:    []uuid.UUID{known.ID, uuid.New()},
		Action: "confirm",
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if result.Processed != 1 || result.Skipped != 1 {
		t.Fatalf("processed/skipped = %d/%d, want 1/1", result.Processed, result.Skipped)
	}
}

func TestConvertConfirmedAlarm(t *testing.T) {
	f := newAlarmFixture()
	actor := adminIdentity()
	alarm := seedAlarm(f.alarms, "confirmed")

	order, err := f.svc.ConvertToWorkOrder(context.Background(), actor, alarm.ID, CreateWorkOrderRequest{})
	if err != nil {
		t.Fatalf("ConvertToWorkOrder: %v", err)
	}
	if order.Type != "ai_alarm" {
		t.Fatalf("order type = %s, want ai_alarm", order.Type)
	}
	if order.AlarmID == nil || *order.AlarmID != alarm.ID {
		t.Fatal("order not linked to alarm")
	}

	stored := f.alarms.alarms[alarm.ID]
	if stored.Status != "processing" {
		t.Fatalf("alarm status = %s, want processing", stored.Status)
	}
	if stored.WorkOrderID == nil || *stored.WorkOrderID != order.ID {
		t.Fatal("alarm not linked to order")
	}
}

func TestConvertPendingAlarmFails(t *testing.T) {
	f := newAlarmFixture()
	actor := adminIdentity()
	alarm := seedAlarm(f.alarms, "pending")

	if _, err := f.svc.ConvertToWorkOrder(context.Background(), actor, alarm.ID, CreateWorkOrderRequest{}); !errors.Is(err, ErrAlarmNotConvertible) {
		t.Fatalf("err = %v, want ErrAlarmNotConvertible", err)
	}
}

func TestConvertTwiceFails(t *testing.T) {
	f := newAlarmFixture()
	actor := adminIdentity()
	alarm := seedAlarm(f.alarms, "confirmed")

	if _, err := f.svc.ConvertToWorkOrder(context.Background(), actor, alarm.ID, CreateWorkOrderRequest{}); err != nil {
		t.Fatalf("first convert: %v", err)
	}
	if _, err := f.svc.ConvertToWorkOrder(context.Background(), actor, alarm.ID, CreateWorkOrderRequest{}); !errors.Is(err, ErrAlarmAlreadyLinked) {
		t.Fatalf("err = %v, want ErrAlarmAlreadyLinked", err)
	}
}

func TestAreaScopedListFiltersByArea(t *testing.T) {
	f := newAlarmFixture()
	areaID := uuid.New()
	otherArea := uuid.New()

	a1 := seedAlarm(f.alarms, "pending")
	a1.AreaID = &areaID
	a2 := seedAlarm(f.alarms, "pending")
	a2.AreaID = &otherArea

	inspector := authority.Identity{
		UserID:   uuid.New(),
		RoleCode: authority.RoleInspector,
		AreaID:   areaID,
	}

	alarms, total, err := f.svc.List(context.Background(), inspector, ListAlarmsQuery{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(alarms) != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if alarms[0].ID != a1.ID {
		t.Fatal("wrong alarm returned for area scope")
	}
}
