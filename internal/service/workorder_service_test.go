package service

import (
	"context"
	"testing"

	"riverwatch/internal/authority"
	"riverwatch/internal/model"
	"riverwatch/internal/websocket"

	"github.com/google/uuid"
)

type workOrderFixture struct {
	svc           WorkOrderService
	orders        *fakeWorkOrderRepo
	alarms        *fakeAlarmRepo
	users         *fakeUserRepo
	notifications *fakeNotificationRepo
	audits        *fakeAuditRepo
}

func newWorkOrderFixture() *workOrderFixture {
	orders := newFakeWorkOrderRepo()
	alarms := newFakeAlarmRepo()
	users := newFakeUserRepo()
	notifications := &fakeNotificationRepo{}
	audits := &fakeAuditRepo{}
	svc := NewWorkOrderService(orders, alarms, users, newFakeAreaRepo(), notifications,
		audits, fakeTxManager{}, authority.NewDefault(), websocket.NewHub())
	return &workOrderFixture{
		svc: svc, orders: orders, alarms: alarms, users: users,
		notifications: notifications, audits: audits,
	}
}

func seedWorker(users *fakeUserRepo) *model.User {
	role := &model.Role{ID: uuid.New(), Code: "R003", Name: "河道维护员"}
	return users.add(&model.User{
		ID:       uuid.New(),
		Username: "worker1",
		Name:     "维护员一",
		RoleID:   role.ID,
		Role:     role,
		Status:   model.UserStatusActive,
	})
}

func TestWorkOrderFullLifecycle(t *testing.T) {
	f := newWorkOrderFixture()
	ctx := context.Background()
	admin := adminIdentity()
	worker := seedWorker(f.users)
	workerID := authority.Identity{UserID: worker.ID, Username: worker.Username, RoleCode: authority.RoleMaintenanceWorker}

	order, err := f.svc.Create(ctx, admin, CreateWorkOrderRequest{Title: "清理漂浮物"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.Status != "pending" {
		t.Fatalf("status = %s, want pending", order.Status)
	}

	order, err = f.svc.Assign(ctx, admin, order.ID, AssignWorkOrderRequest{AssigneeID: worker.ID})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if order.Status != "assigned" {
		t.Fatalf("status = %s, want assigned", order.Status)
	}
	if len(f.notifications.created) != 1 || f.notifications.created[0].UserID != worker.ID {
		t.Fatal("assignee not notified")
	}

	order, err = f.svc.Start(ctx, workerID, order.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if order.Status != "processing" {
		t.Fatalf("status = %s, want processing", order.Status)
	}

	order, err = f.svc.Complete(ctx, workerID, order.ID, CompleteWorkOrderRequest{ResultNote: "已清理"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if order.Status != "pending_review" {
		t.Fatalf("status = %s, want pending_review", order.Status)
	}

	order, err = f.svc.Review(ctx, admin, order.ID, ReviewWorkOrderRequest{Approved: true, Note: "验收通过"})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if order.Status != "completed" {
		t.Fatalf("status = %s, want completed", order.Status)
	}

	// Every step appended to the status history
	history, _ := f.orders.History(ctx, order.ID)
	if len(history) != 5 {
		t.Fatalf("history entries = %d, want 5", len(history))
	}
	if history[len(history)-1].ToStatus != "completed" {
		t.Fatalf("last history entry = %s, want completed", history[len(history)-1].ToStatus)
	}
	// One success audit row per step
	if f.audits.countByStatus(model.LogStatusSuccess) != 5 {
		t.Fatalf("success audits = %d, want 5", f.audits.countByStatus(model.LogStatusSuccess))
	}
}

func TestInvalidTransitionBlocksAdmin(t *testing.T) {
	f := newWorkOrderFixture()
	admin := adminIdentity()
	order := f.orders.add(&model.WorkOrder{
		WorkOrderNo: newWorkOrderNo(),
		Title:       "test",
		Type:        "manual",
		Status:      "pending",
	})

	// pending cannot go straight to processing, even for the admin
	_, err := f.svc.Start(context.Background(), admin, order.ID)
	de, ok := AsDenied(err)
	if !ok {
		t.Fatalf("err = %v, want denial", err)
	}
	if de.Decision.Reason != authority.ReasonInvalidTransition {
		t.Fatalf("reason = %s, want invalid_transition", de.Decision.Reason)
	}
	if f.orders.orders[order.ID].Status != "pending" {
		t.Fatal("order state must not change on denial")
	}
	if f.audits.countByStatus(model.LogStatusFailure) != 1 {
		t.Fatal("denial must be audited with failure status")
	}
}

func TestWorkerCannotStartAnotherWorkersOrder(t *testing.T) {
	f := newWorkOrderFixture()
	assignee := uuid.New()
	order := f.orders.add(&model.WorkOrder{
		WorkOrderNo: newWorkOrderNo(),
		Title:       "test",
		Type:        "manual",
		Status:      "assigned",
		AssigneeID:  &assignee,
	})

	other := authority.Identity{UserID: uuid.New(), RoleCode: authority.RoleMaintenanceWorker}
	_, err := f.svc.Start(context.Background(), other, order.ID)
	de, ok := AsDenied(err)
	if !ok {
		t.Fatalf("err = %v, want denial", err)
	}
	if de.Decision.Reason != authority.ReasonOutOfScope {
		t.Fatalf("reason = %s, want out_of_scope", de.Decision.Reason)
	}
}

func TestRejectReturnsOrderToProcessing(t *testing.T) {
	f := newWorkOrderFixture()
	admin := adminIdentity()
	order := f.orders.add(&model.WorkOrder{
		WorkOrderNo: newWorkOrderNo(),
		Title:       "test",
		Type:        "manual",
		Status:      "pending_review",
	})

	got, err := f.svc.Review(context.Background(), admin, order.ID, ReviewWorkOrderRequest{Approved: false, Note: "不合格"})
	if err != nil {
		t.Fatalf("Review reject: %v", err)
	}
	if got.Status != "processing" {
		t.Fatalf("status = %s, want processing", got.Status)
	}
	if got.ReviewNote != "不合格" {
		t.Fatalf("review note = %q", got.ReviewNote)
	}
}

func TestReturnClearsAssignee(t *testing.T) {
	f := newWorkOrderFixture()
	admin := adminIdentity()
	assignee := uuid.New()
	order := f.orders.add(&model.WorkOrder{
		WorkOrderNo: newWorkOrderNo(),
		Title:       "test",
		Type:        "manual",
		Status:      "assigned",
		AssigneeID:  &assignee,
	})

	got, err := f.svc.Return(context.Background(), admin, order.ID, WorkOrderNoteRequest{Note: "人员调整"})
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if got.Status != "pending" {
		t.Fatalf("status = %s, want pending", got.Status)
	}
	if got.AssigneeID != nil {
		t.Fatal("assignee must be cleared on return")
	}
}

func TestCancelCompletedOrderFails(t *testing.T) {
	f := newWorkOrderFixture()
	admin := adminIdentity()
	order := f.orders.add(&model.WorkOrder{
		WorkOrderNo: newWorkOrderNo(),
		Title:       "test",
		Type:        "manual",
		Status:      "completed",
	})

	if _, err := f.svc.Cancel(context.Background(), admin, order.ID, WorkOrderNoteRequest{}); err == nil {
		t.Fatal("expected cancel of completed order to fail")
	}
}

func TestApprovedReviewResolvesLinkedAlarm(t *testing.T) {
	f := newWorkOrderFixture()
	admin := adminIdentity()

	alarm := f.alarms.add(&model.Alarm{
		AlarmNo: newAlarmNo(),
		Title:   "漂浮物告警",
		Type:    model.AlarmTypeAI,
		Status:  "processing",
	})
	order := f.orders.add(&model.WorkOrder{
		WorkOrderNo: newWorkOrderNo(),
		Title:       "清理漂浮物",
		Type:        "ai_alarm",
		Status:      "pending_review",
		AlarmID:     &alarm.ID,
	})

	if _, err := f.svc.Review(context.Background(), admin, order.ID, ReviewWorkOrderRequest{Approved: true}); err != nil {
		t.Fatalf("Review: %v", err)
	}
	if f.alarms.alarms[alarm.ID].Status != "resolved" {
		t.Fatalf("linked alarm status = %s, want resolved", f.alarms.alarms[alarm.ID].Status)
	}
}

func TestAssignInactiveWorkerFails(t *testing.T) {
	f := newWorkOrderFixture()
	admin := adminIdentity()
	worker := seedWorker(f.users)
	f.users.users[worker.ID].Status = model.UserStatusInactive

	order := f.orders.add(&model.WorkOrder{
		WorkOrderNo: newWorkOrderNo(),
		Title:       "test",
		Type:        "manual",
		Status:      "pending",
	})

	if _, err := f.svc.Assign(context.Background(), admin, order.ID, AssignWorkOrderRequest{AssigneeID: worker.ID}); err == nil {
		t.Fatal("expected assignment to inactive worker to fail")
	}
}

func TestAssignedScopeListing(t *testing.T) {
	f := newWorkOrderFixture()
	workerID := uuid.New()
	other := uuid.New()

	f.orders.add(&model.WorkOrder{WorkOrderNo: newWorkOrderNo(), Title: "mine", Type: "manual", Status: "assigned", AssigneeID: &workerID})
	f.orders.add(&model.WorkOrder{WorkOrderNo: newWorkOrderNo(), Title: "theirs", Type: "manual", Status: "assigned", AssigneeID: &other})

	worker := authority.Identity{UserID: workerID, RoleCode: authority.RoleMaintenanceWorker}
	orders, total, err := f.svc.List(context.Background(), worker, ListWorkOrdersQuery{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(orders) != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if orders[0].Title != "mine" {
		t.Fatal("assigned-scope listing returned another worker's order")
	}
}
