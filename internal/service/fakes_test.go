package service

import (
	"context"

	"riverwatch/internal/model"
	"riverwatch/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository fakes. No locking: tests drive them from one
// goroutine.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeUserRepo struct {
	users    map[uuid.UUID]*model.User
	sessions []model.UserSession
	revoked  map[uuid.UUID]int
	rosters  map[uuid.UUID]int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[uuid.UUID]*model.User),
		revoked: make(map[uuid.UUID]int),
		rosters: make(map[uuid.UUID]int),
	}
}

func (r *fakeUserRepo) add(u *model.User) *model.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.add(user)
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(ctx context.Context, filter repository.UserFilter) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Status = status
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) RecordSession(ctx context.Context, session *model.UserSession) error {
	r.sessions = append(r.sessions, *session)
	return nil
}

func (r *fakeUserRepo) RevokeSessions(ctx context.Context, userID uuid.UUID) error {
	r.revoked[userID]++
	return nil
}

func (r *fakeUserRepo) RemoveFromRosters(ctx context.Context, userID uuid.UUID) error {
	r.rosters[userID]++
	return nil
}

type fakeAlarmRepo struct {
	alarms map[uuid.UUID]*model.Alarm
}

func newFakeAlarmRepo() *fakeAlarmRepo {
	return &fakeAlarmRepo{alarms: make(map[uuid.UUID]*model.Alarm)}
}

func (r *fakeAlarmRepo) add(a *model.Alarm) *model.Alarm {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.alarms[a.ID] = a
	return a
}

func (r *fakeAlarmRepo) Create(ctx context.Context, alarm *model.Alarm) error {
	r.add(alarm)
	return nil
}

func (r *fakeAlarmRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Alarm, error) {
	a, ok := r.alarms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAlarmRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Alarm, error) {
	var out []model.Alarm
	for _, id := range ids {
		if a, ok := r.alarms[id]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAlarmRepo) List(ctx context.Context, filter repository.AlarmFilter) ([]model.Alarm, int64, error) {
	var out []model.Alarm
	for _, a := range r.alarms {
		if filter.AreaID != nil && (a.AreaID == nil || *a.AreaID != *filter.AreaID) {
			continue
		}
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAlarmRepo) Update(ctx context.Context, alarm *model.Alarm) error {
	cp := *alarm
	r.alarms[alarm.ID] = &cp
	return nil
}

func (r *fakeAlarmRepo) UpdateBatch(ctx context.Context, ids []uuid.UUID, fields map[string]interface{}) error {
	for _, id := range ids {
		if a, ok := r.alarms[id]; ok {
			if status, has := fields["status"].(string); has {
				a.Status = status
			}
		}
	}
	return nil
}

type fakeWorkOrderRepo struct {
	orders  map[uuid.UUID]*model.WorkOrder
	history []model.WorkOrderStatusHistory
}

func newFakeWorkOrderRepo() *fakeWorkOrderRepo {
	return &fakeWorkOrderRepo{orders: make(map[uuid.UUID]*model.WorkOrder)}
}

func (r *fakeWorkOrderRepo) add(o *model.WorkOrder) *model.WorkOrder {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.orders[o.ID] = o
	return o
}

func (r *fakeWorkOrderRepo) Create(ctx context.Context, order *model.WorkOrder) error {
	r.add(order)
	return nil
}

func (r *fakeWorkOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeWorkOrderRepo) List(ctx context.Context, filter repository.WorkOrderFilter) ([]model.WorkOrder, int64, error) {
	var out []model.WorkOrder
	for _, o := range r.orders {
		if filter.AssigneeID != nil && (o.AssigneeID == nil || *o.AssigneeID != *filter.AssigneeID) {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeWorkOrderRepo) Update(ctx context.Context, order *model.WorkOrder) error {
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeWorkOrderRepo) AppendHistory(ctx context.Context, entry *model.WorkOrderStatusHistory) error {
	r.history = append(r.history, *entry)
	return nil
}

func (r *fakeWorkOrderRepo) History(ctx context.Context, workOrderID uuid.UUID) ([]model.WorkOrderStatusHistory, error) {
	var out []model.WorkOrderStatusHistory
	for _, h := range r.history {
		if h.WorkOrderID == workOrderID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeAreaRepo struct {
	areas map[uuid.UUID]*model.Area
}

func newFakeAreaRepo() *fakeAreaRepo {
	return &fakeAreaRepo{areas: make(map[uuid.UUID]*model.Area)}
}

func (r *fakeAreaRepo) Create(ctx context.Context, area *model.Area) error {
	if area.ID == uuid.Nil {
		area.ID = uuid.New()
	}
	r.areas[area.ID] = area
	return nil
}

func (r *fakeAreaRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Area, error) {
	a, ok := r.areas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAreaRepo) ListAll(ctx context.Context) ([]model.Area, error) {
	var out []model.Area
	for _, a := range r.areas {
		out = append(out, *a)
	}
	return out, nil
}

func (r *fakeAreaRepo) Update(ctx context.Context, area *model.Area) error {
	r.areas[area.ID] = area
	return nil
}

func (r *fakeAreaRepo) ListWorkers(ctx context.Context, areaID uuid.UUID) ([]model.AreaMaintenanceWorker, error) {
	return nil, nil
}

func (r *fakeAreaRepo) AddWorker(ctx context.Context, entry *model.AreaMaintenanceWorker) error {
	return nil
}

func (r *fakeAreaRepo) RemoveWorker(ctx context.Context, areaID, userID uuid.UUID) error {
	return nil
}

type fakeNotificationRepo struct {
	created []model.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	r.created = append(r.created, *n)
	return nil
}

func (r *fakeNotificationRepo) CreateBatch(ctx context.Context, ns []model.Notification) error {
	r.created = append(r.created, ns...)
	return nil
}

func (r *fakeNotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) ListForUser(ctx context.Context, userID uuid.UUID, filter repository.NotificationFilter) ([]model.Notification, int64, error) {
	var out []model.Notification
	for _, n := range r.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, n := range r.created {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) CountByType(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, n := range r.created {
		if n.UserID == userID {
			out[n.Type]++
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	return int64(len(ids)), nil
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (r *fakeNotificationRepo) DeleteBatch(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	return int64(len(ids)), nil
}

type fakeAuditRepo struct {
	entries []model.OperationLog
}

func (r *fakeAuditRepo) Log(ctx context.Context, entry *model.OperationLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) LogBatch(ctx context.Context, entries []model.OperationLog) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, filter repository.AuditFilter) ([]model.OperationLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) countByStatus(status string) int {
	n := 0
	for _, e := range r.entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

type fakeRoleRepo struct {
	roles map[string]*model.Role
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: make(map[string]*model.Role)}
}

func (r *fakeRoleRepo) add(code, name string) *model.Role {
	role := &model.Role{ID: uuid.New(), Code: code, Name: name}
	r.roles[code] = role
	return role
}

func (r *fakeRoleRepo) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	role, ok := r.roles[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return role, nil
}

func (r *fakeRoleRepo) ListAll(ctx context.Context) ([]model.Role, error) {
	var out []model.Role
	for _, role := range r.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (r *fakeRoleRepo) Seed(ctx context.Context, roles []model.Role) error {
	for i := range roles {
		if _, ok := r.roles[roles[i].Code]; !ok {
			cp := roles[i]
			if cp.ID == uuid.Nil {
				cp.ID = uuid.New()
			}
			r.roles[cp.Code] = &cp
		}
	}
	return nil
}
