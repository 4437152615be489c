package service

import (
	"context"
	"testing"

	"riverwatch/internal/authority"
	"riverwatch/internal/model"

	"github.com/google/uuid"
)

type userFixture struct {
	svc    UserService
	users  *fakeUserRepo
	roles  *fakeRoleRepo
	audits *fakeAuditRepo
}

func newUserFixture() *userFixture {
	users := newFakeUserRepo()
	roles := newFakeRoleRepo()
	for code, name := range map[string]string{
		"R001": "系统管理员", "R002": "监控中心主管", "R003": "河道维护员",
		"R004": "河道巡检员", "R005": "区域主管", "R006": "河道维护员主管",
	} {
		roles.add(code, name)
	}
	audits := &fakeAuditRepo{}
	svc := NewUserService(users, roles, audits, fakeTxManager{}, authority.NewDefault())
	return &userFixture{svc: svc, users: users, roles: roles, audits: audits}
}

func (f *userFixture) seed(username, roleCode string) *model.User {
	role := f.roles.roles[roleCode]
	return f.users.add(&model.User{
		ID:       uuid.New(),
		Username: username,
		Name:     username,
		Password: "x",
		RoleID:   role.ID,
		Role:     role,
		Status:   model.UserStatusActive,
	})
}

func TestCreateUser(t *testing.T) {
	f := newUserFixture()
	actor := adminIdentity()

	user, err := f.svc.Create(context.Background(), actor, CreateUserRequest{
		Username: "lihua",
		Name:     "李华",
		Password: "secret123",
		RoleCode: "R003",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.RoleCode != "R003" {
		t.Fatalf("role = %s, want R003", user.RoleCode)
	}

	stored, _ := f.users.GetByID(context.Background(), user.ID)
	if stored.Password == "secret123" {
		t.Fatal("password stored in plain text")
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	f := newUserFixture()
	actor := adminIdentity()
	f.seed("lihua", "R003")

	_, err := f.svc.Create(context.Background(), actor, CreateUserRequest{
		Username: "lihua", Name: "李华", Password: "secret123", RoleCode: "R003",
	})
	if err != ErrUsernameTaken {
		t.Fatalf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestCannotChangeOwnStatus(t *testing.T) {
	f := newUserFixture()
	admin := f.seed("admin", "R001")
	actor := authority.Identity{UserID: admin.ID, Username: admin.Username, RoleCode: authority.RoleAdmin}

	err := f.svc.ChangeStatus(context.Background(), actor, admin.ID, ChangeStatusRequest{Status: "inactive"})
	de, ok := AsDenied(err)
	if !ok {
		t.Fatalf("err = %v, want denial", err)
	}
	if de.Decision.Reason != authority.ReasonActionNotPermitted {
		t.Fatalf("reason = %s", de.Decision.Reason)
	}
	if f.audits.countByStatus(model.LogStatusFailure) != 1 {
		t.Fatal("denial must be audited")
	}
}

func TestCannotDeactivateAdmin(t *testing.T) {
	f := newUserFixture()
	target := f.seed("admin2", "R001")
	actor := authority.Identity{UserID: uuid.New(), Username: "supervisor", RoleCode: authority.RoleMonitorSupervisor}

	err := f.svc.ChangeStatus(context.Background(), actor, target.ID, ChangeStatusRequest{Status: "inactive"})
	if _, ok := AsDenied(err); !ok {
		t.Fatalf("err = %v, want denial", err)
	}
	if f.users.users[target.ID].Status != model.UserStatusActive {
		t.Fatal("admin account must stay active")
	}
}

func TestActivatingAdminIsAllowed(t *testing.T) {
	f := newUserFixture()
	target := f.seed("admin2", "R001")
	f.users.users[target.ID].Status = model.UserStatusInactive
	actor := authority.Identity{UserID: uuid.New(), Username: "supervisor", RoleCode: authority.RoleMonitorSupervisor}

	if err := f.svc.ChangeStatus(context.Background(), actor, target.ID, ChangeStatusRequest{Status: "active"}); err != nil {
		t.Fatalf("activation should pass: %v", err)
	}
}

func TestDeactivateWorkerCascades(t *testing.T) {
	f := newUserFixture()
	worker := f.seed("worker1", "R003")
	actor := adminIdentity()

	if err := f.svc.ChangeStatus(context.Background(), actor, worker.ID, ChangeStatusRequest{Status: "inactive"}); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if f.users.users[worker.ID].Status != model.UserStatusInactive {
		t.Fatal("worker not deactivated")
	}
	if f.users.revoked[worker.ID] != 1 {
		t.Fatal("sessions must be revoked on deactivation")
	}
	if f.users.rosters[worker.ID] != 1 {
		t.Fatal("maintenance roster entries must be removed on deactivation")
	}
}

func TestDeactivateNonWorkerKeepsRoster(t *testing.T) {
	f := newUserFixture()
	inspector := f.seed("inspector1", "R004")
	actor := adminIdentity()

	if err := f.svc.ChangeStatus(context.Background(), actor, inspector.ID, ChangeStatusRequest{Status: "inactive"}); err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if f.users.revoked[inspector.ID] != 1 {
		t.Fatal("sessions must be revoked")
	}
	if f.users.rosters[inspector.ID] != 0 {
		t.Fatal("non-worker roster cascade must not run")
	}
}

func TestInspectorCannotManageStatus(t *testing.T) {
	f := newUserFixture()
	target := f.seed("worker1", "R003")
	actor := authority.Identity{UserID: uuid.New(), Username: "inspector", RoleCode: authority.RoleInspector}

	err := f.svc.ChangeStatus(context.Background(), actor, target.ID, ChangeStatusRequest{Status: "inactive"})
	if _, ok := AsDenied(err); !ok {
		t.Fatalf("err = %v, want denial", err)
	}
}

func TestSupervisorCannotGrantAdminRole(t *testing.T) {
	f := newUserFixture()
	target := f.seed("worker1", "R003")
	actor := authority.Identity{UserID: uuid.New(), Username: "supervisor", RoleCode: authority.RoleMonitorSupervisor}

	err := f.svc.ChangeRole(context.Background(), actor, target.ID, ChangeRoleRequest{RoleCode: "R001"})
	if _, ok := AsDenied(err); !ok {
		t.Fatalf("err = %v, want denial", err)
	}
}

func TestAdminCanGrantAdminRole(t *testing.T) {
	f := newUserFixture()
	target := f.seed("worker1", "R003")
	actor := adminIdentity()

	if err := f.svc.ChangeRole(context.Background(), actor, target.ID, ChangeRoleRequest{RoleCode: "R001"}); err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	if f.users.users[target.ID].RoleID != f.roles.roles["R001"].ID {
		t.Fatal("role not updated")
	}
	// Old tokens carry the stale role claim, so sessions are revoked
	if f.users.revoked[target.ID] != 1 {
		t.Fatal("sessions must be revoked on role change")
	}
}

func TestResetPasswordRequiresAdminRole(t *testing.T) {
	f := newUserFixture()
	target := f.seed("worker1", "R003")
	actor := authority.Identity{UserID: uuid.New(), Username: "inspector", RoleCode: authority.RoleInspector}

	err := f.svc.ResetPassword(context.Background(), actor, target.ID, ResetPasswordRequest{NewPassword: "newsecret"})
	if _, ok := AsDenied(err); !ok {
		t.Fatalf("err = %v, want denial", err)
	}
}

func TestDeleteAdminDenied(t *testing.T) {
	f := newUserFixture()
	target := f.seed("admin2", "R001")
	actor := authority.Identity{UserID: uuid.New(), Username: "supervisor", RoleCode: authority.RoleMonitorSupervisor}

	if err := f.svc.Delete(context.Background(), actor, target.ID); err == nil {
		t.Fatal("expected admin deletion to be denied")
	}
	if _, err := f.users.GetByID(context.Background(), target.ID); err != nil {
		t.Fatal("admin account must still exist")
	}
}
