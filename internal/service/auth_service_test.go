package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"riverwatch/internal/authority"
	"riverwatch/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(users *fakeUserRepo, audits *fakeAuditRepo) (AuthService, *authority.Verifier) {
	verifier := authority.NewVerifier([]byte("test-secret"))
	return NewAuthService(users, audits, fakeTxManager{}, verifier, authority.NewDefault()), verifier
}

func seedUser(users *fakeUserRepo, username, password, roleCode, status string) *model.User {
	hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	role := &model.Role{ID: uuid.New(), Code: roleCode, Name: roleCode}
	return users.add(&model.User{
		ID:       uuid.New(),
		Username: username,
		Name:     username,
		Password: string(hashed),
		RoleID:   role.ID,
		Role:     role,
		Status:   status,
	})
}

func TestLoginSuccess(t *testing.T) {
	users := newFakeUserRepo()
	audits := &fakeAuditRepo{}
	svc, verifier := newTestAuthService(users, audits)
	seedUser(users, "zhangwei", "secret123", "R001", model.UserStatusActive)

	res, err := svc.Login(context.Background(), LoginRequest{Username: "zhangwei", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a token")
	}

	id, err := verifier.Verify(res.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if id.RoleCode != authority.RoleAdmin {
		t.Fatalf("role claim = %s, want R001", id.RoleCode)
	}
	if id.Platform != authority.PlatformWeb {
		t.Fatalf("platform = %s, want web", id.Platform)
	}
	if len(users.sessions) != 1 {
		t.Fatalf("sessions recorded = %d, want 1", len(users.sessions))
	}
}

func TestLoginWrongPassword(t *testing.T) {
	users := newFakeUserRepo()
	audits := &fakeAuditRepo{}
	svc, _ := newTestAuthService(users, audits)
	u := seedUser(users, "zhangwei", "secret123", "R001", model.UserStatusActive)

	if _, err := svc.Login(context.Background(), LoginRequest{Username: "zhangwei", Password: "nope"}); !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("err = %v, want ErrInvalidLogin", err)
	}
	if got := users.users[u.ID].LoginAttempts; got != 1 {
		t.Fatalf("login attempts = %d, want 1", got)
	}
	if audits.countByStatus(model.LogStatusFailure) != 1 {
		t.Fatal("expected one failure audit entry")
	}
}

func TestLoginLockoutAfterFiveFailures(t *testing.T) {
	users := newFakeUserRepo()
	audits := &fakeAuditRepo{}
	svc, _ := newTestAuthService(users, audits)
	seedUser(users, "zhangwei", "secret123", "R001", model.UserStatusActive)

	for i := 0; i < 5; i++ {
		if _, err := svc.Login(context.Background(), LoginRequest{Username: "zhangwei", Password: "nope"}); !errors.Is(err, ErrInvalidLogin) {
			t.Fatalf("attempt %d: err = %v, want ErrInvalidLogin", i+1, err)
		}
	}

	// Correct password is now rejected until the window expires
	if _, err := svc.Login(context.Background(), LoginRequest{Username: "zhangwei", Password: "secret123"}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("err = %v, want ErrAccountLocked", err)
	}
}

func TestLoginLockoutExpires(t *testing.T) {
	users := newFakeUserRepo()
	audits := &fakeAuditRepo{}
	svc, _ := newTestAuthService(users, audits)
	u := seedUser(users, "zhangwei", "secret123", "R001", model.UserStatusActive)

	past := time.Now().Add(-20 * time.Minute)
	stored := users.users[u.ID]
	stored.LoginAttempts = 5
	stored.LastLoginAttempt = &past

	res, err := svc.Login(context.Background(), LoginRequest{Username: "zhangwei", Password: "secret123"})
	if err != nil {
		t.Fatalf("login after lockout window: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a token")
	}
	if got := users.users[u.ID].LoginAttempts; got != 0 {
		t.Fatalf("attempts not reset, got %d", got)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	users := newFakeUserRepo()
	audits := &fakeAuditRepo{}
	svc, _ := newTestAuthService(users, audits)
	seedUser(users, "zhangwei", "secret123", "R001", model.UserStatusInactive)

	if _, err := svc.Login(context.Background(), LoginRequest{Username: "zhangwei", Password: "secret123"}); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("err = %v, want ErrAccountDisabled", err)
	}
}

func TestRefreshActiveAccount(t *testing.T) {
	users := newFakeUserRepo()
	audits := &fakeAuditRepo{}
	svc, verifier := newTestAuthService(users, audits)
	u := seedUser(users, "zhangwei", "secret123", "R002", model.UserStatusActive)

	// Token with a stale role claim: refresh must re-read the account
	stale, err := verifier.Issue(authority.Identity{
		UserID:   u.ID,
		Username: u.Username,
		RoleCode: authority.RoleInspector,
		Platform: authority.PlatformMobile,
	}, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	res, err := svc.Refresh(context.Background(), stale)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	id, err := verifier.Verify(res.Token)
	if err != nil {
		t.Fatalf("refreshed token does not verify: %v", err)
	}
	if id.RoleCode != authority.RoleMonitorSupervisor {
		t.Fatalf("refreshed role claim = %s, want current role R002", id.RoleCode)
	}
	if id.Platform != authority.PlatformMobile {
		t.Fatalf("platform claim = %s, want preserved mobile", id.Platform)
	}
}

func TestRefreshDisabledAccount(t *testing.T) {
	users := newFakeUserRepo()
	audits := &fakeAuditRepo{}
	svc, verifier := newTestAuthService(users, audits)
	u := seedUser(users, "zhangwei", "secret123", "R002", model.UserStatusInactive)

	token, _ := verifier.Issue(authority.Identity{UserID: u.ID, Username: u.Username, RoleCode: authority.RoleMonitorSupervisor, Platform: authority.PlatformWeb}, time.Minute)
	if _, err := svc.Refresh(context.Background(), token); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("err = %v, want ErrAccountDisabled", err)
	}
}

func TestRefreshExpiredTokenStillWorks(t *testing.T) {
	users := newFakeUserRepo()
	audits := &fakeAuditRepo{}
	svc, verifier := newTestAuthService(users, audits)
	u := seedUser(users, "zhangwei", "secret123", "R001", model.UserStatusActive)

	expired, _ := verifier.Issue(authority.Identity{UserID: u.ID, Username: u.Username, RoleCode: authority.RoleAdmin, Platform: authority.PlatformWeb}, -time.Minute)
	if _, err := verifier.Verify(expired); err == nil {
		t.Fatal("expected expired token to fail Verify")
	}

	res, err := svc.Refresh(context.Background(), expired)
	if err != nil {
		t.Fatalf("Refresh with expired token: %v", err)
	}
	if _, err := verifier.Verify(res.Token); err != nil {
		t.Fatalf("new token does not verify: %v", err)
	}
}

func TestChangePasswordWrongOld(t *testing.T) {
	users := newFakeUserRepo()
	audits := &fakeAuditRepo{}
	svc, _ := newTestAuthService(users, audits)
	u := seedUser(users, "zhangwei", "secret123", "R001", model.UserStatusActive)

	err := svc.ChangePassword(context.Background(), authority.Identity{UserID: u.ID, Username: u.Username}, ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newsecret",
	})
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("err = %v, want ErrWrongPassword", err)
	}
}

func TestLogoutRevokesSessions(t *testing.T) {
	users := newFakeUserRepo()
	audits := &fakeAuditRepo{}
	svc, _ := newTestAuthService(users, audits)
	u := seedUser(users, "zhangwei", "secret123", "R001", model.UserStatusActive)

	if err := svc.Logout(context.Background(), authority.Identity{UserID: u.ID, Username: u.Username}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if users.revoked[u.ID] != 1 {
		t.Fatal("expected sessions to be revoked")
	}
}
