package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"riverwatch/internal/authority"
	"riverwatch/internal/model"
	"riverwatch/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Session lifetimes
const (
	DefaultTokenTTL    = 24 * time.Hour
	RememberMeTokenTTL = 7 * 24 * time.Hour

	maxLoginAttempts = 5
	lockoutWindow    = 15 * time.Minute
)

// Sentinel errors mapped by handlers to HTTP statuses
var (
	ErrInvalidLogin    = errors.New("用户名或密码错误")
	ErrAccountLocked   = errors.New("登录失败次数过多，账号已临时锁定")
	ErrAccountDisabled = errors.New("账号已被禁用")
	ErrUserNotFound    = errors.New("用户不存在")
	ErrWrongPassword   = errors.New("原密码错误")
)

// --- DTOs ---

type LoginRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
	Platform   string `json:"platform"` // web (default) or mobile
}

type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	Platform  string       `json:"platform"`
	User      UserResponse `json:"user"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type PermissionsResponse struct {
	RoleCode string   `json:"role_code"`
	RoleName string   `json:"role_name"`
	Actions  []string `json:"actions"`
	Scope    string   `json:"scope"`
}

// AuthService handles sessions: login, refresh, logout, password changes
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, token string) (*TokenResponse, error)
	Logout(ctx context.Context, id authority.Identity) error
	ChangePassword(ctx context.Context, id authority.Identity, req ChangePasswordRequest) error
	Me(ctx context.Context, id authority.Identity) (*UserResponse, error)
	Permissions(id authority.Identity) (*PermissionsResponse, error)
}

type authService struct {
	users    repository.UserRepository
	audits   repository.AuditRepository
	txm      repository.TransactionManager
	verifier *authority.Verifier
	auth     *authority.Authority
}

func NewAuthService(
	users repository.UserRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	verifier *authority.Verifier,
	auth *authority.Authority,
) AuthService {
	return &authService{users: users, audits: audits, txm: txm, verifier: verifier, auth: auth}
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	platform := authority.PlatformWeb
	if req.Platform == string(authority.PlatformMobile) {
		platform = authority.PlatformMobile
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		s.logAuth(ctx, nil, req.Username, "login", model.LogStatusFailure, "user_not_found")
		return nil, ErrInvalidLogin
	}

	if user.Status != model.UserStatusActive {
		s.logAuth(ctx, &user.ID, user.Username, "login", model.LogStatusFailure, "account_disabled")
		return nil, ErrAccountDisabled
	}

	// Temporary lockout after repeated failures
	if user.LoginAttempts >= maxLoginAttempts && user.LastLoginAttempt != nil &&
		time.Since(*user.LastLoginAttempt) < lockoutWindow {
		s.logAuth(ctx, &user.ID, user.Username, "login", model.LogStatusFailure, "account_locked")
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		now := time.Now()
		user.LoginAttempts++
		user.LastLoginAttempt = &now
		_ = s.users.Update(ctx, user)
		s.logAuth(ctx, &user.ID, user.Username, "login", model.LogStatusFailure, "wrong_password")
		return nil, ErrInvalidLogin
	}

	ttl := DefaultTokenTTL
	if req.RememberMe {
		ttl = RememberMeTokenTTL
	}

	identity := identityForUser(user, platform)
	token, err := s.verifier.Issue(identity, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		user.LoginAttempts = 0
		user.LastLoginAttempt = nil
		user.LastLoginAt = &now
		if updErr := s.users.Update(txCtx, user); updErr != nil {
			return updErr
		}
		if sessErr := s.users.RecordSession(txCtx, &model.UserSession{
			UserID:    user.ID,
			Platform:  string(platform),
			ExpiresAt: expiresAt,
		}); sessErr != nil {
			return sessErr
		}
		return s.audits.Log(txCtx, &model.OperationLog{
			UserID:     &user.ID,
			Username:   user.Username,
			Module:     model.ModuleAuth,
			Action:     "login",
			TargetType: "user",
			TargetID:   user.ID.String(),
			TargetName: user.Name,
			Status:     model.LogStatusSuccess,
		})
	})
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		Platform:  string(platform),
		User:      resp,
	}, nil
}

// Refresh accepts a decodable token even past its expiry, re-reads the
// account from persistence and issues a fresh token with the current
// role/area claims. Disabled accounts never get a renewed token.
func (s *authService) Refresh(ctx context.Context, token string) (*TokenResponse, error) {
	decoded, err := s.verifier.DecodeExpired(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, decoded.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrAccountDisabled
	}

	identity := identityForUser(user, decoded.Platform)
	newToken, err := s.verifier.Issue(identity, DefaultTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	expiresAt := time.Now().Add(DefaultTokenTTL)
	if sessErr := s.users.RecordSession(ctx, &model.UserSession{
		UserID:    user.ID,
		Platform:  string(decoded.Platform),
		ExpiresAt: expiresAt,
	}); sessErr != nil {
		return nil, sessErr
	}
	s.logAuth(ctx, &user.ID, user.Username, "session_refresh", model.LogStatusSuccess, "")

	resp := toUserResponse(user)
	return &TokenResponse{
		Token:     newToken,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		Platform:  string(decoded.Platform),
		User:      resp,
	}, nil
}

func (s *authService) Logout(ctx context.Context, id authority.Identity) error {
	if err := s.users.RevokeSessions(ctx, id.UserID); err != nil {
		return err
	}
	s.logAuth(ctx, &id.UserID, id.Username, "logout", model.LogStatusSuccess, "")
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, id authority.Identity, req ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		s.logAuth(ctx, &user.ID, user.Username, "change_password", model.LogStatusFailure, "wrong_password")
		return ErrWrongPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		user.Password = string(hashed)
		if updErr := s.users.Update(txCtx, user); updErr != nil {
			return updErr
		}
		return s.audits.Log(txCtx, &model.OperationLog{
			UserID:     &user.ID,
			Username:   user.Username,
			Module:     model.ModuleAuth,
			Action:     "change_password",
			TargetType: "user",
			TargetID:   user.ID.String(),
			TargetName: user.Name,
			Status:     model.LogStatusSuccess,
		})
	})
}

func (s *authService) Me(ctx context.Context, id authority.Identity) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) Permissions(id authority.Identity) (*PermissionsResponse, error) {
	role, ok := s.auth.Roles().Lookup(id.RoleCode)
	if !ok {
		return nil, fmt.Errorf("unknown role %s", id.RoleCode)
	}
	actions := make([]string, 0, len(role.Actions))
	for _, a := range role.Actions {
		actions = append(actions, string(a))
	}
	return &PermissionsResponse{
		RoleCode: string(role.Code),
		RoleName: role.Name,
		Actions:  actions,
		Scope:    string(role.Scope),
	}, nil
}

// logAuth writes a best-effort auth audit row outside any transaction
func (s *authService) logAuth(ctx context.Context, userID *uuid.UUID, username, action, status, detail string) {
	_ = s.audits.Log(ctx, &model.OperationLog{
		UserID:   userID,
		Username: username,
		Module:   model.ModuleAuth,
		Action:   action,
		Status:   status,
		Detail:   detail,
	})
}

func identityForUser(user *model.User, platform authority.Platform) authority.Identity {
	id := authority.Identity{
		UserID:   user.ID,
		Username: user.Username,
		RoleID:   user.RoleID,
		Platform: platform,
	}
	if user.Role != nil {
		id.RoleCode = authority.RoleCode(user.Role.Code)
	}
	if user.AreaID != nil {
		id.AreaID = *user.AreaID
	}
	if user.DepartmentID != nil {
		id.DepartmentID = *user.DepartmentID
	}
	return id
}

// IsNotFound reports whether the error is a gorm record-not-found
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
