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
)

var (
	ErrUsernameTaken = errors.New("用户名已存在")
	ErrRoleNotFound  = errors.New("角色不存在")
)

// DeniedError wraps an authority denial so handlers can map the reason
// code to an HTTP status.
type DeniedError struct {
	Decision authority.Decision
}

func (e *DeniedError) Error() string {
	return e.Decision.Message
}

// AsDenied extracts a DeniedError from an error chain.
func AsDenied(err error) (*DeniedError, bool) {
	var de *DeniedError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// --- DTOs ---

type UserResponse struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	Email        string     `json:"email,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
	RoleID       uuid.UUID  `json:"role_id"`
	RoleCode     string     `json:"role_code,omitempty"`
	RoleName     string     `json:"role_name,omitempty"`
	AreaID       *uuid.UUID `json:"area_id,omitempty"`
	AreaName     string     `json:"area_name,omitempty"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	Status       string     `json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type CreateUserRequest struct {
	Username     string     `json:"username" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	Password     string     `json:"password" binding:"required,min=6"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	RoleCode     string     `json:"role_code" binding:"required"`
	AreaID       *uuid.UUID `json:"area_id"`
	DepartmentID *uuid.UUID `json:"department_id"`
}

type UpdateUserRequest struct {
	Name         *string    `json:"name"`
	Phone        *string    `json:"phone"`
	Email        *string    `json:"email"`
	Avatar       *string    `json:"avatar"`
	AreaID       *uuid.UUID `json:"area_id"`
	DepartmentID *uuid.UUID `json:"department_id"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

type ChangeRoleRequest struct {
	RoleCode string `json:"role_code" binding:"required"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type ListUsersQuery struct {
	RoleCode string
	Status   string
	AreaID   *uuid.UUID
	Keyword  string
	Page     int
	Limit    int
}

// UserService manages accounts: CRUD plus the guarded status and role
// changes that cascade into sessions and rosters
type UserService interface {
	Create(ctx context.Context, actor authority.Identity, req CreateUserRequest) (*UserResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	List(ctx context.Context, q ListUsersQuery) ([]UserResponse, int64, error)
	Update(ctx context.Context, actor authority.Identity, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error)
	ChangeStatus(ctx context.Context, actor authority.Identity, id uuid.UUID, req ChangeStatusRequest) error
	ChangeRole(ctx context.Context, actor authority.Identity, id uuid.UUID, req ChangeRoleRequest) error
	ResetPassword(ctx context.Context, actor authority.Identity, id uuid.UUID, req ResetPasswordRequest) error
	Delete(ctx context.Context, actor authority.Identity, id uuid.UUID) error
}

type userService struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	audits repository.AuditRepository
	txm    repository.TransactionManager
	auth   *authority.Authority
}

func NewUserService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	auth *authority.Authority,
) UserService {
	return &userService{users: users, roles: roles, audits: audits, txm: txm, auth: auth}
}

func (s *userService) Create(ctx context.Context, actor authority.Identity, req CreateUserRequest) (*UserResponse, error) {
	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	}

	role, err := s.roles.FindByCode(ctx, req.RoleCode)
	if err != nil {
		return nil, ErrRoleNotFound
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     req.Username,
		Name:         req.Name,
		Password:     string(hashed),
		Phone:        req.Phone,
		Email:        req.Email,
		RoleID:       role.ID,
		AreaID:       req.AreaID,
		DepartmentID: req.DepartmentID,
		Status:       model.UserStatusActive,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.users.Create(txCtx, user); createErr != nil {
			return createErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "create_user", user, model.LogStatusSuccess, ""))
	})
	if err != nil {
		return nil, err
	}

	user.Role = role
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) List(ctx context.Context, q ListUsersQuery) ([]UserResponse, int64, error) {
	users, total, err := s.users.List(ctx, repository.UserFilter{
		RoleCode: q.RoleCode,
		Status:   q.Status,
		AreaID:   q.AreaID,
		Keyword:  q.Keyword,
		Page:     q.Page,
		Limit:    q.Limit,
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out, total, nil
}

func (s *userService) Update(ctx context.Context, actor authority.Identity, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.AreaID != nil {
		user.AreaID = req.AreaID
	}
	if req.DepartmentID != nil {
		user.DepartmentID = req.DepartmentID
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updErr := s.users.Update(txCtx, user); updErr != nil {
			return updErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "update_user", user, model.LogStatusSuccess, ""))
	})
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ChangeStatus activates or deactivates an account. Deactivation revokes
// every live session and, for maintenance workers, clears their area
// roster entries so they stop receiving assignments.
func (s *userService) ChangeStatus(ctx context.Context, actor authority.Identity, id uuid.UUID, req ChangeStatusRequest) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return ErrUserNotFound
	}

	targetRole := authority.RoleCode("")
	if user.Role != nil {
		targetRole = authority.RoleCode(user.Role.Code)
	}
	deactivate := req.Status == model.UserStatusInactive

	if d := s.auth.AuthorizeStatusChange(actor, user.ID, targetRole, deactivate); !d.Allowed {
		s.logDenied(ctx, actor, "change_user_status", user, d)
		return &DeniedError{Decision: d}
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if updErr := s.users.UpdateStatus(txCtx, user.ID, req.Status); updErr != nil {
			return updErr
		}
		if deactivate {
			if revokeErr := s.users.RevokeSessions(txCtx, user.ID); revokeErr != nil {
				return revokeErr
			}
			if targetRole == authority.RoleMaintenanceWorker {
				if rosterErr := s.users.RemoveFromRosters(txCtx, user.ID); rosterErr != nil {
					return rosterErr
				}
			}
		}
		return s.audits.Log(txCtx, s.entry(actor, "change_user_status", user, model.LogStatusSuccess,
			fmt.Sprintf("status=%s", req.Status)))
	})
}

func (s *userService) ChangeRole(ctx context.Context, actor authority.Identity, id uuid.UUID, req ChangeRoleRequest) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return ErrUserNotFound
	}

	newRole, err := s.roles.FindByCode(ctx, req.RoleCode)
	if err != nil {
		return ErrRoleNotFound
	}

	currentCode := authority.RoleCode("")
	if user.Role != nil {
		currentCode = authority.RoleCode(user.Role.Code)
	}

	if d := s.auth.AuthorizeRoleChange(actor, currentCode, authority.RoleCode(newRole.Code)); !d.Allowed {
		s.logDenied(ctx, actor, "change_user_role", user, d)
		return &DeniedError{Decision: d}
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		user.RoleID = newRole.ID
		user.Role = nil
		if updErr := s.users.Update(txCtx, user); updErr != nil {
			return updErr
		}
		// Issued tokens carry the old role claim until refreshed
		if revokeErr := s.users.RevokeSessions(txCtx, user.ID); revokeErr != nil {
			return revokeErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "change_user_role", user, model.LogStatusSuccess,
			fmt.Sprintf("role=%s", newRole.Code)))
	})
}

func (s *userService) ResetPassword(ctx context.Context, actor authority.Identity, id uuid.UUID, req ResetPasswordRequest) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return ErrUserNotFound
	}

	if actor.RoleCode != authority.RoleAdmin && actor.RoleCode != authority.RoleMonitorSupervisor {
		d := authority.Deny(authority.ReasonActionNotPermitted, "只有管理员可以重置密码")
		s.logDenied(ctx, actor, "reset_password", user, d)
		return &DeniedError{Decision: d}
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
		if revokeErr := s.users.RevokeSessions(txCtx, user.ID); revokeErr != nil {
			return revokeErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "reset_password", user, model.LogStatusSuccess, ""))
	})
}

func (s *userService) Delete(ctx context.Context, actor authority.Identity, id uuid.UUID) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return ErrUserNotFound
	}

	targetRole := authority.RoleCode("")
	if user.Role != nil {
		targetRole = authority.RoleCode(user.Role.Code)
	}

	// Deletion is a stronger deactivation and follows the same guards
	if d := s.auth.AuthorizeStatusChange(actor, user.ID, targetRole, true); !d.Allowed {
		s.logDenied(ctx, actor, "delete_user", user, d)
		return &DeniedError{Decision: d}
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if revokeErr := s.users.RevokeSessions(txCtx, user.ID); revokeErr != nil {
			return revokeErr
		}
		if rosterErr := s.users.RemoveFromRosters(txCtx, user.ID); rosterErr != nil {
			return rosterErr
		}
		if delErr := s.users.Delete(txCtx, user.ID); delErr != nil {
			return delErr
		}
		return s.audits.Log(txCtx, s.entry(actor, "delete_user", user, model.LogStatusSuccess, ""))
	})
}

func (s *userService) entry(actor authority.Identity, action string, target *model.User, status, detail string) *model.OperationLog {
	return &model.OperationLog{
		UserID:     &actor.UserID,
		Username:   actor.Username,
		Module:     model.ModuleUser,
		Action:     action,
		TargetType: "user",
		TargetID:   target.ID.String(),
		TargetName: target.Username,
		Status:     status,
		Detail:     detail,
	}
}

// Denied attempts are recorded with failure status outside any transaction
func (s *userService) logDenied(ctx context.Context, actor authority.Identity, action string, target *model.User, d authority.Decision) {
	entry := s.entry(actor, action, target, model.LogStatusFailure, "")
	entry.Detail = fmt.Sprintf("reason=%s %s", d.Reason, d.Message)
	_ = s.audits.Log(ctx, entry)
}

func toUserResponse(user *model.User) UserResponse {
	resp := UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Name:         user.Name,
		Phone:        user.Phone,
		Email:        user.Email,
		Avatar:       user.Avatar,
		RoleID:       user.RoleID,
		AreaID:       user.AreaID,
		DepartmentID: user.DepartmentID,
		Status:       user.Status,
		LastLoginAt:  user.LastLoginAt,
		CreatedAt:    user.CreatedAt,
	}
	if user.Role != nil {
		resp.RoleCode = user.Role.Code
		resp.RoleName = user.Role.Name
	}
	if user.Area != nil {
		resp.AreaName = user.Area.Name
	}
	return resp
}
