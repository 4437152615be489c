package service

import (
	"context"
	"sort"

	"riverwatch/internal/authority"
	"riverwatch/internal/model"
	"riverwatch/internal/repository"
)

// RoleInfo merges the persisted role row with its authority configuration
// so clients get the permission surface alongside display fields.
type RoleInfo struct {
	ID          string   `json:"id"`
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Actions     []string `json:"actions"`
	Scope       string   `json:"scope"`
	CanAssign   bool     `json:"can_assign"`
	CanReview   bool     `json:"can_review"`
	CanCreate   bool     `json:"can_create"`
}

// RoleService lists the fixed role catalog
type RoleService interface {
	ListAll(ctx context.Context) ([]RoleInfo, error)
	Get(ctx context.Context, code string) (*RoleInfo, error)
}

type roleService struct {
	roles repository.RoleRepository
	auth  *authority.Authority
}

func NewRoleService(roles repository.RoleRepository, auth *authority.Authority) RoleService {
	return &roleService{roles: roles, auth: auth}
}

func (s *roleService) ListAll(ctx context.Context) ([]RoleInfo, error) {
	rows, err := s.roles.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RoleInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.toRoleInfo(&row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *roleService) Get(ctx context.Context, code string) (*RoleInfo, error) {
	row, err := s.roles.FindByCode(ctx, code)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	info := s.toRoleInfo(row)
	return &info, nil
}

func (s *roleService) toRoleInfo(row *model.Role) RoleInfo {
	info := RoleInfo{
		ID:          row.ID.String(),
		Code:        row.Code,
		Name:        row.Name,
		Description: row.Description,
	}
	if role, ok := s.auth.Roles().Lookup(authority.RoleCode(row.Code)); ok {
		info.Actions = make([]string, 0, len(role.Actions))
		for _, a := range role.Actions {
			info.Actions = append(info.Actions, string(a))
		}
		info.Scope = string(role.Scope)
		info.CanAssign = role.CanAssign
		info.CanReview = role.CanReview
		info.CanCreate = role.CanCreate
	}
	return info
}
