// Package authority is the single decision point for river-patrol
// authorization: it verifies identities, checks role permissions and
// visibility scopes, and validates lifecycle transitions for alarms and
// work orders. Handlers fetch the target entity first and delegate the
// (identity, action, entity) decision here; the authority never fetches
// or mutates anything itself.
package authority

import (
	"fmt"

	"github.com/google/uuid"
)

// MaxBatchSize caps batch operations. Exceeding it is a hard validation
// failure, not a partial batch.
const MaxBatchSize = 100

// EntityRef describes the governed entity at decision time. Callers load
// it from persistence before invoking the authority.
type EntityRef struct {
	Kind             EntityKind
	State            State
	AssigneeID       uuid.UUID
	CreatorID        uuid.UUID
	AreaID           uuid.UUID
	AreaSupervisorID uuid.UUID
	DepartmentID     uuid.UUID
}

// Authority decides admit/deny for (identity, action, entity) triples.
// It holds only read-only configuration and is safe for concurrent use.
type Authority struct {
	roles       *RoleTable
	transitions *TransitionRules
}

// New builds an Authority over the given role table and transition rules.
func New(roles *RoleTable, transitions *TransitionRules) *Authority {
	return &Authority{roles: roles, transitions: transitions}
}

// NewDefault builds an Authority with the built-in role and transition
// configuration.
func NewDefault() *Authority {
	return New(DefaultRoleTable(), DefaultTransitionRules())
}

// Roles exposes the role table for read-only listing endpoints.
func (a *Authority) Roles() *RoleTable {
	return a.roles
}

// Authorize evaluates, in fixed order with short-circuit:
//  1. action permission against the role's allowed-action set
//  2. visibility scope against the entity
//  3. transition validity against the entity kind's table
//
// Role permission and transition validity are independent axes: an admin
// is still blocked by an invalid transition.
func (a *Authority) Authorize(id Identity, action Action, ref EntityRef) Decision {
	role, ok := a.roles.Lookup(id.RoleCode)
	if !ok {
		return Deny(ReasonActionNotPermitted, fmt.Sprintf("未知角色 %s", id.RoleCode))
	}

	if !role.Allows(action) {
		return Deny(ReasonActionNotPermitted, fmt.Sprintf("当前角色无权执行 %s 操作", action))
	}

	if d := a.checkScope(id, role, ref); !d.Allowed {
		return d
	}

	next, hasTarget := TargetState(ref.Kind, action)
	if !hasTarget {
		return Admit()
	}
	if !a.transitions.CanTransition(ref.Kind, ref.State, next) {
		if action == ActionConfirm && ref.State != StatePending {
			return Deny(ReasonInvalidTransition, "告警已处理，无需重复确认")
		}
		return Deny(ReasonInvalidTransition,
			fmt.Sprintf("当前状态 %s 不允许流转到 %s", ref.State, next))
	}

	return Admit()
}

func (a *Authority) checkScope(id Identity, role Role, ref EntityRef) Decision {
	switch role.Scope {
	case ScopeAll:
		return Admit()
	case ScopeAssigned:
		if ref.AssigneeID != uuid.Nil && ref.AssigneeID == id.UserID {
			return Admit()
		}
		return Deny(ReasonOutOfScope, "只能操作分配给自己的工单")
	case ScopeDepartment:
		if ref.DepartmentID != uuid.Nil && ref.DepartmentID == id.DepartmentID {
			return Admit()
		}
		return Deny(ReasonOutOfScope, "只能操作本部门的数据")
	case ScopeArea:
		if ref.AreaID != uuid.Nil && ref.AreaID == id.AreaID {
			return Admit()
		}
		if ref.AreaSupervisorID != uuid.Nil && ref.AreaSupervisorID == id.UserID {
			return Admit()
		}
		return Deny(ReasonOutOfScope, "只能操作所辖区域的数据")
	default:
		return Deny(ReasonOutOfScope, "未知的数据范围")
	}
}

// AuthorizeStatusChange guards user activation/deactivation:
// only R001/R002 may manage status, nobody may change their own status,
// and the top administrative role can never be deactivated.
func (a *Authority) AuthorizeStatusChange(id Identity, targetUserID uuid.UUID, targetRole RoleCode, deactivate bool) Decision {
	if id.RoleCode != RoleAdmin && id.RoleCode != RoleMonitorSupervisor {
		return Deny(ReasonActionNotPermitted, "只有管理员可以管理用户状态")
	}
	if targetUserID == id.UserID {
		return Deny(ReasonActionNotPermitted, "不能修改自己的账户状态")
	}
	if deactivate && targetRole == RoleAdmin {
		return Deny(ReasonActionNotPermitted, "不能停用系统管理员账户")
	}
	return Admit()
}

// AuthorizeRoleChange guards role reassignment: moving a user onto or off
// the top administrative role requires the caller to hold it, preventing
// privilege downgrade by a lesser role.
func (a *Authority) AuthorizeRoleChange(id Identity, currentRole, newRole RoleCode) Decision {
	if id.RoleCode != RoleAdmin && id.RoleCode != RoleMonitorSupervisor {
		return Deny(ReasonActionNotPermitted, "只有管理员可以分配角色")
	}
	if (currentRole == RoleAdmin || newRole == RoleAdmin) && id.RoleCode != RoleAdmin {
		return Deny(ReasonActionNotPermitted, "只有系统管理员可以变更管理员角色")
	}
	return Admit()
}

// ValidateBatch enforces the batch cap before any per-item evaluation.
func ValidateBatch(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return fmt.Errorf("请选择要处理的记录")
	}
	if len(ids) > MaxBatchSize {
		return fmt.Errorf("批量处理最多支持%d条记录", MaxBatchSize)
	}
	return nil
}
