package authority

// RoleCode is the stable identifier of a permission bundle.
type RoleCode string

const (
	RoleAdmin                 RoleCode = "R001" // 系统管理员
	RoleMonitorSupervisor     RoleCode = "R002" // 监控中心主管
	RoleMaintenanceWorker     RoleCode = "R003" // 河道维护员
	RoleInspector             RoleCode = "R004" // 河道巡检员
	RoleAreaSupervisor        RoleCode = "R005" // 区域主管
	RoleMaintenanceSupervisor RoleCode = "R006" // 河道维护员主管
)

// Scope is the subset of entities a role may view and act on.
type Scope string

const (
	ScopeAll        Scope = "all"
	ScopeAssigned   Scope = "assigned"
	ScopeDepartment Scope = "department"
	ScopeArea       Scope = "area"
)

// Role is a named permission bundle. Roles are fixed configuration, loaded
// once at process start and immutable afterwards.
type Role struct {
	Code             RoleCode
	Name             string
	Actions          []Action
	Scope            Scope
	ViewableStatuses []State
	CanAssign        bool
	CanReview        bool
	CanCreate        bool
}

// Allows reports whether the role's action set contains the action.
func (r Role) Allows(action Action) bool {
	for _, a := range r.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// CanViewState reports whether the role may list entities in the state.
func (r Role) CanViewState(state State) bool {
	for _, s := range r.ViewableStatuses {
		if s == state {
			return true
		}
	}
	return false
}

// RoleTable is the read-only role configuration injected into the Authority.
type RoleTable struct {
	roles map[RoleCode]Role
}

// NewRoleTable builds an immutable table from the given roles. Duplicate
// codes keep the last entry.
func NewRoleTable(roles ...Role) *RoleTable {
	m := make(map[RoleCode]Role, len(roles))
	for _, r := range roles {
		m[r.Code] = r
	}
	return &RoleTable{roles: m}
}

// Lookup returns the role for a code.
func (t *RoleTable) Lookup(code RoleCode) (Role, bool) {
	r, ok := t.roles[code]
	return r, ok
}

// All returns a copy of every configured role.
func (t *RoleTable) All() []Role {
	out := make([]Role, 0, len(t.roles))
	for _, r := range t.roles {
		out = append(out, r)
	}
	return out
}

var allStatuses = []State{
	StatePending, StateAssigned, StateProcessing,
	StatePendingReview, StateCompleted, StateCancelled,
}

// DefaultRoleTable returns the six built-in river-patrol roles.
func DefaultRoleTable() *RoleTable {
	return NewRoleTable(
		Role{
			Code: RoleAdmin,
			Name: "系统管理员",
			Actions: []Action{
				ActionCreate, ActionAssign, ActionStart, ActionComplete,
				ActionReview, ActionReject, ActionReturn, ActionCancel,
				ActionConfirm, ActionResolve, ActionFalseAlarm, ActionIgnore,
			},
			Scope:            ScopeAll,
			ViewableStatuses: allStatuses,
			CanAssign:        true,
			CanReview:        true,
			CanCreate:        true,
		},
		Role{
			Code: RoleMonitorSupervisor,
			Name: "监控中心主管",
			Actions: []Action{
				ActionCreate, ActionConfirm, ActionResolve,
				ActionFalseAlarm, ActionIgnore, ActionReview, ActionReject,
			},
			Scope: ScopeAll,
			ViewableStatuses: []State{
				StatePending, StateAssigned, StateProcessing,
				StatePendingReview, StateCompleted,
			},
			CanReview: true,
			CanCreate: true,
		},
		Role{
			Code:             RoleMaintenanceWorker,
			Name:             "河道维护员",
			Actions:          []Action{ActionStart, ActionComplete, ActionResolve},
			Scope:            ScopeAssigned,
			ViewableStatuses: []State{StateAssigned, StateProcessing, StateCompleted},
		},
		Role{
			Code:             RoleInspector,
			Name:             "河道巡检员",
			Actions:          []Action{ActionConfirm},
			Scope:            ScopeArea,
			ViewableStatuses: []State{StateProcessing, StatePendingReview, StateCompleted},
		},
		Role{
			Code:    RoleAreaSupervisor,
			Name:    "区域主管",
			Actions: []Action{ActionAssign, ActionReview, ActionReject, ActionReturn},
			Scope:   ScopeArea,
			ViewableStatuses: []State{
				StatePending, StateAssigned, StateProcessing,
				StatePendingReview, StateCompleted,
			},
			CanAssign: true,
			CanReview: true,
		},
		Role{
			Code: RoleMaintenanceSupervisor,
			Name: "河道维护员主管",
			Actions: []Action{
				ActionAssign, ActionReview, ActionReject, ActionReturn,
				ActionConfirm, ActionResolve,
			},
			Scope: ScopeArea,
			ViewableStatuses: []State{
				StatePending, StateAssigned, StateProcessing,
				StatePendingReview, StateCompleted,
			},
			CanAssign: true,
			CanReview: true,
		},
	)
}
