package authority

// EntityKind selects which transition table governs an entity.
type EntityKind string

const (
	KindManualWorkOrder  EntityKind = "manual"
	KindAIAlarmWorkOrder EntityKind = "ai_alarm"
	KindAlarm            EntityKind = "alarm"
)

// State is a lifecycle state of a governed entity.
type State string

// Work order states.
const (
	StatePending       State = "pending"
	StateAssigned      State = "assigned"
	StateProcessing    State = "processing"
	StatePendingReview State = "pending_review"
	StateCompleted     State = "completed"
	StateCancelled     State = "cancelled"
)

// Alarm states. Alarms share pending/processing with work orders.
const (
	StateConfirmed  State = "confirmed"
	StateResolved   State = "resolved"
	StateFalseAlarm State = "false_alarm"
	StateIgnored    State = "ignored"
)

// Action is a requested operation on a governed entity.
type Action string

const (
	ActionCreate     Action = "create"
	ActionAssign     Action = "assign"
	ActionStart      Action = "start"
	ActionComplete   Action = "complete"
	ActionReview     Action = "review"
	ActionReject     Action = "reject"
	ActionReturn     Action = "return"
	ActionCancel     Action = "cancel"
	ActionConfirm    Action = "confirm"
	ActionResolve    Action = "resolve"
	ActionFalseAlarm Action = "false_alarm"
	ActionIgnore     Action = "ignore"
)

// TransitionRules maps, per entity kind, a current state to the set of
// states reachable in one step. Every state has an entry; an empty set
// marks a terminal state. Edges are directed with no implicit reverse.
type TransitionRules struct {
	rules map[EntityKind]map[State][]State
}

// NewTransitionRules builds an immutable rule set.
func NewTransitionRules(rules map[EntityKind]map[State][]State) *TransitionRules {
	return &TransitionRules{rules: rules}
}

// CanTransition reports whether `next` is reachable from `current` for the
// entity kind. Unknown kinds or states always fail.
func (t *TransitionRules) CanTransition(kind EntityKind, current, next State) bool {
	table, ok := t.rules[kind]
	if !ok {
		return false
	}
	for _, reachable := range table[current] {
		if reachable == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the state has no outgoing edges for the kind.
func (t *TransitionRules) Terminal(kind EntityKind, state State) bool {
	table, ok := t.rules[kind]
	if !ok {
		return true
	}
	next, known := table[state]
	return known && len(next) == 0
}

// workOrderTable is shared by the manual and AI-alarm work order flows.
// The kinds key separate entries so the flows can diverge without an API
// change, but today the rules are identical.
func workOrderTable() map[State][]State {
	return map[State][]State{
		StatePending:       {StateAssigned, StateCancelled},
		StateAssigned:      {StateProcessing, StatePending},
		StateProcessing:    {StatePendingReview},
		StatePendingReview: {StateCompleted, StateProcessing},
		StateCompleted:     {},
		StateCancelled:     {},
	}
}

// DefaultTransitionRules returns the built-in lifecycle tables for work
// orders and alarms.
func DefaultTransitionRules() *TransitionRules {
	return NewTransitionRules(map[EntityKind]map[State][]State{
		KindManualWorkOrder:  workOrderTable(),
		KindAIAlarmWorkOrder: workOrderTable(),
		KindAlarm: {
			StatePending:    {StateConfirmed},
			StateConfirmed:  {StateProcessing, StateResolved, StateFalseAlarm, StateIgnored},
			StateProcessing: {StateResolved, StateFalseAlarm, StateIgnored},
			StateResolved:   {},
			StateFalseAlarm: {},
			StateIgnored:    {},
		},
	})
}

// actionTargets maps an action to the state it requests, per entity kind.
// Actions absent from the map (create, reads) carry no state change and
// skip transition validation.
var actionTargets = map[EntityKind]map[Action]State{
	KindManualWorkOrder: {
		ActionAssign:   StateAssigned,
		ActionStart:    StateProcessing,
		ActionComplete: StatePendingReview,
		ActionReview:   StateCompleted,
		ActionReject:   StateProcessing,
		ActionReturn:   StatePending,
		ActionCancel:   StateCancelled,
	},
	KindAIAlarmWorkOrder: {
		ActionAssign:   StateAssigned,
		ActionStart:    StateProcessing,
		ActionComplete: StatePendingReview,
		ActionReview:   StateCompleted,
		ActionReject:   StateProcessing,
		ActionReturn:   StatePending,
		ActionCancel:   StateCancelled,
	},
	KindAlarm: {
		ActionConfirm:    StateConfirmed,
		ActionStart:      StateProcessing,
		ActionResolve:    StateResolved,
		ActionFalseAlarm: StateFalseAlarm,
		ActionIgnore:     StateIgnored,
	},
}

// TargetState returns the state an action requests for the kind, if any.
func TargetState(kind EntityKind, action Action) (State, bool) {
	targets, ok := actionTargets[kind]
	if !ok {
		return "", false
	}
	s, ok := targets[action]
	return s, ok
}
