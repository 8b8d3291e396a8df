package gate

// State is a step in the life of one call through the coordinator.
type State int

const (
	// StateReceived is the entry state.
	StateReceived State = iota
	// StatePermissionChecked means the caller may invoke the tool.
	StatePermissionChecked
	// StateRateChecked means the call fits within the quota.
	StateRateChecked
	// StateAdmitted is the terminal success state.
	StateAdmitted
	// StateDenied is the terminal state for permission or quota denials.
	StateDenied
	// StateErrored is the terminal state for store faults.
	StateErrored
)

// String returns the snake_case name of the state.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StatePermissionChecked:
		return "permission_checked"
	case StateRateChecked:
		return "rate_checked"
	case StateAdmitted:
		return "admitted"
	case StateDenied:
		return "denied"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateAdmitted || s == StateDenied || s == StateErrored
}
