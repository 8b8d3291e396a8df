package gate

// Reason explains a denial.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonRateLimited      Reason = "rate_limited"
)

// Decision is the outcome of a check. It marshals to
// {"allowed": bool, "reason"?: string, "remaining"?: int}.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`

	// Remaining is set whenever the quota check ran, including on a
	// rate_limited denial where it is 0.
	Remaining *int `json:"remaining,omitempty"`

	// State is the terminal state reached.
	State State `json:"-"`

	// Cause records a fault that was resolved by failing closed rather than
	// returned as an error.
	Cause error `json:"-"`
}

// RemainingOr returns the remaining quota, or def when it is unknown.
func (d Decision) RemainingOr(def int) int {
	if d.Remaining == nil {
		return def
	}
	return *d.Remaining
}

// Outcome is a short label for metrics: "admitted", "denied" or "errored".
func (d Decision) Outcome() string {
	switch d.State {
	case StateAdmitted, StateDenied, StateErrored:
		return d.State.String()
	default:
		return "unknown"
	}
}

func admitted(remaining int) Decision {
	return Decision{Allowed: true, Remaining: &remaining, State: StateAdmitted}
}

func denied(reason Reason, remaining *int) Decision {
	return Decision{Reason: reason, Remaining: remaining, State: StateDenied}
}

func errored() Decision {
	return Decision{State: StateErrored}
}
