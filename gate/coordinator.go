package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/toolgate/quota"
)

// ErrInvalidCall indicates a call is missing its tenant, user or tool name.
var ErrInvalidCall = errors.New("gate: invalid call")

// Permissions answers whether a user may invoke a tool.
type Permissions interface {
	IsAllowed(ctx context.Context, userID, tenantID, toolName string) (bool, error)
}

// Quota consumes one unit of a user's quota for a tool.
type Quota interface {
	CheckAndConsume(ctx context.Context, s quota.Subject, toolName string) (quota.Result, error)
}

// Call identifies one inbound tool invocation.
type Call struct {
	TenantID string
	UserID   string
	Tool     string
}

// Validate reports whether every field is set.
func (c Call) Validate() error {
	if c.TenantID == "" || c.UserID == "" || c.Tool == "" {
		return fmt.Errorf("%w: tenant=%q user=%q tool=%q", ErrInvalidCall, c.TenantID, c.UserID, c.Tool)
	}
	return nil
}

// CheckFunc is the signature of a check. Middleware wraps it.
type CheckFunc func(ctx context.Context, call Call) (Decision, error)

// Middleware decorates a CheckFunc.
type Middleware func(next CheckFunc) CheckFunc

// Coordinator runs the permission check then the quota check.
//
// Contract:
// - Concurrency: safe for concurrent use; it keeps no per-call state.
// - Errors: faults are returned with an Errored decision and are not
// retried. Denials are decisions, not errors.
type Coordinator struct {
	permissions Permissions
	quota       Quota
	check       CheckFunc
}

// NewCoordinator builds a Coordinator. Middleware is applied in order, so
// the first one is outermost.
func NewCoordinator(permissions Permissions, q Quota, mws ...Middleware) *Coordinator {
	c := &Coordinator{permissions: permissions, quota: q}
	check := c.evaluate
	for i := len(mws) - 1; i >= 0; i-- {
		check = mws[i](check)
	}
	c.check = check
	return c
}

// Check decides whether call may proceed. A call that is admitted has
// consumed one unit of quota.
func (c *Coordinator) Check(ctx context.Context, call Call) (Decision, error) {
	return c.check(ctx, call)
}

func (c *Coordinator) evaluate(ctx context.Context, call Call) (Decision, error) {
	if err := call.Validate(); err != nil {
		return errored(), err
	}

	ok, err := c.permissions.IsAllowed(ctx, call.UserID, call.TenantID, call.Tool)
	if err != nil {
		return errored(), fmt.Errorf("gate: permission check: %w", err)
	}
	if !ok {
		return denied(ReasonPermissionDenied, nil), nil
	}

	res, err := c.quota.CheckAndConsume(ctx, quota.Subject{TenantID: call.TenantID, UserID: call.UserID}, call.Tool)
	if errors.Is(err, quota.ErrNoDefaultLimit) {
		d := denied(ReasonRateLimited, new(int))
		d.Cause = err
		return d, nil
	}
	if err != nil {
		return errored(), fmt.Errorf("gate: quota check: %w", err)
	}
	if !res.Allowed {
		return denied(ReasonRateLimited, new(int)), nil
	}
	return admitted(res.Remaining), nil
}
