package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Authorizer determines if an identity is allowed to perform an action.
type Authorizer interface {
	// Authorize returns nil if permitted, an *AuthzError if denied, or any
	// other error if the decision could not be made.
	Authorize(ctx context.Context, req *AuthzRequest) error

	// Name returns a unique identifier for this authorizer.
	Name() string
}

// ActionCall is the action of a tool invocation.
const ActionCall = "call"

// AuthzRequest contains the information needed for authorization.
type AuthzRequest struct {
	// Subject is the identity making the request.
	Subject *Identity

	// Resource is the target, e.g. "tool:finance_quote".
	Resource string

	// Action is the requested action, e.g. "call".
	Action string
}

// ToolName extracts the tool name from the resource.
// Removes "tool:" prefix if present.
func (r *AuthzRequest) ToolName() string {
	if name, found := strings.CutPrefix(r.Resource, "tool:"); found {
		return name
	}
	return r.Resource
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	Subject  string
	Tenant   string
	Resource string
	Action   string
	Reason   string
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: tenant=%q subject=%q resource=%q action=%q reason=%q",
		e.Tenant, e.Subject, e.Resource, e.Action, e.Reason)
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// IsDenied reports whether err is an authorization denial rather than a fault.
func IsDenied(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func denial(req *AuthzRequest, reason string) *AuthzError {
	e := &AuthzError{Resource: req.Resource, Action: req.Action, Reason: reason}
	if req.Subject != nil {
		e.Subject = req.Subject.Principal
		e.Tenant = req.Subject.TenantID
	}
	return e
}

// PolicyAuthorizer authorizes tool calls against stored policies.
type PolicyAuthorizer struct {
	resolver *PermissionResolver
}

// NewPolicyAuthorizer wraps a resolver as an Authorizer.
func NewPolicyAuthorizer(resolver *PermissionResolver) *PolicyAuthorizer {
	return &PolicyAuthorizer{resolver: resolver}
}

// Authorize denies requests without a valid subject, then consults the
// resolver. Resolver faults are returned unchanged.
func (a *PolicyAuthorizer) Authorize(ctx context.Context, req *AuthzRequest) error {
	if !req.Subject.Valid() {
		return denial(req, "missing identity")
	}
	ok, err := a.resolver.IsAllowed(ctx, req.Subject.Principal, req.Subject.TenantID, req.ToolName())
	if err != nil {
		return err
	}
	if !ok {
		return denial(req, "permission_denied")
	}
	return nil
}

// Name returns "policy".
func (a *PolicyAuthorizer) Name() string {
	return "policy"
}
