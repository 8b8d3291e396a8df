package auth

import (
	"context"

	"github.com/jonwraymond/toolgate/policy"
)

// PermissionResolver answers whether a user may invoke a tool.
//
// Contract:
// - Concurrency: safe for concurrent use; it holds no mutable state.
// - Errors: store faults are returned as-is, never as a verdict.
type PermissionResolver struct {
	store policy.Store
}

// NewPermissionResolver reads policies from store.
func NewPermissionResolver(store policy.Store) *PermissionResolver {
	return &PermissionResolver{store: store}
}

// IsAllowed reports whether userID in tenantID may invoke toolName.
//
// A user's own policy is final when present, even if it grants nothing.
// Without one the tenant's default policy decides. Without either the
// answer is false.
func (r *PermissionResolver) IsAllowed(ctx context.Context, userID, tenantID, toolName string) (bool, error) {
	p, err := r.store.Get(ctx, policy.UserKey(tenantID, userID))
	if err != nil {
		return false, err
	}
	if p != nil {
		return p.Allows(toolName), nil
	}

	p, err = r.store.Get(ctx, policy.TenantDefaultKey(tenantID))
	if err != nil {
		return false, err
	}
	return p.Allows(toolName), nil
}
