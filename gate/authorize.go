package gate

import (
	"context"

	"github.com/jonwraymond/toolgate/auth"
)

// Authorized adapts an auth.Authorizer to Permissions. Denials become a
// false verdict; every other error is returned as a fault.
func Authorized(a auth.Authorizer) Permissions {
	return authorizerPermissions{authorizer: a}
}

type authorizerPermissions struct {
	authorizer auth.Authorizer
}

func (p authorizerPermissions) IsAllowed(ctx context.Context, userID, tenantID, toolName string) (bool, error) {
	err := p.authorizer.Authorize(ctx, &auth.AuthzRequest{
		Subject:  &auth.Identity{Principal: userID, TenantID: tenantID},
		Resource: "tool:" + toolName,
		Action:   auth.ActionCall,
	})
	switch {
	case err == nil:
		return true, nil
	case auth.IsDenied(err):
		return false, nil
	default:
		return false, err
	}
}
