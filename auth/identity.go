package auth

// AuthMethod indicates how the identity reached the gate.
type AuthMethod string

// AuthMethodTrustedHeader marks identities read from proxy headers.
const AuthMethodTrustedHeader AuthMethod = "trusted_header"

// Identity is the principal a tool call is made on behalf of.
type Identity struct {
	// Principal is the user id. It selects the user's policy and counters.
	Principal string

	// TenantID scopes the principal.
	TenantID string

	// Method indicates how the identity was established.
	Method AuthMethod
}

// Valid reports whether both the tenant and the principal are set.
func (id *Identity) Valid() bool {
	return id != nil && id.TenantID != "" && id.Principal != ""
}
