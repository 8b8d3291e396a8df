package policy

// Key prefixes. These must stay byte-for-byte compatible with deployments
// that already hold data under them.
const (
	permissionsPrefix = "permissions:"
	counterPrefix     = "ratelimit:"

	// DefaultSubject is the user id slot that holds a tenant's default policy.
	DefaultSubject = "default"
)

// UserKey returns the key of a user's permission policy:
// permissions:{tenantID}:{userID}.
func UserKey(tenantID, userID string) string {
	return permissionsPrefix + tenantID + ":" + userID
}

// TenantDefaultKey returns the key of a tenant's default policy:
// permissions:{tenantID}:default.
func TenantDefaultKey(tenantID string) string {
	return permissionsPrefix + tenantID + ":" + DefaultSubject
}

// RateLimitKey returns the legacy, tenant-less key of a user's rate-limit
// policy: permissions:{userID}.
func RateLimitKey(userID string) string {
	return permissionsPrefix + userID
}

// CounterKey returns the key of the quota counter for a user and tool:
// ratelimit:{userID}:{toolName}.
func CounterKey(userID, toolName string) string {
	return counterPrefix + userID + ":" + toolName
}

// TenantCounterKey returns the tenant-scoped key of a quota counter:
// ratelimit:{tenantID}:{userID}:{toolName}.
func TenantCounterKey(tenantID, userID, toolName string) string {
	return counterPrefix + tenantID + ":" + userID + ":" + toolName
}
