// Package auth decides whether a caller may invoke a tool.
//
// Identities are trusted input: an upstream authenticator has already
// established who the caller is, and this package only carries that identity
// through a context and answers permission questions against stored
// policies. The PermissionResolver looks up a user's policy and falls back to
// the tenant's default policy; when neither exists the answer is a deny.
// Store faults are returned to the caller unchanged so that a broken backend
// is never mistaken for a verdict.
package auth
