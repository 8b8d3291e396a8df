package auth

import (
	"net/http"
	"strings"
)

// Default header names for identities asserted by a fronting proxy.
const (
	DefaultTenantHeader = "X-Tenant-ID"
	DefaultUserHeader   = "X-User-ID"
)

// TrustedHeaders builds identities from headers set by an authenticating
// proxy. It performs no verification; deploy it only behind a proxy that
// strips client-supplied copies of these headers.
type TrustedHeaders struct {
	TenantHeader string
	UserHeader   string
}

// Identity extracts the identity from r. It returns ErrMissingIdentity when
// either header is absent or blank.
func (t TrustedHeaders) Identity(r *http.Request) (*Identity, error) {
	tenantHeader := t.TenantHeader
	if tenantHeader == "" {
		tenantHeader = DefaultTenantHeader
	}
	userHeader := t.UserHeader
	if userHeader == "" {
		userHeader = DefaultUserHeader
	}

	id := &Identity{
		TenantID:  strings.TrimSpace(r.Header.Get(tenantHeader)),
		Principal: strings.TrimSpace(r.Header.Get(userHeader)),
		Method:    AuthMethodTrustedHeader,
	}
	if !id.Valid() {
		return nil, ErrMissingIdentity
	}
	return id, nil
}

// Middleware attaches the header identity to the request context. Requests
// without one pass through with no identity attached.
func (t TrustedHeaders) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := t.Identity(r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
