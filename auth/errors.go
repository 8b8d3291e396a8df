package auth

import "errors"

// Sentinel errors for identity and authorization.
var (
	// ErrMissingIdentity indicates the request carried no usable identity.
	ErrMissingIdentity = errors.New("auth: missing identity")

	// ErrForbidden indicates the identity may not perform the action.
	ErrForbidden = errors.New("auth: access denied")
)
