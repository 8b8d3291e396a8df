package gateway

import "errors"

var (
	// ErrBusy is returned when every in-flight slot is taken.
	ErrBusy = errors.New("gateway: server busy")

	// ErrBackendStatus is returned when the backend answers with a non-2xx status.
	ErrBackendStatus = errors.New("gateway: backend status")

	// ErrNoBackend is returned by an HTTPForwarder without a URL.
	ErrNoBackend = errors.New("gateway: backend url not configured")
)
