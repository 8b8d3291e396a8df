package policy

import "errors"

// ErrMalformed indicates a stored document could not be decoded.
// Store adapters wrap it as a kv store fault.
var ErrMalformed = errors.New("policy: malformed document")
