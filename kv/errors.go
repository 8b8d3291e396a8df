package kv

import (
	"errors"
	"fmt"
)

// Sentinel errors for store operations.
var (
	// ErrStoreFault is wrapped by every I/O, timeout or decode failure.
	ErrStoreFault = errors.New("kv: store fault")

	// ErrTimeout indicates a store operation exceeded its deadline.
	ErrTimeout = errors.New("kv: operation timed out")

	// ErrCircuitOpen indicates the guard is rejecting calls after repeated faults.
	ErrCircuitOpen = errors.New("kv: circuit breaker is open")

	// ErrInvalidKey indicates an empty or malformed key.
	ErrInvalidKey = errors.New("kv: key is invalid")
)

// faultError tags an underlying error as a store fault while keeping it
// reachable through errors.Is/As.
type faultError struct {
	op  string
	key string
	err error
}

func (e *faultError) Error() string {
	if e.key == "" {
		return fmt.Sprintf("kv: %s: %v", e.op, e.err)
	}
	return fmt.Sprintf("kv: %s %q: %v", e.op, e.key, e.err)
}

func (e *faultError) Unwrap() []error {
	return []error{ErrStoreFault, e.err}
}

// Fault wraps err so that errors.Is(err, ErrStoreFault) holds.
// A nil err returns nil; an err that is already a fault is returned unchanged.
func Fault(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreFault) {
		return err
	}
	return &faultError{op: op, key: key, err: err}
}

// IsFault reports whether err is a store fault.
func IsFault(err error) bool {
	return errors.Is(err, ErrStoreFault)
}
