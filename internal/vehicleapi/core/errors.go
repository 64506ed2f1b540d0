package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced vehicle does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a unique field, the plate, is already taken.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput means a request payload could not be accepted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable is returned by a mutating operation once retries are exhausted or the circuit is open.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTransientFault is the class of failures injected on purpose.
	ErrTransientFault = errors.New("transient fault")
)

// IsBusinessError reports whether err is an expected outcome of the request itself.
// Such errors are neither retried nor counted against the circuit breaker.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidInput)
}

// FaultError is an injected failure. It matches ErrTransientFault.
type FaultError struct {
	// Kind is the configured exception type, e.g. "TransientFault".
	Kind    string
	Message string
	// Layer is the watched layer the fault was injected into.
	Layer string
}

func (e *FaultError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s: %s", ErrTransientFault, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", ErrTransientFault, e.Kind, e.Message)
}

func (e *FaultError) Is(target error) bool {
	return target == ErrTransientFault
}
