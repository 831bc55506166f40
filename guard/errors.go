package guard

import (
	"context"
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// CircuitOpenError is returned without calling the dependency while its
// breaker is open.
type CircuitOpenError struct {
	Dependency string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s", e.Dependency)
}

// DependencyExhaustedError is returned once the retry policy has been
// exhausted without a successful call.
type DependencyExhaustedError struct {
	Dependency string
	Attempts   int
	Err        error
}

func (e *DependencyExhaustedError) Error() string {
	return fmt.Sprintf("%s exhausted after %d attempts: %v", e.Dependency, e.Attempts, e.Err)
}

func (e *DependencyExhaustedError) Unwrap() error {
	return e.Err
}

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// Transient marks an error as a transient dependency fault, making it
// eligible for the retry policy and counted against the circuit breaker.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether an error should be treated as a transient
// dependency fault: an explicit Transient mark, a call deadline expiry, or a
// network-level failure. Domain rejections and concurrency conflicts are
// never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var marked *transientError
	if errors.As(err, &marked) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
