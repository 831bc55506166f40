package eg

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/kestrelworks/eventguard-go/guard"
)

// ErrConcurrencyConflict is returned by EventStore.Append when the stream's
// stored head version differs from the caller's expected version.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrAggregateNotFound is returned by Repository.Require when a stream has
// no events.
var ErrAggregateNotFound = errors.New("aggregate not found")

// ErrQueryUnavailable is returned by the query pipeline when the read path
// has failed and no fallback result is cached.
var ErrQueryUnavailable = errors.New("query unavailable")

type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

func Invalid(format string, args ...any) error {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

// DomainError reports a business-rule rejection from a command handler. It
// is terminal: neither the command pipeline nor the resilience layer retries
// it.
type DomainError struct {
	Message string
}

func (e DomainError) Error() string {
	return e.Message
}

func Rejected(format string, args ...any) error {
	return DomainError{Message: fmt.Sprintf(format, args...)}
}

// CommandConflictError is surfaced when the command pipeline's optimistic
// retry loop exhausts its attempts without a conflict-free append.
type CommandConflictError struct {
	Stream   StreamID
	Attempts int
}

func (e CommandConflictError) Error() string {
	return fmt.Sprintf("command conflict on %s after %d attempts", e.Stream.Encode(), e.Attempts)
}

type UnknownCommandError struct {
	Command CommandName
}

func (e UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command: %s", e.Command)
}

type UnknownQueryError struct {
	Query QueryName
}

func (e UnknownQueryError) Error() string {
	return fmt.Sprintf("unknown query: %s", e.Query)
}

// Code is the error taxonomy tag surfaced to callers.
type Code string

const (
	CodeValidation          Code = "validation_error"
	CodeConcurrencyConflict Code = "concurrency_conflict"
	CodeCommandConflict     Code = "command_conflict"
	CodeCircuitOpen         Code = "circuit_open"
	CodeTransientFailure    Code = "transient_failure"
	CodeDependencyExhausted Code = "dependency_exhausted"
	CodeQueryUnavailable    Code = "query_unavailable"
	CodeAggregateNotFound   Code = "aggregate_not_found"
	CodeDomainError         Code = "domain_error"
	CodeUnknown             Code = "internal_error"
)

func CodeOf(err error) Code {
	var validation ValidationError
	var domain DomainError
	var conflict CommandConflictError
	var open *guard.CircuitOpenError
	var exhausted *guard.DependencyExhaustedError
	var unknownCommand UnknownCommandError
	var unknownQuery UnknownQueryError

	switch {
	case errors.As(err, &validation), errors.As(err, &unknownCommand), errors.As(err, &unknownQuery):
		return CodeValidation
	case errors.As(err, &conflict):
		return CodeCommandConflict
	case errors.Is(err, ErrConcurrencyConflict):
		return CodeConcurrencyConflict
	case errors.As(err, &open):
		return CodeCircuitOpen
	case errors.As(err, &exhausted):
		return CodeDependencyExhausted
	case errors.Is(err, ErrQueryUnavailable):
		return CodeQueryUnavailable
	case errors.Is(err, ErrAggregateNotFound):
		return CodeAggregateNotFound
	case errors.As(err, &domain):
		return CodeDomainError
	case guard.IsTransient(err):
		return CodeTransientFailure
	default:
		return CodeUnknown
	}
}
