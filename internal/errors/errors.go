// Package errors provides centralized error definitions and error handling utilities
// for playbill actors. It defines the sentinel errors a performance can fail with,
// typed errors that carry enough context to reproduce a failure, and classification
// helpers used to decide between retrying, skipping, and aborting.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - ActorError: errors raised while an actor performs a cue
//   - ScriptError: structural problems in a parsed script
//   - TransportError: connect, accept, send, and framing failures
//
// Semantic errors represent common error conditions:
//   - TimeoutError: a bounded wait exhausted its budget
//
// # Usage
//
//	err := errors.NewActorError("peer wait failed", errors.ErrPeerWaitTimeout).
//	    WithActor("Lexa").WithCue("intro", "1")
//
//	if errors.Is(err, errors.ErrPeerWaitTimeout) { ... }
//	if errors.IsFatal(err) { ... }
//
// # Error Classification
//
//   - Retryable: transport failures that the peer wait will retry
//   - Fatal: identity collisions and malformed scripts, which stop the actor
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Ensemble-related sentinel errors
var (
	// ErrIdentityCollision indicates that this actor's own name or port is
	// already held by another registered actor.
	ErrIdentityCollision = New("identity collision")
	// ErrUnknownContact indicates that a message targets a name that is not
	// in the contact directory.
	ErrUnknownContact = New("unknown contact")
	// ErrPeerWaitTimeout indicates that required peers did not register in time.
	ErrPeerWaitTimeout = New("peer wait timed out")
)

// Script-related sentinel errors
var (
	// ErrMalformedScript indicates a missing scene, cue, line, or required field.
	ErrMalformedScript = New("malformed script")
	// ErrScriptMismatch indicates a script whose header does not match the
	// requested episode and act.
	ErrScriptMismatch = New("script does not match requested episode and act")
	// ErrUnimplementedDirective indicates a directive kind with no behavior yet.
	ErrUnimplementedDirective = New("unimplemented directive")
)

// Transport-related sentinel errors
var (
	// ErrTransport indicates a connect, accept, or send failure.
	ErrTransport = New("transport failure")
	// ErrProtocol indicates a message that violates the roll-call ordering or
	// cannot be decoded.
	ErrProtocol = New("protocol violation")
	// ErrTransportClosed indicates use of a transport after shutdown.
	ErrTransportClosed = New("transport closed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PlaybillError is the base interface for all playbill errors.
type PlaybillError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatPrefix renders "kind [k=v, ...]" for the non-empty parts.
func formatPrefix(kind string, parts []string) string {
	if len(parts) == 0 {
		return kind
	}
	return fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ActorError represents errors raised while an actor performs.
//
// Example:
//
//	err := errors.NewActorError("cannot deliver line", errors.ErrUnknownContact).
//	    WithActor("Lexa").WithCue("intro", "2")
//	fmt.Println(err) // "actor error [actor=Lexa, cue=intro/2]: cannot deliver line: unknown contact"
type ActorError struct {
	baseError
	Actor string
	Scene string
	Cue   string
}

// NewActorError creates a new ActorError.
func NewActorError(message string, cause error) *ActorError {
	return &ActorError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithActor adds the performing actor's name to the error context.
func (e *ActorError) WithActor(name string) *ActorError {
	e.Actor = name
	return e
}

// WithCue adds the narrative position to the error context.
func (e *ActorError) WithCue(scene, cue string) *ActorError {
	e.Scene = scene
	e.Cue = cue
	return e
}

// WithSeverity sets the error severity.
func (e *ActorError) WithSeverity(s Severity) *ActorError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ActorError) Error() string {
	var parts []string
	if e.Actor != "" {
		parts = append(parts, fmt.Sprintf("actor=%s", e.Actor))
	}
	if e.Scene != "" || e.Cue != "" {
		parts = append(parts, fmt.Sprintf("cue=%s/%s", e.Scene, e.Cue))
	}

	prefix := formatPrefix("actor error", parts)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ActorError) Is(target error) bool {
	if _, ok := target.(*ActorError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ScriptError represents a structural problem in a script document.
// It always matches ErrMalformedScript unless another cause is given.
//
// Example:
//
//	err := errors.NewScriptError("transition target does not exist").
//	    WithCue("intro", "3").WithField("cuesTo")
type ScriptError struct {
	baseError
	Scene string
	Cue   string
	Field string
}

// NewScriptError creates a ScriptError caused by ErrMalformedScript.
func NewScriptError(message string) *ScriptError {
	return &ScriptError{
		baseError: baseError{
			message:    message,
			cause:      ErrMalformedScript,
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithCue adds the offending scene and cue to the error context.
func (e *ScriptError) WithCue(scene, cue string) *ScriptError {
	e.Scene = scene
	e.Cue = cue
	return e
}

// WithField adds the offending field name to the error context.
func (e *ScriptError) WithField(field string) *ScriptError {
	e.Field = field
	return e
}

// WithCause replaces the underlying cause.
func (e *ScriptError) WithCause(cause error) *ScriptError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ScriptError) Error() string {
	var parts []string
	if e.Scene != "" {
		parts = append(parts, fmt.Sprintf("scene=%s", e.Scene))
	}
	if e.Cue != "" {
		parts = append(parts, fmt.Sprintf("cue=%s", e.Cue))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}

	prefix := formatPrefix("script error", parts)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ScriptError) Is(target error) bool {
	if _, ok := target.(*ScriptError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TransportError represents connect, accept, send, and framing failures.
// Transport errors are retryable by default.
//
// Example:
//
//	err := errors.NewTransportError("roll-call failed", dialErr).WithPort(4001)
type TransportError struct {
	baseError
	Peer string
	Port int
}

// NewTransportError creates a new TransportError.
func NewTransportError(message string, cause error) *TransportError {
	if cause == nil {
		cause = ErrTransport
	}
	return &TransportError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: false,
		},
	}
}

// WithPeer adds the remote actor's name to the error context.
func (e *TransportError) WithPeer(name string) *TransportError {
	e.Peer = name
	return e
}

// WithPort adds the remote port to the error context.
func (e *TransportError) WithPort(port int) *TransportError {
	e.Port = port
	return e
}

// Error returns the formatted error message.
func (e *TransportError) Error() string {
	var parts []string
	if e.Peer != "" {
		parts = append(parts, fmt.Sprintf("peer=%s", e.Peer))
	}
	if e.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", e.Port))
	}

	prefix := formatPrefix("transport error", parts)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *TransportError) Is(target error) bool {
	if _, ok := target.(*TransportError); ok {
		return true
	}
	if target == ErrTransport {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for peers", time.Minute).WithMissing([]string{"Fate"})
//	fmt.Println(err) // "timeout error: waiting for peers (timeout: 1m0s, missing: Fate)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
	Missing   []string
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithMissing records which peers were still absent when the wait gave up.
func (e *TimeoutError) WithMissing(names []string) *TimeoutError {
	e.Missing = append([]string(nil), names...)
	return e
}

// WithRetryable sets whether the error is retryable (default true for timeouts).
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s", e.Operation, e.Duration)
	if len(e.Missing) > 0 {
		base += ", missing: " + strings.Join(e.Missing, ", ")
	}
	base += ")"
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pbErr PlaybillError
	if As(err, &pbErr) {
		return pbErr.IsRetryable()
	}

	return Is(err, ErrTimeout) || Is(err, ErrTransport)
}

// IsFatal returns true for errors that must stop the actor: identity
// collisions, malformed or mismatched scripts, and exhausted peer waits.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrIdentityCollision) ||
		Is(err, ErrMalformedScript) ||
		Is(err, ErrScriptMismatch) ||
		Is(err, ErrPeerWaitTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var pbErr PlaybillError
	if As(err, &pbErr) {
		return pbErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PlaybillError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var pbErr PlaybillError
	if As(err, &pbErr) {
		return pbErr.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
