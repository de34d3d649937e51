// Package errors provides centralized error definitions and error handling utilities
// for screenreel. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - CaptureError: errors related to live capture sessions
//   - RecordingError: errors related to the recording state machine
//   - EncoderError: errors reported by the encoder subprocess
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
//	err := errors.NewRecordingError("pause rejected", errors.ErrNotRecording).WithState("idle")
//
//	if errors.Is(err, errors.ErrNotRecording) { ... }
//
//	var encErr *errors.EncoderError
//	if errors.As(err, &encErr) {
//	    fmt.Println(encErr.StderrTail)
//	}
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

// Recording lifecycle sentinel errors
var (
	// ErrAlreadyRecording is returned when a recording is started while one is active.
	ErrAlreadyRecording = New("already recording")
	// ErrNotRecording is returned when an operation needs an active recording.
	ErrNotRecording = New("not recording")
	// ErrNotPaused is returned when resume is requested for a recording that is not paused.
	ErrNotPaused = New("not paused")
)

// Capture sentinel errors
var (
	// ErrInvalidSourceType indicates a source type string other than window or screen.
	ErrInvalidSourceType = New("invalid source type")
	// ErrSourceNotFound indicates that no capture source matches the requested id.
	ErrSourceNotFound = New("source not found")
)

// Encoder sentinel errors
var (
	// ErrEncoderSpawn indicates the encoder process could not be launched.
	ErrEncoderSpawn = New("encoder failed to start")
	// ErrEncoderExit indicates the encoder process exited unsuccessfully.
	ErrEncoderExit = New("encoder exited with error")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ReelError is implemented by every error type in this package.
type ReelError interface {
	error

	Unwrap() error
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

type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }
func (e *baseError) IsUserFacing() bool { return e.userFacing }

// formatWithContext renders "<kind> [k=v, ...]: message: cause".
func formatWithContext(kind string, parts []string, message string, cause error) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// CaptureError represents errors related to a live capture session.
//
// Example:
//
//	err := errors.NewCaptureError("cannot start capture", errors.ErrInvalidSourceType).WithSourceID("cam-1")
//	fmt.Println(err) // "capture error [source=cam-1]: cannot start capture: invalid source type"
type CaptureError struct {
	baseError
	SourceID string
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(message string, cause error) *CaptureError {
	return &CaptureError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithSourceID adds the capture source id to the error context.
func (e *CaptureError) WithSourceID(id string) *CaptureError {
	e.SourceID = id
	return e
}

// WithSeverity sets the error severity.
func (e *CaptureError) WithSeverity(s Severity) *CaptureError {
	e.severity = s
	return e
}

func (e *CaptureError) Error() string {
	var parts []string
	if e.SourceID != "" {
		parts = append(parts, fmt.Sprintf("source=%s", e.SourceID))
	}
	return formatWithContext("capture error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *CaptureError) Is(target error) bool {
	if _, ok := target.(*CaptureError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RecordingError represents a rejected or failed recording lifecycle operation.
// State holds the recorder state at the time of the failure.
type RecordingError struct {
	baseError
	State      string
	OutputPath string
}

// NewRecordingError creates a new RecordingError.
func NewRecordingError(message string, cause error) *RecordingError {
	return &RecordingError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithState records the recorder state in the error context.
func (e *RecordingError) WithState(state string) *RecordingError {
	e.State = state
	return e
}

// WithOutputPath records the recording output path in the error context.
func (e *RecordingError) WithOutputPath(path string) *RecordingError {
	e.OutputPath = path
	return e
}

func (e *RecordingError) Error() string {
	var parts []string
	if e.State != "" {
		parts = append(parts, fmt.Sprintf("state=%s", e.State))
	}
	if e.OutputPath != "" {
		parts = append(parts, fmt.Sprintf("output=%s", e.OutputPath))
	}
	return formatWithContext("recording error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *RecordingError) Is(target error) bool {
	if _, ok := target.(*RecordingError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// EncoderError represents a failure of the encoder subprocess. StderrTail holds
// the trailing diagnostic output of the process when it is available.
//
// Example:
//
//	err := errors.NewEncoderError("ffmpeg exited", errors.ErrEncoderExit).
//	    WithExitCode(1).
//	    WithStderrTail("Invalid argument")
type EncoderError struct {
	baseError
	ExitCode   int
	StderrTail string
}

// NewEncoderError creates a new EncoderError. ExitCode defaults to -1 (unknown).
func NewEncoderError(message string, cause error) *EncoderError {
	return &EncoderError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		ExitCode: -1,
	}
}

// WithExitCode sets the process exit code.
func (e *EncoderError) WithExitCode(code int) *EncoderError {
	e.ExitCode = code
	return e
}

// WithStderrTail attaches trailing encoder output.
func (e *EncoderError) WithStderrTail(tail string) *EncoderError {
	e.StderrTail = tail
	return e
}

func (e *EncoderError) Error() string {
	var parts []string
	if e.ExitCode >= 0 {
		parts = append(parts, fmt.Sprintf("exit=%d", e.ExitCode))
	}
	msg := formatWithContext("encoder error", parts, e.message, e.cause)
	if e.StderrTail != "" {
		msg += "\nencoder output: " + e.StderrTail
	}
	return msg
}

// Is checks if this error matches the target.
func (e *EncoderError) Is(target error) bool {
	if _, ok := target.(*EncoderError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("capture", "main").WithCause(errors.ErrSourceNotFound)
//	fmt.Println(err) // "capture 'main' not found: source not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("use 'window' or 'screen'").
//	    WithField("source_type").
//	    WithValue("tab").
//	    WithCause(errors.ErrInvalidSourceType)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return formatWithContext("validation error", parts, e.message, e.cause)
}

// Is checks if this error matches the target. Every ValidationError matches
// ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for encoder exit", 5*time.Second)
//	fmt.Println(err) // "timeout error: waiting for encoder exit (timeout: 5s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
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

func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
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

	var reelErr ReelError
	if As(err, &reelErr) {
		return reelErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var reelErr ReelError
	if As(err, &reelErr) {
		return reelErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ReelError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var reelErr ReelError
	if As(err, &reelErr) {
		return reelErr.Severity()
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
