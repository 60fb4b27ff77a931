// Package errors provides the unified error type used across the graph,
// its adapters and the host binary. Every failure the domain can report is a
// *UnifiedError carrying a type for programmatic handling, a stable code and
// optional operation/resource context.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ============================================================================
// ERROR TYPES AND CLASSIFICATION
// ============================================================================

// ErrorType defines the category of an error.
type ErrorType string

const (
	// Domain errors
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypeInvalidReference ErrorType = "INVALID_REFERENCE"
	ErrorTypeValidation       ErrorType = "VALIDATION"

	// Infrastructure errors
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
)

// ErrorSeverity defines the severity level for logging.
type ErrorSeverity string

const (
	SeverityLow    ErrorSeverity = "LOW"
	SeverityMedium ErrorSeverity = "MEDIUM"
	SeverityHigh   ErrorSeverity = "HIGH"
)

// ============================================================================
// ERROR STRUCTURE
// ============================================================================

// UnifiedError is the single error type returned by this module.
type UnifiedError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`

	Operation string `json:"operation,omitempty"` // e.g. "UpdateNode"
	Resource  string `json:"resource,omitempty"`  // "node", "connection", "config"
	EntityID  string `json:"entityId,omitempty"`

	Severity ErrorSeverity `json:"severity"`
	Cause    error         `json:"-"`

	File string `json:"-"`
	Line int    `json:"-"`
}

// Error implements the error interface.
func (e *UnifiedError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap allows errors.Is and errors.As to see the cause.
func (e *UnifiedError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a UnifiedError with the same type and code.
// Sentinels declared with Build() therefore match errors derived from them
// via From, even though they are distinct values.
func (e *UnifiedError) Is(target error) bool {
	var t *UnifiedError
	if !errors.As(target, &t) {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// String provides a detailed multi-line representation for logging.
func (e *UnifiedError) String() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Error: %s\n", e.Error()))
	if e.Operation != "" {
		b.WriteString(fmt.Sprintf("Operation: %s\n", e.Operation))
	}
	if e.Resource != "" {
		b.WriteString(fmt.Sprintf("Resource: %s\n", e.Resource))
	}
	if e.EntityID != "" {
		b.WriteString(fmt.Sprintf("Entity: %s\n", e.EntityID))
	}
	b.WriteString(fmt.Sprintf("Severity: %s\n", e.Severity))
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("Cause: %v\n", e.Cause))
	}
	if e.File != "" && e.Line > 0 {
		b.WriteString(fmt.Sprintf("Location: %s:%d\n", e.File, e.Line))
	}

	return b.String()
}

// ============================================================================
// ERROR BUILDER
// ============================================================================

// ErrorBuilder provides a fluent interface for constructing UnifiedError values.
type ErrorBuilder struct {
	err *UnifiedError
}

// NewError starts a builder with the given type, code and message.
func NewError(errType ErrorType, code, message string) *ErrorBuilder {
	_, file, line, _ := runtime.Caller(1)

	return &ErrorBuilder{
		err: &UnifiedError{
			Type:     errType,
			Code:     code,
			Message:  message,
			Severity: SeverityMedium,
			File:     file,
			Line:     line,
		},
	}
}

// From starts a builder that copies type, code, message, resource and
// severity from an existing UnifiedError. The source becomes the cause so
// errors.Is matches the original sentinel.
func From(source *UnifiedError) *ErrorBuilder {
	_, file, line, _ := runtime.Caller(1)

	return &ErrorBuilder{
		err: &UnifiedError{
			Type:     source.Type,
			Code:     source.Code,
			Message:  source.Message,
			Resource: source.Resource,
			Severity: source.Severity,
			Cause:    source,
			File:     file,
			Line:     line,
		},
	}
}

// WithDetails adds free-form details.
func (b *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	b.err.Details = details
	return b
}

// WithOperation names the operation that failed.
func (b *ErrorBuilder) WithOperation(operation string) *ErrorBuilder {
	b.err.Operation = operation
	return b
}

// WithResource names the kind of resource involved.
func (b *ErrorBuilder) WithResource(resource string) *ErrorBuilder {
	b.err.Resource = resource
	return b
}

// WithEntity records the identifier the operation targeted.
func (b *ErrorBuilder) WithEntity(id string) *ErrorBuilder {
	b.err.EntityID = id
	return b
}

// WithSeverity sets the severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.err.Severity = severity
	return b
}

// WithCause sets the underlying cause.
func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.err.Cause = cause
	return b
}

// Build returns the constructed error.
func (b *ErrorBuilder) Build() *UnifiedError {
	return b.err
}

// ============================================================================
// CONVENIENCE CONSTRUCTORS
// ============================================================================

// NotFound creates a not found error.
func NotFound(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeNotFound, code, message).WithSeverity(SeverityLow)
}

// InvalidReference creates an error for a relation naming a missing entity.
func InvalidReference(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeInvalidReference, code, message).WithSeverity(SeverityMedium)
}

// Validation creates a validation error.
func Validation(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeValidation, code, message).WithSeverity(SeverityLow)
}

// Internal creates an internal error.
func Internal(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeInternal, code, message).WithSeverity(SeverityHigh)
}

// Unavailable creates an error for a downstream dependency that could not be reached.
func Unavailable(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeUnavailable, code, message).WithSeverity(SeverityMedium)
}

// ============================================================================
// CLASSIFICATION
// ============================================================================

// IsType checks whether err is a UnifiedError of the given type.
func IsType(err error, errType ErrorType) bool {
	var ge *UnifiedError
	if errors.As(err, &ge) {
		return ge.Type == errType
	}
	return false
}

// IsNotFound checks for ErrorTypeNotFound.
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsInvalidReference checks for ErrorTypeInvalidReference.
func IsInvalidReference(err error) bool {
	return IsType(err, ErrorTypeInvalidReference)
}

// IsValidation checks for ErrorTypeValidation.
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// GetSeverity returns the severity of err, or SeverityMedium for foreign errors.
func GetSeverity(err error) ErrorSeverity {
	var ge *UnifiedError
	if errors.As(err, &ge) {
		return ge.Severity
	}
	return SeverityMedium
}

// Wrap adds operation context to err. A UnifiedError keeps its type and code;
// anything else becomes an internal error.
func Wrap(err error, operation, message string) *UnifiedError {
	if err == nil {
		return nil
	}

	var existing *UnifiedError
	if errors.As(err, &existing) {
		return &UnifiedError{
			Type:      existing.Type,
			Code:      existing.Code,
			Message:   message,
			Details:   existing.Message,
			Operation: operation,
			Resource:  existing.Resource,
			EntityID:  existing.EntityID,
			Severity:  existing.Severity,
			Cause:     err,
			File:      existing.File,
			Line:      existing.Line,
		}
	}

	_, file, line, _ := runtime.Caller(1)
	return &UnifiedError{
		Type:      ErrorTypeInternal,
		Code:      string(CodeWrapped),
		Message:   message,
		Details:   err.Error(),
		Operation: operation,
		Severity:  SeverityMedium,
		Cause:     err,
		File:      file,
		Line:      line,
	}
}
