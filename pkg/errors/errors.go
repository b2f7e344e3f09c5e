package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeProcess        ErrorType = "process"
	ErrorTypePermission     ErrorType = "permission"
	ErrorTypeIO             ErrorType = "io"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeCancelled      ErrorType = "cancelled"
	ErrorTypeUnknownService ErrorType = "unknown_service"
	ErrorTypeVerification   ErrorType = "verification"
	ErrorTypeBuild          ErrorType = "build"
	ErrorTypeControlPlane   ErrorType = "control_plane"
)

// Context keys shared by the deploy error constructors
const (
	ContextInvalidTokens = "invalid_tokens"
	ContextExitCode      = "exit_code"
	ContextProject       = "project"
	ContextService       = "service"
	ContextCommand       = "command"
)

// DomainError represents a structured error with type and context
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNotFound, message, cause)
}

func NewProcessError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeProcess, message, cause)
}

func NewPermissionError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypePermission, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInternal, message, cause)
}

func NewCancelledError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCancelled, message, cause)
}

// NewUnknownServiceError reports every token that matched no group or service.
func NewUnknownServiceError(invalidTokens []string) *DomainError {
	tokens := append([]string(nil), invalidTokens...)
	return NewDomainError(
		ErrorTypeUnknownService,
		fmt.Sprintf("invalid services specified: %s", strings.Join(tokens, " ")),
		nil,
	).WithContext(ContextInvalidTokens, tokens)
}

// NewVerificationError reports a test project whose test run exited non-zero.
func NewVerificationError(project string, exitCode int) *DomainError {
	return NewDomainError(
		ErrorTypeVerification,
		fmt.Sprintf("tests for %s returned a non-zero exit code: %d", project, exitCode),
		nil,
	).WithContext(ContextProject, project).WithContext(ContextExitCode, exitCode)
}

// NewBuildError reports a build command that exited non-zero.
func NewBuildError(service string, exitCode int) *DomainError {
	return NewDomainError(
		ErrorTypeBuild,
		fmt.Sprintf("build of %s returned a non-zero exit code: %d", service, exitCode),
		nil,
	).WithContext(ContextService, service).WithContext(ContextExitCode, exitCode)
}

// NewControlPlaneError reports a service manager command that exited non-zero.
func NewControlPlaneError(command string, exitCode int) *DomainError {
	return NewDomainError(
		ErrorTypeControlPlane,
		fmt.Sprintf("%q returned a non-zero exit code: %d, elevated permissions may be required", command, exitCode),
		nil,
	).WithContext(ContextCommand, command).WithContext(ContextExitCode, exitCode)
}

// Error checking helpers
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

func IsProcessError(err error) bool {
	return hasType(err, ErrorTypeProcess)
}

func IsPermissionError(err error) bool {
	return hasType(err, ErrorTypePermission)
}

func IsIOError(err error) bool {
	return hasType(err, ErrorTypeIO)
}

func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

func IsCancelledError(err error) bool {
	return hasType(err, ErrorTypeCancelled)
}

func IsUnknownServiceError(err error) bool {
	return hasType(err, ErrorTypeUnknownService)
}

func IsVerificationError(err error) bool {
	return hasType(err, ErrorTypeVerification)
}

func IsBuildError(err error) bool {
	return hasType(err, ErrorTypeBuild)
}

func IsControlPlaneError(err error) bool {
	return hasType(err, ErrorTypeControlPlane)
}

// IsFatal reports whether err must end the whole run instead of only the current service.
func IsFatal(err error) bool {
	return IsUnknownServiceError(err) ||
		IsVerificationError(err) ||
		IsBuildError(err) ||
		IsControlPlaneError(err) ||
		IsCancelledError(err)
}

// InvalidTokens returns the tokens carried by an unknown service error, or nil.
func InvalidTokens(err error) []string {
	var tokens []string
	walk(err, func(domainErr *DomainError) bool {
		if domainErr.Type != ErrorTypeUnknownService {
			return false
		}
		tokens, _ = domainErr.Context[ContextInvalidTokens].([]string)
		return true
	})
	return tokens
}

// ExitCode returns the child exit code carried by err and whether one was found.
func ExitCode(err error) (int, bool) {
	code, found := 0, false
	walk(err, func(domainErr *DomainError) bool {
		code, found = domainErr.Context[ContextExitCode].(int)
		return found
	})
	return code, found
}

func hasType(err error, errorType ErrorType) bool {
	return errors.Is(err, &DomainError{Type: errorType})
}

// walk visits every DomainError in the error tree depth first, through
// Cause chains, wrapped errors and collections, until visit returns true.
func walk(err error, visit func(*DomainError) bool) bool {
	if err == nil {
		return false
	}
	if domainErr, ok := err.(*DomainError); ok && visit(domainErr) {
		return true
	}
	switch wrapped := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range wrapped.Unwrap() {
			if walk(e, visit) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return walk(wrapped.Unwrap(), visit)
	}
	return false
}

// Error aggregation for bulk operations
type ErrorCollection struct {
	Errors []error
}

func (e *ErrorCollection) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *ErrorCollection) Unwrap() []error {
	return e.Errors
}

func (e *ErrorCollection) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ErrorCollection) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrorCollection) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors: make([]error, 0),
	}
}

// As, Is and New mirror the standard library so callers need a single errors import
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func New(text string) error {
	return errors.New(text)
}
