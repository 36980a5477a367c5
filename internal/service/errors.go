package service

import (
	"errors"
	"fmt"
)

// ErrorType categorizes failures so handlers can map them to responses
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeUnavailable  ErrorType = "unavailable"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError carries a user-facing message plus the underlying cause
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details []FieldError
}

// FieldError describes one invalid request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{Type: errType, Message: message, Err: err}
}

var (
	ErrInvalidInput          = NewDomainError(ErrorTypeValidation, "Invalid request data", nil)
	ErrPolicyNotFound        = NewDomainError(ErrorTypeNotFound, "Policy not found", nil)
	ErrUserNotFound          = NewDomainError(ErrorTypeNotFound, "User not found", nil)
	ErrUserExists            = NewDomainError(ErrorTypeConflict, "User already exists", nil)
	ErrAdminExists           = NewDomainError(ErrorTypeConflict, "Admin already exists", nil)
	ErrInvalidCredentials    = NewDomainError(ErrorTypeUnauthorized, "Invalid credentials", nil)
	ErrEvaluationUnavailable = NewDomainError(ErrorTypeUnavailable, "Evaluation unavailable", nil)
	ErrStorage               = NewDomainError(ErrorTypeInternal, "Internal server error", nil)
)

// Validation builds a validation error with field details
func Validation(message string, details ...FieldError) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Details: details}
}

// Storage wraps a persistence failure; the cause is logged, never shown to clients
func Storage(op string, err error) *DomainError {
	return NewDomainError(ErrorTypeInternal, "Internal server error", fmt.Errorf("%s: %w", op, err))
}

// Unavailable wraps a failure that prevented an eligibility decision
func Unavailable(op string, err error) *DomainError {
	return NewDomainError(ErrorTypeUnavailable, "Evaluation unavailable", fmt.Errorf("%s: %w", op, err))
}

func typeOf(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

func IsValidationError(err error) bool {
	return typeOf(err) == ErrorTypeValidation
}

func IsNotFoundError(err error) bool {
	return typeOf(err) == ErrorTypeNotFound
}

func IsConflictError(err error) bool {
	return typeOf(err) == ErrorTypeConflict
}

func IsUnauthorizedError(err error) bool {
	return typeOf(err) == ErrorTypeUnauthorized
}

func IsUnavailableError(err error) bool {
	return typeOf(err) == ErrorTypeUnavailable
}

// GetErrorDetails returns field details attached to a validation error
func GetErrorDetails(err error) []FieldError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetErrorMessage returns the user-facing message of a domain error
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "Internal server error"
}
