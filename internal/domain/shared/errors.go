package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound         = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput     = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState     = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrValidationFailed = NewDomainError("VALIDATION_FAILED", "Validation failed")
	ErrUnknownTag       = NewDomainError("UNKNOWN_TAG", "No handler registered for sync tag")
	ErrOffline          = NewDomainError("OFFLINE", "Network is not reachable")
)

// IsNotFound reports whether the error chain contains ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
