package shared

import "fmt"

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

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return &DomainError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrEmptyCart           = NewDomainError("EMPTY_CART", "Cart has no items")
	ErrTooLateToCancel     = NewDomainError("TOO_LATE_TO_CANCEL", "Order has already been fulfilled")
	ErrCheckoutInProgress  = NewDomainError("CHECKOUT_ALREADY_IN_PROGRESS", "An active checkout already exists for this cart session")
	ErrInvalidSignature    = NewDomainError("INVALID_SIGNATURE", "Signature verification failed")
	ErrConfiguration       = NewDomainError("CONFIGURATION_ERROR", "Service is not configured correctly")
)
