package dto

import "net/http"

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeValidation   = "ERR_VALIDATION"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"
)

// Storefront business error codes
const (
	ErrCodeEmptyCart             = "ERR_EMPTY_CART"
	ErrCodeInsufficientInventory = "ERR_INSUFFICIENT_INVENTORY"
	ErrCodeCheckoutInProgress    = "ERR_CHECKOUT_IN_PROGRESS"
	ErrCodeStateConflict         = "ERR_STATE_CONFLICT"
	ErrCodeTooLateToCancel       = "ERR_TOO_LATE_TO_CANCEL"
	ErrCodeInvalidSignature      = "ERR_INVALID_SIGNATURE"
	ErrCodeUpstreamUnavailable   = "ERR_UPSTREAM_UNAVAILABLE"
	ErrCodePaymentRequired       = "ERR_PAYMENT_REQUIRED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	ErrCodeEmptyCart:             http.StatusUnprocessableEntity,
	ErrCodeInsufficientInventory: http.StatusUnprocessableEntity,
	ErrCodeCheckoutInProgress:    http.StatusConflict,
	ErrCodeStateConflict:         http.StatusConflict,
	ErrCodeTooLateToCancel:       http.StatusUnprocessableEntity,
	ErrCodeInvalidSignature:      http.StatusBadRequest,
	ErrCodeUpstreamUnavailable:   http.StatusBadGateway,
	ErrCodePaymentRequired:       http.StatusPaymentRequired,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting to 500
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes onto the wire codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                    ErrCodeNotFound,
	"ALREADY_EXISTS":               ErrCodeAlreadyExists,
	"EMPTY_CART":                   ErrCodeEmptyCart,
	"CHECKOUT_ALREADY_IN_PROGRESS": ErrCodeCheckoutInProgress,
	"STATE_CONFLICT":               ErrCodeStateConflict,
	"TOO_LATE_TO_CANCEL":           ErrCodeTooLateToCancel,
	"INVALID_SIGNATURE":            ErrCodeInvalidSignature,
	"OUT_OF_STOCK":                 ErrCodeInsufficientInventory,
	"INVALID_INPUT":                ErrCodeInvalidInput,
	"INVALID_CART_SESSION":         ErrCodeInvalidInput,
	"INVALID_SKU":                  ErrCodeInvalidInput,
	"INVALID_SPU":                  ErrCodeInvalidInput,
	"INVALID_QUANTITY":             ErrCodeInvalidInput,
	"INVALID_ORDER_NUMBER":         ErrCodeInvalidInput,
	"INVALID_PAYMENT_REF":          ErrCodeInvalidInput,
	"INVALID_FULFILLMENT_REF":      ErrCodeInvalidInput,
	"UNRESOLVED_SESSION":           ErrCodeConflict,
	"NO_SHIPMENT":                  ErrCodeStateConflict,
	"ORDER_NUMBER_EXHAUSTED":       ErrCodeInternal,
	"INTERNAL_ERROR":               ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to its wire format.
// Unknown codes pass through unchanged.
func NormalizeErrorCode(code string) string {
	if wireCode, ok := DomainErrorCodeMapping[code]; ok {
		return wireCode
	}
	return code
}
