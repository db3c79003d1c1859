package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Not-found errors (*_NOT_FOUND)
	ErrorCodeTicketTypeNotFound  ErrorCode = "TICKET_TYPE_NOT_FOUND"
	ErrorCodePriceRuleNotFound   ErrorCode = "PRICE_RULE_NOT_FOUND"
	ErrorCodePromotionNotFound   ErrorCode = "PROMOTION_NOT_FOUND"
	ErrorCodeReservationNotFound ErrorCode = "RESERVATION_NOT_FOUND"
	ErrorCodeTicketNotFound      ErrorCode = "TICKET_NOT_FOUND"
	ErrorCodeRefundNotFound      ErrorCode = "REFUND_NOT_FOUND"

	// Validation errors (VALIDATION_*)
	ErrorCodeValidationFailed          ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationQuantityInvalid ErrorCode = "VALIDATION_QUANTITY_INVALID"
	ErrorCodeValidationAmountInvalid   ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationDateRange       ErrorCode = "VALIDATION_DATE_RANGE_INVALID"
	ErrorCodeValidationAction          ErrorCode = "VALIDATION_ACTION_INVALID"

	// Authorization errors (AUTH_*)
	ErrorCodeAuthForbidden ErrorCode = "AUTH_FORBIDDEN"

	// Business-state conflicts
	ErrorCodeReservationStateConflict ErrorCode = "RESERVATION_STATE_CONFLICT"
	ErrorCodeTicketTypeSoldOut        ErrorCode = "TICKET_TYPE_SOLD_OUT"
	ErrorCodeTicketNotRefundable      ErrorCode = "TICKET_NOT_REFUNDABLE"
	ErrorCodeRefundAlreadyExists      ErrorCode = "REFUND_ALREADY_EXISTS"
	ErrorCodeRefundAlreadyProcessed   ErrorCode = "REFUND_ALREADY_PROCESSED"
	ErrorCodePromotionExhausted       ErrorCode = "PROMOTION_EXHAUSTED"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches two DomainErrors by code, so errors.Is works against the
// package-level error values regardless of attached details
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail field.
// Copying keeps the package-level error values immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Err:     e.Err,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeTicketTypeNotFound ||
		code == ErrorCodePriceRuleNotFound ||
		code == ErrorCodePromotionNotFound ||
		code == ErrorCodeReservationNotFound ||
		code == ErrorCodeTicketNotFound ||
		code == ErrorCodeRefundNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationQuantityInvalid ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationDateRange ||
		code == ErrorCodeValidationAction
}

// IsForbiddenError checks if an error is an authorization error
func IsForbiddenError(err error) bool {
	return GetErrorCode(err) == ErrorCodeAuthForbidden
}

// IsConflictError checks if an error represents a business-state conflict
func IsConflictError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeReservationStateConflict ||
		code == ErrorCodeTicketTypeSoldOut ||
		code == ErrorCodeTicketNotRefundable ||
		code == ErrorCodeRefundAlreadyExists ||
		code == ErrorCodeRefundAlreadyProcessed ||
		code == ErrorCodePromotionExhausted
}

// Structured error instances
var (
	ErrTicketTypeNotFound  = NewDomainError(ErrorCodeTicketTypeNotFound, "ticket type not found")
	ErrPromotionNotFound   = NewDomainError(ErrorCodePromotionNotFound, "promotion not found")
	ErrReservationNotFound = NewDomainError(ErrorCodeReservationNotFound, "reservation not found")
	ErrTicketNotFound      = NewDomainError(ErrorCodeTicketNotFound, "ticket not found")
	ErrRefundNotFound      = NewDomainError(ErrorCodeRefundNotFound, "refund record not found")

	ErrQuantityInvalid = NewDomainError(ErrorCodeValidationQuantityInvalid, "quantity must be positive")
	ErrAmountInvalid   = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")

	ErrForbidden = NewDomainError(ErrorCodeAuthForbidden, "requester is not the ticket owner and not an admin")

	ErrTicketNotRefundable    = NewDomainError(ErrorCodeTicketNotRefundable, "ticket is not eligible for refund")
	ErrRefundAlreadyExists    = NewDomainError(ErrorCodeRefundAlreadyExists, "a refund record already exists for this ticket")
	ErrRefundAlreadyProcessed = NewDomainError(ErrorCodeRefundAlreadyProcessed, "refund record has already been processed")
	ErrPromotionExhausted     = NewDomainError(ErrorCodePromotionExhausted, "promotion usage limit reached")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
