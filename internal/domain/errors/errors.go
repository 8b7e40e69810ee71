package errors

import (
	"errors"
	"fmt"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeBusiness   ErrorType = "business"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeForbidden  ErrorType = "forbidden"
	ErrorTypeConflict   ErrorType = "conflict"
)

// Bid-path and lifecycle error codes. API clients switch on these.
const (
	CodeAuctionNotOpen     = "AUCTION_NOT_OPEN"
	CodeInvalidAmount      = "INVALID_AMOUNT"
	CodeBidTooLow          = "BID_TOO_LOW"
	CodeSelfBidding        = "SELF_BIDDING"
	CodeContention         = "CONTENTION"
	CodeAlreadyFinalized   = "ALREADY_FINALIZED"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy carrying the given details. The receiver is not
// mutated so the predefined errors stay safe to share across goroutines.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithCause returns a copy wrapping the given cause.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeBusiness,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 422,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

func NewForbiddenError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 403,
	}
}

func NewConflictError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		Retryable:  true,
		StatusCode: 409,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

// Predefined common errors
var (
	ErrAuctionNotOpen = NewBusinessError(CodeAuctionNotOpen, "Auction is not open for bidding")
	ErrInvalidAmount  = NewValidationError(CodeInvalidAmount, "Bid amount must be a positive whole minor-unit value")
	ErrBidTooLow      = NewBusinessError(CodeBidTooLow, "Bid amount does not exceed the current highest bid")
	ErrSelfBidding    = NewForbiddenError(CodeSelfBidding, "Sellers cannot bid on their own items")
	ErrContention     = NewConflictError(CodeContention, "Bid could not be applied due to concurrent updates, retry")
	ErrAuctionNotFound = NewNotFoundError("auction")
	ErrItemNotFound    = NewNotFoundError("item")

	// ErrAlreadyFinalized marks a benign race: the transition the caller
	// wanted already happened. Callers treat it as a no-op success.
	ErrAlreadyFinalized = &AppError{
		Type:       ErrorTypeConflict,
		Code:       CodeAlreadyFinalized,
		Message:    "Auction was already finalized",
		Retryable:  false,
		StatusCode: 409,
	}

	ErrStorageUnavailable = &AppError{
		Type:       ErrorTypeInternal,
		Code:       CodeStorageUnavailable,
		Message:    "Storage is temporarily unavailable",
		Retryable:  true,
		StatusCode: 503,
	}
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsCode checks if an error carries a specific application code
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
