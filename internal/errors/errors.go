// Package errors provides the categorized error taxonomy for the campaign
// escrow service and its mapping to HTTP status codes.
package errors

import (
	"fmt"
	"net/http"

	"github.com/rent-to-earn/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryAuth represents authentication failures
	CategoryAuth ErrorCategory = "auth"
	// CategoryAuthorization represents authorization failures
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryValidation represents validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryState represents state machine precondition failures
	CategoryState ErrorCategory = "state"
	// CategoryChain represents on-chain read failures or lag
	CategoryChain ErrorCategory = "chain"
	// CategoryConflict represents concurrent write conflicts
	CategoryConflict ErrorCategory = "conflict"
	// CategoryDatabase represents database errors
	CategoryDatabase ErrorCategory = "database"
	// CategorySystem represents internal system errors
	CategorySystem ErrorCategory = "system"
)

// Stable error codes surfaced to clients.
const (
	CodeAuthRequired          = "AUTH_REQUIRED"
	CodeInvalidSignature      = "INVALID_SIGNATURE"
	CodeNonceExpiredOrUnknown = "NONCE_EXPIRED_OR_UNKNOWN"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeNotFound              = "NOT_FOUND"
	CodeForbidden             = "FORBIDDEN"
	CodeInvalidState          = "INVALID_STATE"
	CodeChainStateMismatch    = "CHAIN_STATE_MISMATCH"
	CodeChainUnavailable      = "CHAIN_UNAVAILABLE"
	CodeWriteConflict         = "WRITE_CONFLICT"
	CodeDisputed              = "DISPUTED"
	CodeDatabaseError         = "DATABASE_ERROR"
	CodeInternalError         = "INTERNAL_ERROR"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewAuthRequiredError creates an authentication required error. Expired,
// revoked and malformed sessions all map here; callers must not be able to
// distinguish which.
func NewAuthRequiredError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuth,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeAuthRequired,
		Message:    "authentication required",
	}
}

// NewInvalidSignatureError creates an invalid wallet signature error
func NewInvalidSignatureError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuth,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeInvalidSignature,
		Message:    "wallet signature verification failed",
	}
}

// NewNonceError creates a missing/expired/mismatched nonce error
func NewNonceError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuth,
		StatusCode: http.StatusBadRequest,
		Code:       CodeNonceExpiredOrUnknown,
		Message:    "nonce is expired or unknown",
	}
}

// NewInvalidInputError creates a request validation error
func NewInvalidInputError(reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidInput,
		Message:    reason,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       CodeForbidden,
		Message:    message,
	}
}

// NewInvalidStateError creates a transition precondition error
func NewInvalidStateError(current types.CampaignStatus, action types.TransitionAction) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryState,
		StatusCode: http.StatusConflict,
		Code:       CodeInvalidState,
		Message:    fmt.Sprintf("action %s is not allowed from status %s", action, current),
		Details: map[string]interface{}{
			"status": string(current),
			"action": string(action),
		},
	}
}

// NewInvalidAmountError rejects a non-positive escrow amount at creation.
func NewInvalidAmountError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryState,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidState,
		Message:    "escrow amount must be a positive integer",
	}
}

// NewChainStateMismatchError indicates the chain has not yet confirmed the
// asserted fact. Retryable once confirmation lands.
func NewChainStateMismatchError(reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryChain,
		StatusCode: http.StatusConflict,
		Code:       CodeChainStateMismatch,
		Message:    reason,
	}
}

// NewChainUnavailableError indicates a transient chain read failure. Retryable.
func NewChainUnavailableError(cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryChain,
		StatusCode: http.StatusServiceUnavailable,
		Code:       CodeChainUnavailable,
		Message:    "chain state could not be read",
		Cause:      cause,
	}
}

// NewWriteConflictError indicates the transition lost a concurrent race. Retryable.
func NewWriteConflictError(campaignID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       CodeWriteConflict,
		Message:    "a concurrent transition was applied first",
		Details: map[string]interface{}{
			"campaignId": campaignID,
		},
	}
}

// NewDisputedError indicates a campaign requiring manual resolution. Never
// auto-resolved and never retryable.
func NewDisputedError(campaignID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryState,
		StatusCode: http.StatusConflict,
		Code:       CodeDisputed,
		Message:    "campaign is disputed and requires manual resolution",
		Details: map[string]interface{}{
			"campaignId": campaignID,
		},
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeDatabaseError,
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	if catErr, ok := err.(*CategorizedError); ok {
		return catErr
	}

	if svcErr, ok := err.(*types.ServiceError); ok {
		return &CategorizedError{
			Category:   CategorySystem,
			StatusCode: http.StatusInternalServerError,
			Code:       svcErr.Code,
			Message:    svcErr.Message,
			Details:    svcErr.Details,
		}
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable reports whether the caller may safely retry the operation.
// Exactly chain lag, chain unavailability and lost write races qualify.
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Code {
	case CodeChainStateMismatch, CodeChainUnavailable, CodeWriteConflict:
		return true
	}
	return false
}

// IsCode reports whether the error carries the given stable code.
func IsCode(err error, code string) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Code == code
}
