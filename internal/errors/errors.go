// Package errors provides custom error types for the Stepcity API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Ledger errors.
var (
	ErrInsufficientFunds = &AppError{Code: "INSUFFICIENT_FUNDS", Message: "Insufficient coin balance", StatusCode: http.StatusBadRequest}
	ErrAccountNotFound   = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrInvalidDay        = &AppError{Code: "INVALID_DAY", Message: "Day must be formatted as YYYY-MM-DD", StatusCode: http.StatusBadRequest}

	// ErrTransactionConflict is surfaced only after the store has exhausted
	// its conflict retries. The outcome of the operation is unknown; callers
	// must re-read state before resubmitting a credit or spend.
	ErrTransactionConflict = &AppError{Code: "TRANSACTION_CONFLICT", Message: "The operation conflicted with a concurrent update, please retry", StatusCode: http.StatusConflict}
)

// Achievement errors.
var (
	ErrUnknownAchievement      = &AppError{Code: "UNKNOWN_ACHIEVEMENT", Message: "Achievement not found", StatusCode: http.StatusNotFound}
	ErrAchievementNotCompleted = &AppError{Code: "ACHIEVEMENT_NOT_COMPLETED", Message: "Achievement has not been completed yet", StatusCode: http.StatusBadRequest}
	ErrAlreadyClaimed          = &AppError{Code: "ALREADY_CLAIMED", Message: "Achievement reward has already been claimed", StatusCode: http.StatusConflict}
)

// Shop errors.
var (
	ErrProductNotFound = &AppError{Code: "PRODUCT_NOT_FOUND", Message: "Product not found or inactive", StatusCode: http.StatusNotFound}
	ErrSkinNotOwned    = &AppError{Code: "SKIN_NOT_OWNED", Message: "Skin is not owned", StatusCode: http.StatusBadRequest}
)
