package errors

import (
	"fmt"
	"time"
)

// ErrorCode classifies an application error for HTTP mapping and logging.
type ErrorCode string

const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"

	ErrCodeAccountNotFound    ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeReferrerNotFound   ErrorCode = "REFERRER_NOT_FOUND"
	ErrCodeWithdrawalNotFound ErrorCode = "WITHDRAWAL_NOT_FOUND"

	ErrCodeInsufficientEnergy    ErrorCode = "INSUFFICIENT_ENERGY"
	ErrCodeInsufficientBalance   ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeInsufficientReferrals ErrorCode = "INSUFFICIENT_REFERRALS"
	ErrCodeNoRefillsLeft         ErrorCode = "NO_REFILLS_LEFT"
	ErrCodeBonusNotReady         ErrorCode = "BONUS_NOT_READY"
	ErrCodeWalletRequired        ErrorCode = "WALLET_REQUIRED"
	ErrCodeInvalidWallet         ErrorCode = "INVALID_WALLET_ADDRESS"

	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeLockTimeout   ErrorCode = "LOCK_TIMEOUT"

	ErrCodeTelegramAPI ErrorCode = "TELEGRAM_API_ERROR"
	ErrCodePayout      ErrorCode = "PAYOUT_ERROR"
	ErrCodeExternalAPI ErrorCode = "EXTERNAL_API_ERROR"
)

// AppError is the typed application error carried through handlers and
// rendered by the error-handler middleware.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsValidation reports whether the error is a terminal rejection of user
// input: reported immediately, never retried, no mutation happened.
func (e *AppError) IsValidation() bool {
	switch e.Code {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeInsufficientEnergy,
		ErrCodeInsufficientBalance, ErrCodeInsufficientReferrals,
		ErrCodeNoRefillsLeft, ErrCodeBonusNotReady, ErrCodeWalletRequired,
		ErrCodeInvalidWallet:
		return true
	}
	return false
}

// IsConflict reports whether the caller may safely retry the same request
// because no partial effect occurred.
func (e *AppError) IsConflict() bool {
	return e.Code == ErrCodeConflict || e.Code == ErrCodeLockTimeout
}

// IsNotFound reports whether the error is a missing-resource rejection.
func (e *AppError) IsNotFound() bool {
	switch e.Code {
	case ErrCodeNotFound, ErrCodeAccountNotFound, ErrCodeReferrerNotFound, ErrCodeWithdrawalNotFound:
		return true
	}
	return false
}

// IsExternal reports whether the error came from a collaborator outside the
// ledger (payout processor, Telegram API) and is retried with backoff.
func (e *AppError) IsExternal() bool {
	return e.Code == ErrCodeTelegramAPI || e.Code == ErrCodePayout || e.Code == ErrCodeExternalAPI
}

// IsInternal reports whether the error should surface as a 500-class failure.
func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal || e.Code == ErrCodeDatabaseError
}

// WithDetail attaches structured detail to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID stamps the request id the error occurred under.
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap attaches a cause to a new application error.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func NewAccountNotFoundError(telegramID int64) *AppError {
	return New(ErrCodeAccountNotFound, fmt.Sprintf("Account not found: %d", telegramID)).
		WithDetail("telegram_id", telegramID)
}

func NewReferrerNotFoundError(referrerID int64) *AppError {
	return New(ErrCodeReferrerNotFound, fmt.Sprintf("Referrer not found: %d", referrerID)).
		WithDetail("referrer_id", referrerID)
}

func NewInsufficientEnergyError(current float64) *AppError {
	return New(ErrCodeInsufficientEnergy, "Not enough energy to tap").
		WithDetail("energy", current)
}

func NewInsufficientBalanceError(balance, required float64) *AppError {
	return New(ErrCodeInsufficientBalance, "Insufficient balance").
		WithDetail("balance", balance).
		WithDetail("required", required)
}

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

func NewConflictError(resource, reason string) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf("Conflict with %s: %s", resource, reason)).
		WithDetail("resource", resource).
		WithDetail("reason", reason)
}

func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Ledger operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewPayoutError(operation string, err error) *AppError {
	return Wrap(err, ErrCodePayout, fmt.Sprintf("Payout processor operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewTelegramAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTelegramAPI, fmt.Sprintf("Telegram API operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// AsAppError unwraps err into an AppError when possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil {
		appErr, _ = err.(*AppError)
	}
	return appErr, appErr != nil
}
