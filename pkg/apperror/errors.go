package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// GetAppError extracts an AppError from an error chain.
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ---- Transaction Business Logic (TXN) ----

func ErrInvalidAmount() *AppError {
	return New("TXN_001", "Invalid amount", http.StatusBadRequest)
}

func ErrReceiverNotFound() *AppError {
	return New("TXN_002", "Receiver not found", http.StatusNotFound)
}

func ErrWalletNotFound() *AppError {
	return New("TXN_003", "Wallet not found", http.StatusNotFound)
}

func ErrInsufficientFunds() *AppError {
	return New("TXN_004", "Insufficient balance in account", http.StatusPaymentRequired)
}

func ErrDailyLimitExceeded() *AppError {
	return New("TXN_005", "Daily transfer limit exceeded", http.StatusUnprocessableEntity)
}

func ErrConversionFailed(err error) *AppError {
	return Wrap("TXN_006", "Currency conversion failed", http.StatusBadGateway, err)
}

func ErrTransactionNotFound() *AppError {
	return New("TXN_007", "Transaction not found", http.StatusNotFound)
}

func ErrReversalWindowClosed() *AppError {
	return New("TXN_008", "Transaction already finalized, reversal window closed", http.StatusBadRequest)
}

func ErrAlreadyReverted() *AppError {
	return New("TXN_009", "Transaction has already been reverted", http.StatusBadRequest)
}

// ---- Account Provisioning (ACC) ----

func ErrAccountGeneration(err error) *AppError {
	return Wrap("ACC_001", "Account number generation failed", http.StatusInternalServerError, err)
}

func ErrWalletExists() *AppError {
	return New("ACC_002", "User already has a wallet", http.StatusConflict)
}

func ErrUnknownAccountKind(kind string) *AppError {
	return New("ACC_003", fmt.Sprintf("Unknown account kind: %s", kind), http.StatusBadRequest)
}

func ErrUserNotFound() *AppError {
	return New("ACC_004", "User not found", http.StatusNotFound)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
