package errors

import (
	"errors"
	"fmt"
)

// Error kinds raised by the upload pipeline.
var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrIssuance      = errors.New("url issuance failed")
	ErrPersistence   = errors.New("ledger write failed")
	ErrDispatch      = errors.New("notification dispatch failed")
)

// Error codes, also used as metric labels.
const (
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeIssuance      = "ISSUANCE_ERROR"
	CodePersistence   = "PERSISTENCE_ERROR"
	CodeDispatch      = "DISPATCH_ERROR"
	CodeUnknown       = "UNKNOWN_ERROR"
)

// AppError represents a classified pipeline error.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`

	kind error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind sentinel of this error.
func (e *AppError) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

func newAppError(code string, kind error, message string, err error) *AppError {
	if message == "" {
		message = kind.Error()
	}
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		kind:    kind,
	}
}

// Configuration creates a configuration error.
func Configuration(message string, err error) *AppError {
	return newAppError(CodeConfiguration, ErrConfiguration, message, err)
}

// Issuance creates a URL issuance error.
func Issuance(message string, err error) *AppError {
	return newAppError(CodeIssuance, ErrIssuance, message, err)
}

// Persistence creates a ledger write error.
func Persistence(message string, err error) *AppError {
	return newAppError(CodePersistence, ErrPersistence, message, err)
}

// Dispatch creates a notification dispatch error.
func Dispatch(message string, err error) *AppError {
	return newAppError(CodeDispatch, ErrDispatch, message, err)
}

// CodeOf returns the code of the outermost AppError in err's chain.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrConfiguration):
		return CodeConfiguration
	case errors.Is(err, ErrIssuance):
		return CodeIssuance
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	case errors.Is(err, ErrDispatch):
		return CodeDispatch
	default:
		return CodeUnknown
	}
}
