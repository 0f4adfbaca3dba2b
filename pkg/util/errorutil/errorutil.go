package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes attached to every DomainError served by the API.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeUserNotCreated     = "USER_NOT_CREATED"
	CodeUserExists         = "USER_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code, so sentinel-style checks work.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewUserNotFound() error {
	return NewDomainError(CodeUserNotFound, "User not found", http.StatusNotFound, nil)
}

func NewUserNotCreated() error {
	return NewDomainError(CodeUserNotCreated, "User not created", http.StatusBadRequest, nil)
}

func NewUserExists() error {
	return NewDomainError(CodeUserExists, "User already exists", http.StatusConflict, nil)
}

func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "Invalid credentials", http.StatusBadRequest, nil)
}

func NewInvalidToken(cause error) error {
	return &DomainError{
		Code:       CodeInvalidToken,
		Message:    "Invalid token",
		HTTPStatus: http.StatusBadRequest,
		Err:        cause,
	}
}

func NewTokenExpired() error {
	return NewDomainError(CodeTokenExpired, "Token expired", http.StatusBadRequest, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewUnexpected wraps an unclassified store or provider fault under a public message.
func NewUnexpected(message string, err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return NewUnexpected("internal server error", err)
}

// IsTokenError reports whether the error is one of the token rejection kinds.
func IsTokenError(err error) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == CodeInvalidToken || domainErr.Code == CodeTokenExpired
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
