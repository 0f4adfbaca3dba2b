package dto

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/domain"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields, email format and the password policy.
func (r RegisterRequest) Validate() error {
	return toValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error("name is required")),
		validation.Field(&r.Email,
			validation.Required.Error("email is required"),
			is.Email.Error("email must be an email"),
		),
		validation.Field(&r.Password,
			validation.Required.Error("password is required"),
			validation.By(passwordPolicy),
		),
	))
}

// LoginHeaders are read from the email and password request headers.
type LoginHeaders struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that both credentials are present.
func (h LoginHeaders) Validate() error {
	return toValidationError(validation.ValidateStruct(&h,
		validation.Field(&h.Email,
			validation.Required.Error("email is required"),
			is.Email.Error("email must be an email"),
		),
		validation.Field(&h.Password, validation.Required.Error("password is required")),
	))
}

// TokenHeaders carries the ID token header.
type TokenHeaders struct {
	Token string `json:"token"`
}

// Validate checks that the token is present.
func (h TokenHeaders) Validate() error {
	return toValidationError(validation.ValidateStruct(&h,
		validation.Field(&h.Token, validation.Required.Error("token is required")),
	))
}

// RegisterResponse is returned with 201 on registration.
type RegisterResponse struct {
	Message string         `json:"message"`
	Data    domain.Profile `json:"data"`
}

// AuthResponse is returned by login and token validation.
type AuthResponse struct {
	Message string         `json:"message"`
	User    domain.Profile `json:"user"`
	Token   string         `json:"token"`
}

// SessionResponse is returned by the session endpoint.
type SessionResponse struct {
	Message string         `json:"message"`
	Session domain.Session `json:"session"`
}

func passwordPolicy(value interface{}) error {
	password, _ := value.(string)
	if password == "" {
		return nil
	}
	return auth.CheckPasswordPolicy(password)
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		details[field] = fieldErr.Error()
	}
	return apperrors.NewValidationError("Validation failed", details)
}
