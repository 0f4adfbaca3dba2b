package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/service"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

// AuthHandler exposes the register, login and token endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	profile, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.RegisterResponse{
		Message: "User created successfully",
		Data:    *profile,
	})
}

// Login handles GET /auth/login with email and password headers.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	headers := dto.LoginHeaders{Email: c.Get("email"), Password: c.Get("password")}
	if err := headers.Validate(); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), headers.Email, headers.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.AuthResponse{
		Message: "User logged in successfully",
		User:    result.User,
		Token:   result.Token,
	})
}

// Validate handles GET /auth/validate with the token header.
func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	headers := dto.TokenHeaders{Token: c.Get(auth.TokenHeader)}
	if err := headers.Validate(); err != nil {
		return err
	}

	result, err := h.auth.ValidateToken(c.UserContext(), headers.Token)
	if err != nil {
		return err
	}

	return c.JSON(dto.AuthResponse{
		Message: "Token validated successfully",
		User:    result.User,
		Token:   result.Token,
	})
}

// Session handles GET /auth/session behind the gateway middleware.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Invalid token")
	}
	return c.JSON(dto.SessionResponse{
		Message: "Session is valid",
		Session: *session,
	})
}
