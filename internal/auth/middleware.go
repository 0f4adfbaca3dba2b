package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/identity"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

// TokenHeader carries the provider-issued ID token.
const TokenHeader = "token"

const sessionKey = "auth_session"

// TokenVerifier is the part of the identity provider the gateway needs.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*identity.IDTokenClaims, error)
}

// AuthMiddleware verifies ID tokens and injects the session claims.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Handle enforces authentication for protected routes. It checks the token
// signature and claims only; the local profile is not re-fetched.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token := c.Get(TokenHeader)
	if token == "" {
		return apperrors.NewValidationError("Missing token", nil)
	}

	claims, err := m.verifier.VerifyToken(c.UserContext(), token)
	if err != nil {
		return apperrors.NewUnauthorized("Invalid token")
	}

	session := claims.Session()
	c.Locals(sessionKey, &session)
	return c.Next()
}

// SessionFromContext retrieves the verified session.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*domain.Session)
	return session, ok
}
