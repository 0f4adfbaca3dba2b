package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/api/http/handlers"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/identity"
	"github.com/spec-kit/identity-service/internal/observability"
	"github.com/spec-kit/identity-service/internal/repository"
	"github.com/spec-kit/identity-service/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	tokens := identity.NewTokenManager("router-secret", time.Hour, "https://issuer.test", "client-1")
	provider := identity.NewMemoryProvider(tokens)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   repository.NewMemoryUserRepository(),
		Provider:   provider,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("identity-service", "test", metrics, nil),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(provider),
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

const johnBody = `{"name":"John Doe","email":"john.doe@gmail.com","password":"Test123#"}`

func TestRoutes_JohnDoeScenario(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, "POST", "/api/v1/auth/register", johnBody, nil)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "User created successfully", body["message"])
	assert.Equal(t, map[string]any{"user_id": float64(1), "name": "John Doe", "email": "john.doe@gmail.com"}, body["data"])

	status, body = do(t, app, "GET", "/api/v1/auth/login", "", map[string]string{"email": "john.doe@gmail.com", "password": "Wrong123#"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid credentials", body["message"])

	status, body = do(t, app, "GET", "/api/v1/auth/login", "", map[string]string{"email": "nobody@gmail.com", "password": "Test123#"})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "User not found", body["message"])

	status, body = do(t, app, "GET", "/api/v1/auth/login", "", map[string]string{"email": "john.doe@gmail.com", "password": "Test123#"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "User logged in successfully", body["message"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, float64(1), body["user"].(map[string]any)["user_id"])

	status, body = do(t, app, "GET", "/api/v1/auth/validate", "", map[string]string{"token": token})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Token validated successfully", body["message"])
	assert.Equal(t, token, body["token"])
	assert.Equal(t, "john.doe@gmail.com", body["user"].(map[string]any)["email"])

	status, body = do(t, app, "GET", "/api/v1/auth/validate", "", map[string]string{"token": "invalid_token"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid token", body["message"])
	assert.Equal(t, false, body["ok"])

	status, body = do(t, app, "GET", "/api/v1/auth/session", "", map[string]string{"token": token})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "1", body["session"].(map[string]any)["user_id"])
}

func TestRoutes_ValidationErrors(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, "POST", "/api/v1/auth/register", `{"name":"John Doe","email":"john.doe@gmail.com","password":"weak"}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.Contains(t, body["details"], "password")

	status, body = do(t, app, "GET", "/api/v1/auth/login", "", map[string]string{"email": "john.doe@gmail.com"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "password is required", body["details"].(map[string]any)["password"])

	status, body = do(t, app, "GET", "/api/v1/auth/validate", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "token is required", body["details"].(map[string]any)["token"])
}

func TestRoutes_DuplicateRegistration(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, "POST", "/api/v1/auth/register", johnBody, nil)
	require.Equal(t, fiber.StatusCreated, status)

	status, body := do(t, app, "POST", "/api/v1/auth/register", johnBody, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "User not created", body["message"])
}

func TestRoutes_SessionRejections(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, "GET", "/api/v1/auth/session", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Missing token", body["message"])

	status, body = do(t, app, "GET", "/api/v1/auth/session", "", map[string]string{"token": "invalid_token"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token", body["message"])
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, "GET", "/api/v1/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Server is live", body["message"])

	status, body = do(t, app, "GET", "/api/v1/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, body = do(t, app, "GET", "/api/v1/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	requests := body["requests"].(map[string]any)
	assert.Equal(t, float64(1), requests["/api/v1/live|GET|200"])
}

func TestRoutes_UnknownRouteKeepsStatus(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, "GET", "/api/v1/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.NotEmpty(t, body["message"])
}
