package http

import (
	"context"
	"errors"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/observability"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, email, password, token, X-Request-ID",
		AllowMethods: "GET,POST,OPTIONS",
	}))
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				status, response, code := errorResponse(err)
				if metrics != nil {
					metrics.RecordError(c.Path(), c.Method(), code)
				}
				if status >= fiber.StatusInternalServerError {
					logger.Error("request failed",
						zap.String("request_id", observability.RequestID(c)),
						zap.Error(err))
				}
				c.Status(status)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// errorResponse renders an error as {message, code}. Token rejections add
// ok:false and validation failures add details.
func errorResponse(err error) (int, fiber.Map, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiber.Map{"message": fiberErr.Message}, "HTTP_" + strconv.Itoa(fiberErr.Code)
	}

	domainErr := apperrors.ToDomainError(err)
	response := fiber.Map{
		"message": domainErr.Message,
		"code":    domainErr.Code,
	}
	if apperrors.IsTokenError(domainErr) {
		response["ok"] = false
	}
	if len(domainErr.Details) > 0 {
		response["details"] = domainErr.Details
	}
	return domainErr.HTTPStatus, response, domainErr.Code
}
