package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/middleware"
)

var validate = validator.New()

// parseBody decodes the JSON body into dest and runs struct validation.
func parseBody(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := validate.Struct(dest); err != nil {
		return apperr.Validation(describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

// paramID parses a UUID path parameter.
func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid " + name)
	}
	return id, nil
}

// currentUser returns the authenticated caller's ID.
func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return uuid.Nil, apperr.ErrUnauthorized
	}
	return userID, nil
}

// ErrorHandler renders every error as {"success": false, "message": ...}.
// Unexpected errors are logged and hidden from clients.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := apperr.ErrInternal.Message

		var fiberErr *fiber.Error
		if appErr, ok := apperr.As(err); ok {
			status = appErr.Status()
			if appErr.Kind != apperr.KindUnexpected {
				message = appErr.Message
			}
		} else if errors.As(err, &fiberErr) {
			status = fiberErr.Code
			message = fiberErr.Message
		}

		if status >= fiber.StatusInternalServerError {
			fields := []zap.Field{
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			}
			if id, ok := c.Locals(middleware.RequestIDKey).(string); ok {
				fields = append(fields, zap.String("request_id", id))
			}
			log.Error("request failed", fields...)
		}

		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"message": message,
		})
	}
}
