package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/utils"
)

const (
	userContextKey   = "currentUserID"
	claimsContextKey = "currentClaims"
)

// AuthMiddleware validates JWT tokens and loads the caller's claims into context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperr.ErrUnauthorized.WithMessage("missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return apperr.ErrUnauthorized.WithMessage("invalid authorization header")
		}

		claims, err := utils.ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			return apperr.ErrInvalidToken
		}
		userID, err := claims.UserUUID()
		if err != nil {
			return apperr.ErrInvalidToken
		}

		c.Locals(userContextKey, userID)
		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

// RequireRole admits only callers whose token carries role. Must run after
// AuthMiddleware.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := GetClaims(c)
		if !ok {
			return apperr.ErrUnauthorized
		}
		if claims.Role != role {
			return apperr.ErrForbidden.WithMessage(role + " access required")
		}
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(userContextKey).(uuid.UUID)
	return id, ok
}

// GetClaims extracts the authenticated token claims from context.
func GetClaims(c *fiber.Ctx) (*utils.Claims, bool) {
	claims, ok := c.Locals(claimsContextKey).(*utils.Claims)
	return claims, ok && claims != nil
}
