package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

// Locals keys set by UseToken.
const (
	LocalUserID   = "userID"
	LocalRole     = "role"
	LocalUsername = "username"
)

// TokenParser validates an access token and returns its claims.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// UseToken rejects requests without a valid access token in the
// Authorization header.
func UseToken(parser TokenParser) fiber.Handler {
	return requireToken(parser, false)
}

// UseSocketToken is UseToken for websocket upgrades, where browsers cannot
// set headers, so the token query parameter is accepted as well.
func UseSocketToken(parser TokenParser) fiber.Handler {
	return requireToken(parser, true)
}

func requireToken(parser TokenParser, allowQuery bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, msg := bearerToken(c, allowQuery)
		if raw == "" {
			return unauthorized(c, msg)
		}
		claims, err := parser.Parse(raw)
		if err != nil {
			logger.SecurityLogger.Warn("Rejected access token",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			return unauthorized(c, "Invalid token")
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalRole, claims.Role)
		c.Locals(LocalUsername, claims.Username)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx, allowQuery bool) (string, string) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if q := c.Query("token"); allowQuery && q != "" {
			return q, ""
		}
		return "", "No token provided"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Invalid token format"
	}
	return parts[1], ""
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": msg,
		"success": false,
		"status":  fiber.StatusUnauthorized,
	})
}

// CurrentUser returns the identity UseToken stored on the request.
func CurrentUser(c *fiber.Ctx) (int, models.Role) {
	id, _ := c.Locals(LocalUserID).(int)
	role, _ := c.Locals(LocalRole).(models.Role)
	return id, role
}
