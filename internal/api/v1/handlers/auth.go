package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/auth"
	"taskboard/internal/mapper"
	"taskboard/internal/models"
	"taskboard/internal/websocket"
	"taskboard/pkg/logger"
)

// Register creates an account for anyone. The role is always the default
// one; only an admin can grant another role afterwards.
func (h *Handler) Register(c *fiber.Ctx) error {
	in, err := mapper.DecodeUserCreate(c.Body())
	if err != nil {
		return fail(c, err)
	}
	in.Role = string(models.DefaultRole)

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return fail(c, err)
	}
	user := in.User(hashed)
	if err := h.store.CreateUser(c.UserContext(), user); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("User registered successfully", zap.Int("user_id", user.ID))
	h.events.Publish(websocket.Event{Type: websocket.EventCreated, Entity: "user", ID: user.ID})
	return respond(c, fiber.StatusCreated, "User created successfully", mapper.ToUserView(user))
}

// Login exchanges a username and password for a JWT pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	in, err := mapper.DecodeCredentials(c.Body())
	if err != nil {
		return fail(c, err)
	}
	pair, err := h.issuer.Issue(c.UserContext(), in.Username, in.Password)
	if err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Login success",
		zap.Int("user_id", pair.Claims.UserID),
		zap.String("role", string(pair.Claims.Role)),
	)
	return respond(c, fiber.StatusOK, "Login success", mapper.ToTokenView(pair))
}

func (h *Handler) RefreshToken(c *fiber.Ctx) error {
	refresh, err := mapper.DecodeRefresh(c.Body())
	if err != nil {
		return fail(c, err)
	}
	pair, err := h.issuer.Refresh(c.UserContext(), refresh)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, "Token refreshed", mapper.ToTokenView(pair))
}

// Logout revokes the refresh token. Access tokens stay valid until they
// expire.
func (h *Handler) Logout(c *fiber.Ctx) error {
	refresh, err := mapper.DecodeRefresh(c.Body())
	if err != nil {
		return fail(c, err)
	}
	if err := h.issuer.Revoke(c.UserContext(), refresh); err != nil {
		return fail(c, err)
	}
	logger.AuditLogger.Info("Refresh token revoked")
	return respond(c, fiber.StatusOK, "Logged out", nil)
}
