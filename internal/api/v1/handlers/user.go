package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/auth"
	"taskboard/internal/mapper"
	"taskboard/internal/policy"
	"taskboard/internal/websocket"
	"taskboard/pkg/logger"
)

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	if err := policy.Authorize(actorOf(c), policy.ActionRead, policy.User(0)); err != nil {
		return fail(c, err)
	}
	users, err := h.store.ListUsers(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, "Users fetched successfully", mapper.ToUserViews(users))
}

// CreateUser is the admin path for adding accounts; unlike Register it
// honours the requested role.
func (h *Handler) CreateUser(c *fiber.Ctx) error {
	if err := policy.Authorize(actorOf(c), policy.ActionCreate, policy.User(0)); err != nil {
		return fail(c, err)
	}
	in, err := mapper.DecodeUserCreate(c.Body())
	if err != nil {
		return fail(c, err)
	}
	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return fail(c, err)
	}
	user := in.User(hashed)
	if err := h.store.CreateUser(c.UserContext(), user); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("User created", zap.Int("user_id", user.ID), zap.Int("by", actorOf(c).ID))
	h.events.Publish(websocket.Event{Type: websocket.EventCreated, Entity: "user", ID: user.ID})
	return respond(c, fiber.StatusCreated, "User created successfully", mapper.ToUserView(user))
}

func (h *Handler) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "user")
	if err != nil {
		return fail(c, err)
	}
	if err := policy.Authorize(actorOf(c), policy.ActionRead, policy.User(id)); err != nil {
		return fail(c, err)
	}
	user, err := h.store.GetUser(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, "User found", mapper.ToUserView(user))
}

// UpdateUser serves both PUT and PATCH; absent fields keep their value.
func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "user")
	if err != nil {
		return fail(c, err)
	}
	if err := policy.Authorize(actorOf(c), policy.ActionUpdate, policy.User(id)); err != nil {
		return fail(c, err)
	}
	user, err := h.store.GetUser(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	in, err := mapper.DecodeUserUpdate(c.Body())
	if err != nil {
		return fail(c, err)
	}

	var newHash string
	if in.Password != nil {
		if newHash, err = auth.HashPassword(*in.Password); err != nil {
			return fail(c, err)
		}
	}
	in.Apply(user, newHash)
	if err := h.store.UpdateUser(c.UserContext(), user); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("User updated", zap.Int("user_id", id), zap.Int("by", actorOf(c).ID))
	h.events.Publish(websocket.Event{Type: websocket.EventUpdated, Entity: "user", ID: id})
	return respond(c, fiber.StatusOK, "User updated successfully", mapper.ToUserView(user))
}

// SetRole is the only way a role changes.
func (h *Handler) SetRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "user")
	if err != nil {
		return fail(c, err)
	}
	if err := policy.Authorize(actorOf(c), policy.ActionChangeRole, policy.User(id)); err != nil {
		return fail(c, err)
	}
	role, err := mapper.DecodeRole(c.Body())
	if err != nil {
		return fail(c, err)
	}
	if err := h.store.SetUserRole(c.UserContext(), id, role); err != nil {
		return fail(c, err)
	}
	user, err := h.store.GetUser(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("User role changed",
		zap.Int("user_id", id),
		zap.String("role", string(role)),
		zap.Int("by", actorOf(c).ID),
	)
	h.events.Publish(websocket.Event{Type: websocket.EventUpdated, Entity: "user", ID: id})
	return respond(c, fiber.StatusOK, "Role updated successfully", mapper.ToUserView(user))
}

// DeleteUser unassigns the user's tasks and removes them from every team
// before deleting the account.
func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "user")
	if err != nil {
		return fail(c, err)
	}
	if err := policy.Authorize(actorOf(c), policy.ActionDelete, policy.User(id)); err != nil {
		return fail(c, err)
	}
	if err := h.store.DeleteUser(c.UserContext(), id); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("User deleted", zap.Int("user_id", id), zap.Int("by", actorOf(c).ID))
	h.events.Publish(websocket.Event{Type: websocket.EventDeleted, Entity: "user", ID: id})
	return respond(c, fiber.StatusOK, "User deleted successfully", nil)
}
