// Package handlers implements the /api/v1 endpoints on top of the entity
// store, the access policy and the token issuer.
package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/apperror"
	"taskboard/internal/auth"
	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/internal/policy"
	"taskboard/internal/repository"
	"taskboard/internal/websocket"
	"taskboard/pkg/logger"
)

// Store is the entity store the handlers work against.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	SetUserRole(ctx context.Context, id int, role models.Role) error
	DeleteUser(ctx context.Context, id int) error

	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id int) (*models.Project, error)
	ListProjects(ctx context.Context, f repository.ProjectFilter) ([]models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project, replaceTeam bool) error
	DeleteProject(ctx context.Context, id int) error
	AddTeamMember(ctx context.Context, projectID, userID int) error
	RemoveTeamMember(ctx context.Context, projectID, userID int) error
	IsTeamMember(ctx context.Context, projectID, userID int) (bool, error)

	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id int) (*models.Task, error)
	ListTasks(ctx context.Context, f repository.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id int) error
}

// Publisher receives an event after every committed change.
type Publisher interface {
	Publish(ev websocket.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(websocket.Event) {}

type Handler struct {
	store  Store
	issuer *auth.Issuer
	events Publisher
}

// New builds the handler set. events may be nil.
func New(store Store, issuer *auth.Issuer, events Publisher) *Handler {
	if events == nil {
		events = nopPublisher{}
	}
	return &Handler{store: store, issuer: issuer, events: events}
}

func actorOf(c *fiber.Ctx) policy.Actor {
	id, role := middleware.CurrentUser(c)
	return policy.Actor{ID: id, Role: role}
}

// paramID reads a path id. Ids no row can have are reported as not found
// for entity.
func paramID(c *fiber.Ctx, name, entity string) (int, error) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id <= 0 {
		verr := apperror.NewValidation()
		verr.Add(name, "must be a positive integer")
		return 0, verr
	}
	if !models.ValidID(id) {
		return 0, &apperror.NotFoundError{Entity: entity, ID: id}
	}
	return id, nil
}

// queryID reads an optional id query parameter into verr.
func queryID(c *fiber.Ctx, name string, verr *apperror.ValidationError) *int {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || !models.ValidID(id) {
		verr.Add(name, "must be a valid id")
		return nil
	}
	return &id
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": true,
		"status":  status,
		"data":    data,
	})
}

// fail writes the error envelope for err. Domain errors keep their own
// status; anything else is logged and reported as a generic 500.
func fail(c *fiber.Ctx, err error) error {
	var (
		verr      *apperror.ValidationError
		ref       *apperror.ReferenceError
		conflict  *apperror.ConflictError
		authErr   *apperror.AuthenticationError
		forbidden *apperror.ForbiddenError
		notFound  *apperror.NotFoundError
	)
	body := fiber.Map{"success": false}
	status := fiber.StatusInternalServerError

	switch {
	case errors.As(err, &verr):
		status = fiber.StatusBadRequest
		body["message"] = "Validation error"
		body["errors"] = verr.Fields
	case errors.As(err, &ref):
		status = fiber.StatusBadRequest
		body["message"] = "Validation error"
		body["errors"] = map[string]string{ref.Field: ref.Error()}
	case errors.As(err, &conflict):
		status = fiber.StatusConflict
		body["message"] = "Conflict"
		body["errors"] = map[string]string{conflict.Field: conflict.Error()}
	case errors.As(err, &authErr):
		status = fiber.StatusUnauthorized
		body["message"] = "Invalid credentials"
		logger.SecurityLogger.Warn("Authentication failed",
			zap.String("reason", authErr.Reason),
			zap.String("ip", c.IP()),
		)
	case errors.As(err, &forbidden):
		status = fiber.StatusForbidden
		body["message"] = "Forbidden: " + forbidden.Error()
		id, role := middleware.CurrentUser(c)
		logger.SecurityLogger.Warn("Forbidden",
			zap.Int("user_id", id),
			zap.String("role", string(role)),
			zap.String("action", forbidden.Action),
		)
	case errors.As(err, &notFound):
		status = fiber.StatusNotFound
		body["message"] = notFound.Error()
	default:
		body["message"] = "Internal server error"
		logger.ErrorLogger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	body["status"] = status
	return c.Status(status).JSON(body)
}
