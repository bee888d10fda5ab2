package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskboard/internal/apperror"
	"taskboard/internal/mapper"
	"taskboard/internal/models"
	"taskboard/internal/policy"
	"taskboard/internal/repository"
	"taskboard/internal/websocket"
	"taskboard/pkg/logger"
)

// taskTarget resolves the actor's relationship to task for the policy.
func (h *Handler) taskTarget(c *fiber.Ctx, task *models.Task, actor policy.Actor) (policy.Resource, error) {
	member, err := h.store.IsTeamMember(c.UserContext(), task.ProjectID, actor.ID)
	if err != nil {
		return policy.Resource{}, err
	}
	assigned := task.AssigneeID != nil && *task.AssigneeID == actor.ID
	return policy.Task(task.ID, member, assigned), nil
}

// ListTasks supports ?project=, ?assignee= and ?status= filters, combined
// with AND.
func (h *Handler) ListTasks(c *fiber.Ctx) error {
	verr := apperror.NewValidation()
	filter := repository.TaskFilter{
		ProjectID:  queryID(c, "project", verr),
		AssigneeID: queryID(c, "assignee", verr),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.Status(raw)
		if !status.Valid() {
			verr.Add("status", "must be one of TODO IN_PROGRESS DONE")
		}
		filter.Status = &status
	}
	if err := verr.OrNil(); err != nil {
		return fail(c, err)
	}

	tasks, err := h.store.ListTasks(c.UserContext(), filter)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, "Tasks fetched successfully", mapper.ToTaskViews(tasks))
}

// CreateTask requires the project to exist before permissions are
// checked, so an unknown project is reported on the project field.
func (h *Handler) CreateTask(c *fiber.Ctx) error {
	in, err := mapper.DecodeTaskCreate(c.Body())
	if err != nil {
		return fail(c, err)
	}
	task := in.Task()

	project, err := h.store.GetProject(c.UserContext(), task.ProjectID)
	if apperror.IsNotFound(err) {
		return fail(c, &apperror.ReferenceError{Field: "project", ID: task.ProjectID})
	}
	if err != nil {
		return fail(c, err)
	}
	actor := actorOf(c)
	if err := policy.Authorize(actor, policy.ActionCreate, policy.Task(0, onTeam(project, actor.ID), false)); err != nil {
		return fail(c, err)
	}

	if err := h.store.CreateTask(c.UserContext(), task); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Task created",
		zap.Int("task_id", task.ID),
		zap.Int("project_id", task.ProjectID),
		zap.Int("by", actor.ID),
	)
	h.events.Publish(websocket.Event{Type: websocket.EventCreated, Entity: "task", ID: task.ID, Project: task.ProjectID})
	return respond(c, fiber.StatusCreated, "Task created successfully", mapper.ToTaskView(task))
}

func (h *Handler) GetTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "task")
	if err != nil {
		return fail(c, err)
	}
	task, err := h.store.GetTask(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, "Task found", mapper.ToTaskView(task))
}

// UpdateTask serves PUT and PATCH. A task never moves to another project.
func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "task")
	if err != nil {
		return fail(c, err)
	}
	task, err := h.store.GetTask(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	actor := actorOf(c)
	target, err := h.taskTarget(c, task, actor)
	if err != nil {
		return fail(c, err)
	}
	if err := policy.Authorize(actor, policy.ActionUpdate, target); err != nil {
		return fail(c, err)
	}

	in, err := mapper.DecodeTaskUpdate(c.Body(), task)
	if err != nil {
		return fail(c, err)
	}
	in.Apply(task)
	if err := h.store.UpdateTask(c.UserContext(), task); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Task updated", zap.Int("task_id", id), zap.Int("by", actor.ID))
	h.events.Publish(websocket.Event{Type: websocket.EventUpdated, Entity: "task", ID: id, Project: task.ProjectID})
	return respond(c, fiber.StatusOK, "Task updated successfully", mapper.ToTaskView(task))
}

func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "task")
	if err != nil {
		return fail(c, err)
	}
	task, err := h.store.GetTask(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	actor := actorOf(c)
	target, err := h.taskTarget(c, task, actor)
	if err != nil {
		return fail(c, err)
	}
	if err := policy.Authorize(actor, policy.ActionDelete, target); err != nil {
		return fail(c, err)
	}
	if err := h.store.DeleteTask(c.UserContext(), id); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Task deleted", zap.Int("task_id", id), zap.Int("by", actor.ID))
	h.events.Publish(websocket.Event{Type: websocket.EventDeleted, Entity: "task", ID: id, Project: task.ProjectID})
	return respond(c, fiber.StatusOK, "Task deleted successfully", nil)
}
