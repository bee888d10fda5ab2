package handlers

import (
	"slices"

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

func onTeam(p *models.Project, userID int) bool {
	return slices.Contains(p.Team, userID)
}

// ListProjects supports ?member=<user id> to list one user's projects.
func (h *Handler) ListProjects(c *fiber.Ctx) error {
	verr := apperror.NewValidation()
	filter := repository.ProjectFilter{MemberID: queryID(c, "member", verr)}
	if err := verr.OrNil(); err != nil {
		return fail(c, err)
	}
	projects, err := h.store.ListProjects(c.UserContext(), filter)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, "Projects fetched successfully", mapper.ToProjectViews(projects))
}

func (h *Handler) CreateProject(c *fiber.Ctx) error {
	actor := actorOf(c)
	if err := policy.Authorize(actor, policy.ActionCreate, policy.Project(0, false)); err != nil {
		return fail(c, err)
	}
	in, err := mapper.DecodeProjectCreate(c.Body())
	if err != nil {
		return fail(c, err)
	}
	// Only team managers pick the initial team. Anyone else joins the
	// project they create so they can keep editing it.
	project := in.Project()
	if err := policy.Authorize(actor, policy.ActionManageTeam, policy.Project(0, false)); err != nil {
		if len(project.Team) > 0 {
			return fail(c, err)
		}
		project.Team = []int{actor.ID}
	}
	if err := h.store.CreateProject(c.UserContext(), project); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Project created", zap.Int("project_id", project.ID), zap.Int("by", actor.ID))
	h.events.Publish(websocket.Event{Type: websocket.EventCreated, Entity: "project", ID: project.ID, Project: project.ID})
	return respond(c, fiber.StatusCreated, "Project created successfully", mapper.ToProjectView(project))
}

func (h *Handler) GetProject(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return fail(c, err)
	}
	project, err := h.store.GetProject(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return respond(c, fiber.StatusOK, "Project found", mapper.ToProjectView(project))
}

// UpdateProject serves PUT and PATCH. Replacing the team through this
// endpoint needs the same permission as the team endpoints.
func (h *Handler) UpdateProject(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return fail(c, err)
	}
	project, err := h.store.GetProject(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	actor := actorOf(c)
	target := policy.Project(id, onTeam(project, actor.ID))
	if err := policy.Authorize(actor, policy.ActionUpdate, target); err != nil {
		return fail(c, err)
	}
	in, err := mapper.DecodeProjectUpdate(c.Body())
	if err != nil {
		return fail(c, err)
	}
	replaceTeam := in.Apply(project)
	if replaceTeam {
		if err := policy.Authorize(actor, policy.ActionManageTeam, target); err != nil {
			return fail(c, err)
		}
	}
	if err := h.store.UpdateProject(c.UserContext(), project, replaceTeam); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Project updated", zap.Int("project_id", id), zap.Int("by", actor.ID))
	h.events.Publish(websocket.Event{Type: websocket.EventUpdated, Entity: "project", ID: id, Project: id})
	return respond(c, fiber.StatusOK, "Project updated successfully", mapper.ToProjectView(project))
}

// DeleteProject deletes the project and all of its tasks.
func (h *Handler) DeleteProject(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return fail(c, err)
	}
	actor := actorOf(c)
	if err := policy.Authorize(actor, policy.ActionDelete, policy.Project(id, false)); err != nil {
		return fail(c, err)
	}
	if err := h.store.DeleteProject(c.UserContext(), id); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Project deleted", zap.Int("project_id", id), zap.Int("by", actor.ID))
	h.events.Publish(websocket.Event{Type: websocket.EventDeleted, Entity: "project", ID: id, Project: id})
	return respond(c, fiber.StatusOK, "Project deleted successfully", nil)
}

func (h *Handler) AddTeamMember(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return fail(c, err)
	}
	actor := actorOf(c)
	if err := policy.Authorize(actor, policy.ActionManageTeam, policy.Project(id, false)); err != nil {
		return fail(c, err)
	}
	userID, err := mapper.DecodeTeamMember(c.Body())
	if err != nil {
		return fail(c, err)
	}
	if err := h.store.AddTeamMember(c.UserContext(), id, userID); err != nil {
		return fail(c, err)
	}
	return h.teamChanged(c, id, "Team member added", zap.Int("user_id", userID))
}

func (h *Handler) RemoveTeamMember(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "project")
	if err != nil {
		return fail(c, err)
	}
	userID, err := paramID(c, "userId", "team member")
	if err != nil {
		return fail(c, err)
	}
	actor := actorOf(c)
	if err := policy.Authorize(actor, policy.ActionManageTeam, policy.Project(id, false)); err != nil {
		return fail(c, err)
	}
	if err := h.store.RemoveTeamMember(c.UserContext(), id, userID); err != nil {
		return fail(c, err)
	}
	return h.teamChanged(c, id, "Team member removed", zap.Int("user_id", userID))
}

func (h *Handler) teamChanged(c *fiber.Ctx, projectID int, message string, fields ...zap.Field) error {
	project, err := h.store.GetProject(c.UserContext(), projectID)
	if err != nil {
		return fail(c, err)
	}
	fields = append(fields, zap.Int("project_id", projectID), zap.Int("by", actorOf(c).ID))
	logger.AuditLogger.Info(message, fields...)
	h.events.Publish(websocket.Event{Type: websocket.EventUpdated, Entity: "project", ID: projectID, Project: projectID})
	return respond(c, fiber.StatusOK, message, mapper.ToProjectView(project))
}
