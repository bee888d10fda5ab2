// Package policy decides whether an authenticated actor may perform an
// action on a resource. It holds no state; callers resolve team membership
// and assignment before asking.
package policy

import (
	"taskboard/internal/apperror"
	"taskboard/internal/models"
)

type Action string

const (
	ActionRead       Action = "read"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionManageTeam Action = "manage team of"
	ActionChangeRole Action = "change role of"
)

type Kind string

const (
	KindUser    Kind = "user"
	KindProject Kind = "project"
	KindTask    Kind = "task"
)

type Actor struct {
	ID   int
	Role models.Role
}

// Resource describes the target together with the actor's relationship to
// it. OnTeam refers to the project itself or, for a task, its project.
type Resource struct {
	Kind     Kind
	ID       int
	OnTeam   bool
	Assigned bool
}

func User(id int) Resource { return Resource{Kind: KindUser, ID: id} }

func Project(id int, onTeam bool) Resource {
	return Resource{Kind: KindProject, ID: id, OnTeam: onTeam}
}

func Task(id int, onTeam, assigned bool) Resource {
	return Resource{Kind: KindTask, ID: id, OnTeam: onTeam, Assigned: assigned}
}

// Authorize returns nil when actor may perform action on r, otherwise a
// *apperror.ForbiddenError.
func Authorize(actor Actor, action Action, r Resource) error {
	if allowed(actor, action, r) {
		return nil
	}
	return &apperror.ForbiddenError{Action: string(action) + " " + string(r.Kind)}
}

func allowed(actor Actor, action Action, r Resource) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	if action == ActionRead {
		return true
	}
	manager := actor.Role == models.RoleManager

	switch r.Kind {
	case KindUser:
		switch action {
		case ActionUpdate, ActionDelete:
			return actor.ID == r.ID
		}
		return false
	case KindProject:
		switch action {
		case ActionCreate:
			return true
		case ActionUpdate:
			return manager || r.OnTeam
		case ActionDelete, ActionManageTeam:
			return manager
		}
		return false
	case KindTask:
		switch action {
		case ActionCreate, ActionDelete:
			return manager || r.OnTeam
		case ActionUpdate:
			return manager || r.OnTeam || r.Assigned
		}
		return false
	}
	return false
}
