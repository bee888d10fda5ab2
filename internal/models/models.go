package models

import (
	"math"
	"time"
)

// MaxID is the largest id a SERIAL column can hold.
const MaxID = math.MaxInt32

// ValidID reports whether id can name a stored row.
func ValidID(id int) bool {
	return id > 0 && id <= MaxID
}

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleManager   Role = "MANAGER"
	RoleDeveloper Role = "DEVELOPER"
)

// DefaultRole is assigned to every user created without an explicit role.
const DefaultRole = RoleDeveloper

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleDeveloper:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

const DefaultStatus = StatusTodo

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// User is the stored user row. PasswordHash never leaves the server;
// outward shapes live in the mapper package.
type User struct {
	ID           int
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Email        string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Project struct {
	ID          int
	Title       string
	Description *string
	Team        []int
	TaskIDs     []int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Task struct {
	ID         int
	Title      string
	ProjectID  int
	AssigneeID *int
	Status     Status
	Deadline   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
