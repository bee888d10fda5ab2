package mapper

import (
	"strings"
	"time"

	"taskboard/internal/models"
)

type ProjectView struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Team        []int     `json:"team"`
	Tasks       []int     `json:"tasks"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToProjectView(p *models.Project) ProjectView {
	team := p.Team
	if team == nil {
		team = []int{}
	}
	tasks := p.TaskIDs
	if tasks == nil {
		tasks = []int{}
	}
	return ProjectView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Team:        team,
		Tasks:       tasks,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ToProjectViews(projects []models.Project) []ProjectView {
	out := make([]ProjectView, 0, len(projects))
	for i := range projects {
		out = append(out, ToProjectView(&projects[i]))
	}
	return out
}

type ProjectCreate struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description"`
	Team        []int   `json:"team" validate:"omitempty,dive,gt=0,lte=2147483647"`
}

func (in *ProjectCreate) normalize() {
	in.Title = strings.TrimSpace(in.Title)
}

func DecodeProjectCreate(body []byte) (*ProjectCreate, error) {
	var in ProjectCreate
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (in *ProjectCreate) Project() *models.Project {
	return &models.Project{
		Title:       in.Title,
		Description: in.Description,
		Team:        dedupe(in.Team),
	}
}

// ProjectUpdate is partial. Description may be cleared with null; Team,
// when present, replaces the whole membership set.
type ProjectUpdate struct {
	Title       *string          `json:"title" validate:"omitnil,min=1,max=255"`
	Description Nullable[string] `json:"description"`
	Team        *[]int           `json:"team" validate:"omitnil,dive,gt=0,lte=2147483647"`
}

func (in *ProjectUpdate) normalize() {
	if in.Title != nil {
		s := strings.TrimSpace(*in.Title)
		in.Title = &s
	}
}

func DecodeProjectUpdate(body []byte) (*ProjectUpdate, error) {
	var in ProjectUpdate
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Apply copies present fields onto p and reports whether the team must be
// replaced.
func (in *ProjectUpdate) Apply(p *models.Project) (replaceTeam bool) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Description.Set {
		p.Description = in.Description.Ptr()
	}
	if in.Team != nil {
		p.Team = dedupe(*in.Team)
		return true
	}
	return false
}

type TeamMemberInput struct {
	UserID int `json:"user_id" validate:"required,gt=0,lte=2147483647"`
}

func DecodeTeamMember(body []byte) (int, error) {
	var in TeamMemberInput
	if err := decode(body, &in); err != nil {
		return 0, err
	}
	return in.UserID, nil
}

func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
