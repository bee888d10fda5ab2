package mapper

import (
	"strings"
	"time"

	"taskboard/internal/apperror"
	"taskboard/internal/models"
)

type TaskView struct {
	ID        int           `json:"id"`
	Title     string        `json:"title"`
	Project   int           `json:"project"`
	Assignee  *int          `json:"assignee"`
	Status    models.Status `json:"status"`
	Deadline  *string       `json:"deadline"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func ToTaskView(t *models.Task) TaskView {
	v := TaskView{
		ID:        t.ID,
		Title:     t.Title,
		Project:   t.ProjectID,
		Assignee:  t.AssigneeID,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Deadline != nil {
		d := t.Deadline.Format(DateLayout)
		v.Deadline = &d
	}
	return v
}

func ToTaskViews(tasks []models.Task) []TaskView {
	out := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		out = append(out, ToTaskView(&tasks[i]))
	}
	return out
}

func parseDate(s string) *time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &d
}

type TaskCreate struct {
	Title    string  `json:"title" validate:"required,max=255"`
	Project  int     `json:"project" validate:"required,gt=0,lte=2147483647"`
	Assignee *int    `json:"assignee" validate:"omitnil,gt=0,lte=2147483647"`
	Status   string  `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Deadline *string `json:"deadline" validate:"omitnil,datetime=2006-01-02"`
}

func (in *TaskCreate) normalize() {
	in.Title = strings.TrimSpace(in.Title)
}

func DecodeTaskCreate(body []byte) (*TaskCreate, error) {
	var in TaskCreate
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Task builds the entity to store. An empty status stays empty so the
// store applies the default.
func (in *TaskCreate) Task() *models.Task {
	t := &models.Task{
		Title:      in.Title,
		ProjectID:  in.Project,
		AssigneeID: in.Assignee,
		Status:     models.Status(in.Status),
	}
	if in.Deadline != nil {
		t.Deadline = parseDate(*in.Deadline)
	}
	return t
}

// TaskUpdate is partial. Assignee and deadline may be cleared with null.
// Project is accepted only when it names the task's current project.
type TaskUpdate struct {
	Title    *string          `json:"title" validate:"omitnil,min=1,max=255"`
	Project  *int             `json:"project"`
	Assignee Nullable[int]    `json:"assignee"`
	Status   *string          `json:"status" validate:"omitnil,oneof=TODO IN_PROGRESS DONE"`
	Deadline Nullable[string] `json:"deadline"`

	currentProject int
}

func (in *TaskUpdate) normalize() {
	if in.Title != nil {
		s := strings.TrimSpace(*in.Title)
		in.Title = &s
	}
}

func (in *TaskUpdate) check(verr *apperror.ValidationError) {
	if in.Project != nil && *in.Project != in.currentProject {
		verr.Add("project", "a task cannot be moved to another project")
	}
	if in.Assignee.Valid && in.Assignee.Value <= 0 {
		verr.Add("assignee", "must be a positive id")
	} else if in.Assignee.Valid && in.Assignee.Value > models.MaxID {
		verr.Add("assignee", "must be a valid id")
	}
	if in.Deadline.Valid && parseDate(in.Deadline.Value) == nil {
		verr.Add("deadline", "must be a date in YYYY-MM-DD format")
	}
}

// DecodeTaskUpdate validates a partial update against the task it targets.
func DecodeTaskUpdate(body []byte, current *models.Task) (*TaskUpdate, error) {
	in := TaskUpdate{currentProject: current.ProjectID}
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (in *TaskUpdate) Apply(t *models.Task) {
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Assignee.Set {
		t.AssigneeID = in.Assignee.Ptr()
	}
	if in.Status != nil {
		t.Status = models.Status(*in.Status)
	}
	if in.Deadline.Set {
		t.Deadline = nil
		if in.Deadline.Valid {
			t.Deadline = parseDate(in.Deadline.Value)
		}
	}
}
