package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"taskboard/internal/apperror"
	"taskboard/internal/models"
)

type TaskFilter struct {
	ProjectID  *int
	AssigneeID *int
	Status     *models.Status
}

const taskColumns = `id, title, project_id, assignee_id, status, deadline, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var (
		t        models.Task
		assignee sql.NullInt64
		deadline sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Title, &t.ProjectID, &assignee, &t.Status, &deadline, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if assignee.Valid {
		id := int(assignee.Int64)
		t.AssigneeID = &id
	}
	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
	}
	return &t, nil
}

// taskRefError turns a foreign key violation into a ReferenceError naming
// the offending field.
func taskRefError(err error, t *models.Task) error {
	if pqCode(err) != pqForeignKeyViolation {
		return nil
	}
	if constraintField(err) == "assignee" && t.AssigneeID != nil {
		return &apperror.ReferenceError{Field: "assignee", ID: *t.AssigneeID}
	}
	return &apperror.ReferenceError{Field: "project", ID: t.ProjectID}
}

func nullableDeadline(t *models.Task) any {
	if t.Deadline == nil {
		return nil
	}
	return t.Deadline.Format("2006-01-02")
}

// CreateTask inserts t. The project must exist; an empty status falls back
// to the default status.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	if t.Status == "" {
		t.Status = models.DefaultStatus
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO tasks (title, project_id, assignee_id, status, deadline)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		t.Title, t.ProjectID, t.AssigneeID, t.Status, nullableDeadline(t),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if refErr := taskRefError(err, t); refErr != nil {
			return refErr
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id int) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperror.NotFoundError{Entity: "task", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+" = $"+strconv.Itoa(len(args)))
	}
	if f.ProjectID != nil {
		add("project_id", *f.ProjectID)
	}
	if f.AssigneeID != nil {
		add("assignee_id", *f.AssigneeID)
	}
	if f.Status != nil {
		add("status", *f.Status)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask writes the mutable fields of t. project_id is never written:
// a task stays with the project it was created in.
func (s *Store) UpdateTask(ctx context.Context, t *models.Task) error {
	err := s.db.QueryRowContext(ctx,
		`UPDATE tasks
		 SET title = $1, assignee_id = $2, status = $3, deadline = $4, updated_at = now()
		 WHERE id = $5
		 RETURNING project_id, created_at, updated_at`,
		t.Title, t.AssigneeID, t.Status, nullableDeadline(t), t.ID,
	).Scan(&t.ProjectID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &apperror.NotFoundError{Entity: "task", ID: t.ID}
	}
	if err != nil {
		if refErr := taskRefError(err, t); refErr != nil {
			return refErr
		}
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affectedOne(res, "task", id)
}
