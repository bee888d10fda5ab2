package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskboard/internal/apperror"
	"taskboard/internal/models"
)

// ProjectFilter narrows ListProjects. A nil MemberID lists every project.
type ProjectFilter struct {
	MemberID *int
}

// CreateProject inserts p together with its initial team in one transaction.
func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO projects (title, description) VALUES ($1, $2)
			 RETURNING id, created_at, updated_at`,
			p.Title, p.Description,
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		for _, uid := range p.Team {
			if err := insertTeamRow(ctx, tx, p.ID, uid); err != nil {
				return err
			}
		}
		return loadProjectRelations(ctx, tx, p)
	})
	return err
}

func insertTeamRow(ctx context.Context, q queryer, projectID, userID int) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO project_team (project_id, user_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, projectID, userID)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			if constraintField(err) == "project" {
				return &apperror.NotFoundError{Entity: "project", ID: projectID}
			}
			return &apperror.ReferenceError{Field: "team", ID: userID}
		}
		return fmt.Errorf("insert team member: %w", err)
	}
	return nil
}

func loadProjectRelations(ctx context.Context, q queryer, p *models.Project) error {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id FROM project_team WHERE project_id = $1 ORDER BY user_id`, p.ID)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}
	if p.Team, err = scanIDs(rows); err != nil {
		return fmt.Errorf("scan team: %w", err)
	}

	rows, err = q.QueryContext(ctx,
		`SELECT id FROM tasks WHERE project_id = $1 ORDER BY id`, p.ID)
	if err != nil {
		return fmt.Errorf("load task ids: %w", err)
	}
	if p.TaskIDs, err = scanIDs(rows); err != nil {
		return fmt.Errorf("scan task ids: %w", err)
	}
	return nil
}

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	var (
		p    models.Project
		desc sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Title, &desc, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	return &p, nil
}

func (s *Store) GetProject(ctx context.Context, id int) (*models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		`SELECT id, title, description, created_at, updated_at FROM projects WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperror.NotFoundError{Entity: "project", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if err := loadProjectRelations(ctx, s.db, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	query := `SELECT id, title, description, created_at, updated_at FROM projects`
	var args []any
	if f.MemberID != nil {
		query += ` WHERE id IN (SELECT project_id FROM project_team WHERE user_id = $1)`
		args = append(args, *f.MemberID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range projects {
		if err := loadProjectRelations(ctx, s.db, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// UpdateProject writes title and description and refreshes updated_at.
// With replaceTeam set, the membership becomes exactly p.Team in the same
// transaction.
func (s *Store) UpdateProject(ctx context.Context, p *models.Project, replaceTeam bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`UPDATE projects SET title = $1, description = $2, updated_at = now()
			 WHERE id = $3 RETURNING created_at, updated_at`,
			p.Title, p.Description, p.ID,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return &apperror.NotFoundError{Entity: "project", ID: p.ID}
		}
		if err != nil {
			return fmt.Errorf("update project: %w", err)
		}
		if replaceTeam {
			if _, err := tx.ExecContext(ctx, `DELETE FROM project_team WHERE project_id = $1`, p.ID); err != nil {
				return fmt.Errorf("clear team: %w", err)
			}
			for _, uid := range p.Team {
				if err := insertTeamRow(ctx, tx, p.ID, uid); err != nil {
					return err
				}
			}
		}
		return loadProjectRelations(ctx, tx, p)
	})
}

// DeleteProject deletes the project and every task it owns in one
// transaction. Either all of it is gone or nothing changed.
func (s *Store) DeleteProject(ctx context.Context, id int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var locked int
		err := tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return &apperror.NotFoundError{Entity: "project", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock project: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = $1`, id); err != nil {
			return fmt.Errorf("delete project tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM project_team WHERE project_id = $1`, id); err != nil {
			return fmt.Errorf("delete project team: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return affectedOne(res, "project", id)
	})
}

// AddTeamMember is idempotent. A change to the team counts as a project
// mutation and refreshes updated_at.
func (s *Store) AddTeamMember(ctx context.Context, projectID, userID int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := touchProject(ctx, tx, projectID); err != nil {
			return err
		}
		if err := insertTeamRow(ctx, tx, projectID, userID); err != nil {
			var ref *apperror.ReferenceError
			if errors.As(err, &ref) {
				ref.Field = "user_id"
			}
			return err
		}
		return nil
	})
}

func (s *Store) RemoveTeamMember(ctx context.Context, projectID, userID int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := touchProject(ctx, tx, projectID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM project_team WHERE project_id = $1 AND user_id = $2`, projectID, userID)
		if err != nil {
			return fmt.Errorf("remove team member: %w", err)
		}
		return affectedOne(res, "team member", userID)
	})
}

func (s *Store) IsTeamMember(ctx context.Context, projectID, userID int) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM project_team WHERE project_id = $1 AND user_id = $2)`,
		projectID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check team member: %w", err)
	}
	return ok, nil
}

func touchProject(ctx context.Context, q queryer, id int) error {
	res, err := q.ExecContext(ctx, `UPDATE projects SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return affectedOne(res, "project", id)
}
