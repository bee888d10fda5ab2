package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskboard/internal/apperror"
	"taskboard/internal/models"
)

const userColumns = `id, username, password, first_name, last_name, email, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts u and fills its ID and timestamps. An empty role falls
// back to the default role.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.DefaultRole
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password, first_name, last_name, email, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Email, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return &apperror.ConflictError{Field: "username"}
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperror.NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername is used by the token issuer and returns the hash too.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperror.NotFoundError{Entity: "user"}
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser writes the profile fields and password hash of u. Role is
// changed only through SetUserRole.
func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	err := s.db.QueryRowContext(ctx,
		`UPDATE users
		 SET username = $1, password = $2, first_name = $3, last_name = $4, email = $5, updated_at = now()
		 WHERE id = $6
		 RETURNING updated_at`,
		u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Email, u.ID,
	).Scan(&u.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return &apperror.NotFoundError{Entity: "user", ID: u.ID}
	case pqCode(err) == pqUniqueViolation:
		return &apperror.ConflictError{Field: "username"}
	case err != nil:
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *Store) SetUserRole(ctx context.Context, id int, role models.Role) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = now() WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	return affectedOne(res, "user", id)
}

// DeleteUser removes the user in one transaction: every task assigned to
// the user is unassigned and the user leaves every project team. Tasks and
// projects are otherwise untouched, updated_at included.
func (s *Store) DeleteUser(ctx context.Context, id int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var locked int
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return &apperror.NotFoundError{Entity: "user", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET assignee_id = NULL WHERE assignee_id = $1`, id); err != nil {
			return fmt.Errorf("unassign tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM project_team WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("remove team memberships: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return affectedOne(res, "user", id)
	})
}
