package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/models"
)

// UserRepository persists User records: applicants and hr/admin staff alike.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, role`

func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Name, u.Email, u.Role,
	)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns), id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stderrors.NewNotFoundError("user", id)
		}
		return nil, stderrors.NewPersistenceError(err)
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2, email = $3 WHERE id = $1`,
		u.ID, u.Name, u.Email,
	)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return stderrors.NewNotFoundError("user", u.ID)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return stderrors.NewNotFoundError("user", id)
	}
	return nil
}

// ListByRole returns users holding the given role.
func (r *UserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE role = $1 ORDER BY name`, userColumns), role)
	if err != nil {
		return nil, stderrors.NewPersistenceError(err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, stderrors.NewPersistenceError(err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewPersistenceError(err)
	}
	return users, nil
}
