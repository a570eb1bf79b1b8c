package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/models"
)

// VacancyRepository persists Vacancy records.
type VacancyRepository struct {
	db *sql.DB
}

func NewVacancyRepository(db *sql.DB) *VacancyRepository {
	return &VacancyRepository{db: db}
}

const vacancyColumns = `id, title, description, location, type, status, created_by, created_at, updated_at`

func scanVacancy(row interface {
	Scan(dest ...interface{}) error
}) (*models.Vacancy, error) {
	var v models.Vacancy
	err := row.Scan(
		&v.ID, &v.Title, &v.Description, &v.Location,
		&v.Type, &v.Status, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VacancyRepository) Create(ctx context.Context, v *models.Vacancy) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vacancies (
			id, title, description, location, type, status, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		v.ID, v.Title, v.Description, v.Location, v.Type, v.Status, v.CreatedBy, v.CreatedAt,
	)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	return nil
}

func (r *VacancyRepository) FindByID(ctx context.Context, id string) (*models.Vacancy, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM vacancies WHERE id = $1`, vacancyColumns), id)

	v, err := scanVacancy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stderrors.NewNotFoundError("vacancy", id)
		}
		return nil, stderrors.NewPersistenceError(err)
	}
	return v, nil
}

func (r *VacancyRepository) Update(ctx context.Context, v *models.Vacancy) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE vacancies
		SET title = $2, description = $3, location = $4, type = $5, status = $6, updated_at = $7
		WHERE id = $1`,
		v.ID, v.Title, v.Description, v.Location, v.Type, v.Status, v.UpdatedAt,
	)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return stderrors.NewNotFoundError("vacancy", v.ID)
	}
	return nil
}

func (r *VacancyRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vacancies WHERE id = $1`, id)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return stderrors.NewNotFoundError("vacancy", id)
	}
	return nil
}

// List returns every vacancy; openOnly restricts to open postings.
func (r *VacancyRepository) List(ctx context.Context, openOnly bool) ([]models.Vacancy, error) {
	query := fmt.Sprintf(`SELECT %s FROM vacancies`, vacancyColumns)
	args := []interface{}{}
	if openOnly {
		query += ` WHERE status = $1`
		args = append(args, models.VacancyOpen)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, stderrors.NewPersistenceError(err)
	}
	defer rows.Close()

	var vacancies []models.Vacancy
	for rows.Next() {
		v, err := scanVacancy(rows)
		if err != nil {
			return nil, stderrors.NewPersistenceError(err)
		}
		vacancies = append(vacancies, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewPersistenceError(err)
	}
	return vacancies, nil
}
