// Package repository owns all durable state. Every read goes to Postgres at
// call time; nothing here caches across calls.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/models"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// ApplicationRepository persists Application records.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, applicant_id, vacancy_id, cv_path, status, applied_at, created_at, updated_at`

func scanApplication(row interface {
	Scan(dest ...interface{}) error
}) (*models.Application, error) {
	var app models.Application
	err := row.Scan(
		&app.ID, &app.ApplicantID, &app.VacancyID, &app.CVPath,
		&app.Status, &app.AppliedAt, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// Create inserts a new application, enforcing the live-quota and the unique
// (applicant, vacancy) pair inside one transaction. An advisory lock keyed on
// the applicant serializes concurrent applies by the same user, so the count
// recheck cannot race; the unique constraint backstops the duplicate check.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, app.ApplicantID,
	); err != nil {
		return stderrors.NewPersistenceError(err)
	}

	var active int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM applications
		WHERE applicant_id = $1 AND status != $2`,
		app.ApplicantID, models.StatusRejected,
	).Scan(&active)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	if active >= models.MaxActiveApplications {
		return stderrors.NewQuotaExceededError(app.ApplicantID, active, models.MaxActiveApplications)
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications
			WHERE applicant_id = $1 AND vacancy_id = $2
		)`, app.ApplicantID, app.VacancyID,
	).Scan(&exists)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	if exists {
		return stderrors.NewDuplicateApplicationError(app.ApplicantID, app.VacancyID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applications (
			id, applicant_id, vacancy_id, cv_path, status, applied_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		app.ID, app.ApplicantID, app.VacancyID, app.CVPath,
		app.Status, app.AppliedAt, app.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return stderrors.NewDuplicateApplicationError(app.ApplicantID, app.VacancyID)
		}
		return stderrors.NewPersistenceError(err)
	}

	if err := tx.Commit(); err != nil {
		return stderrors.NewPersistenceError(err)
	}

	return nil
}

// FindByID loads one application.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1`, applicationColumns), id)

	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stderrors.NewNotFoundError("application", id)
		}
		return nil, stderrors.NewPersistenceError(err)
	}
	return app, nil
}

// UpdateStatus persists a status change.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE applications SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, updatedAt,
	)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return stderrors.NewNotFoundError("application", id)
	}
	return nil
}

// UpdateCVPath persists a replaced CV path.
func (r *ApplicationRepository) UpdateCVPath(ctx context.Context, id, cvPath string, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE applications SET cv_path = $2, updated_at = $3 WHERE id = $1`,
		id, cvPath, updatedAt,
	)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return stderrors.NewNotFoundError("application", id)
	}
	return nil
}

// Delete removes the application record.
func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return stderrors.NewPersistenceError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return stderrors.NewNotFoundError("application", id)
	}
	return nil
}

// CountNonRejectedByApplicant returns the applicant's live application count.
func (r *ApplicationRepository) CountNonRejectedByApplicant(ctx context.Context, applicantID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM applications
		WHERE applicant_id = $1 AND status != $2`,
		applicantID, models.StatusRejected,
	).Scan(&count)
	if err != nil {
		return 0, stderrors.NewPersistenceError(err)
	}
	return count, nil
}

// ExistsByApplicantAndVacancy reports whether the pair has ever applied,
// regardless of the prior application's status.
func (r *ApplicationRepository) ExistsByApplicantAndVacancy(ctx context.Context, applicantID, vacancyID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications
			WHERE applicant_id = $1 AND vacancy_id = $2
		)`, applicantID, vacancyID,
	).Scan(&exists)
	if err != nil {
		return false, stderrors.NewPersistenceError(err)
	}
	return exists, nil
}

// FindStaleApplied returns applications still in applied status whose
// applied_at is at or before the cutoff.
func (r *ApplicationRepository) FindStaleApplied(ctx context.Context, cutoff time.Time) ([]models.Application, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`
			SELECT %s FROM applications
			WHERE status = $1 AND applied_at <= $2
			ORDER BY applied_at`, applicationColumns),
		models.StatusApplied, cutoff,
	)
	if err != nil {
		return nil, stderrors.NewPersistenceError(err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, stderrors.NewPersistenceError(err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewPersistenceError(err)
	}
	return apps, nil
}

// List returns applications, optionally filtered by status.
func (r *ApplicationRepository) List(ctx context.Context, status models.Status) ([]models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications`, applicationColumns)
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	return r.queryApplications(ctx, query, args...)
}

// ListByApplicant returns the applicant's own applications, optionally
// filtered by status.
func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantID string, status models.Status) ([]models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE applicant_id = $1`, applicationColumns)
	args := []interface{}{applicantID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	return r.queryApplications(ctx, query, args...)
}

func (r *ApplicationRepository) queryApplications(ctx context.Context, query string, args ...interface{}) ([]models.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, stderrors.NewPersistenceError(err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, stderrors.NewPersistenceError(err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewPersistenceError(err)
	}
	return apps, nil
}
