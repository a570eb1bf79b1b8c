// Package workflow holds the business rules for applications, vacancies and
// employees. Handlers stay thin; everything a rule depends on lives here.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobtrack/internal/common/clock"
	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/storage"
	"jobtrack/internal/models"
	"jobtrack/internal/policy"
	"jobtrack/internal/status"
)

const cvContentType = "application/pdf"

// ApplicationStore is the persistence surface the workflow needs. The
// Postgres repository satisfies it.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	UpdateStatus(ctx context.Context, id string, s models.Status, updatedAt time.Time) error
	UpdateCVPath(ctx context.Context, id, cvPath string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	CountNonRejectedByApplicant(ctx context.Context, applicantID string) (int, error)
	ExistsByApplicantAndVacancy(ctx context.Context, applicantID, vacancyID string) (bool, error)
	List(ctx context.Context, s models.Status) ([]models.Application, error)
	ListByApplicant(ctx context.Context, applicantID string, s models.Status) ([]models.Application, error)
}

// VacancyReader resolves the posting being applied to.
type VacancyReader interface {
	FindByID(ctx context.Context, id string) (*models.Vacancy, error)
}

// Publisher announces committed status changes.
type Publisher interface {
	Publish(ctx context.Context, fact models.StatusChanged)
}

// Enqueuer hands deferred work to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload interface{}) error
}

// ApplicationWorkflow implements the application lifecycle.
type ApplicationWorkflow struct {
	apps           ApplicationStore
	vacancies      VacancyReader
	files          storage.FileStore
	machine        *status.Machine
	publisher      Publisher
	enqueuer       Enqueuer
	clock          clock.Clock
	maxUploadBytes int64
	logger         logger.Logger
}

func NewApplicationWorkflow(
	apps ApplicationStore,
	vacancies VacancyReader,
	files storage.FileStore,
	machine *status.Machine,
	publisher Publisher,
	enqueuer Enqueuer,
	clk clock.Clock,
	maxUploadBytes int64,
	log logger.Logger,
) *ApplicationWorkflow {
	return &ApplicationWorkflow{
		apps:           apps,
		vacancies:      vacancies,
		files:          files,
		machine:        machine,
		publisher:      publisher,
		enqueuer:       enqueuer,
		clock:          clk,
		maxUploadBytes: maxUploadBytes,
		logger:         log.WithFields(map[string]interface{}{"component": "application-workflow"}),
	}
}

func (w *ApplicationWorkflow) validateCV(data []byte, contentType string) error {
	if contentType != cvContentType {
		return stderrors.NewValidationFailedError("cv must be a PDF document")
	}
	if len(data) == 0 {
		return stderrors.NewValidationFailedError("cv file is empty")
	}
	if int64(len(data)) > w.maxUploadBytes {
		return stderrors.NewValidationFailedError(fmt.Sprintf("cv exceeds the %d byte upload limit", w.maxUploadBytes))
	}
	return nil
}

// Apply submits a new application for the actor against a vacancy. The
// per-applicant quota and the one-application-per-vacancy rule are both
// pre-checked here and enforced authoritatively inside the repository's
// locked transaction.
func (w *ApplicationWorkflow) Apply(ctx context.Context, actor models.User, vacancyID string, cv []byte, contentType string) (*models.Application, error) {
	if err := policy.Authorize(actor, policy.ActionCreateApplication, nil); err != nil {
		return nil, err
	}
	if err := w.validateCV(cv, contentType); err != nil {
		return nil, err
	}

	vacancy, err := w.vacancies.FindByID(ctx, vacancyID)
	if err != nil {
		return nil, err
	}
	if vacancy.Status != models.VacancyOpen {
		return nil, stderrors.NewValidationFailedError("vacancy is no longer open for applications")
	}

	// Cheap pre-checks so common rejections never touch object storage.
	active, err := w.apps.CountNonRejectedByApplicant(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if active >= models.MaxActiveApplications {
		return nil, stderrors.NewQuotaExceededError(actor.ID, active, models.MaxActiveApplications)
	}

	exists, err := w.apps.ExistsByApplicantAndVacancy(ctx, actor.ID, vacancyID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, stderrors.NewDuplicateApplicationError(actor.ID, vacancyID)
	}

	cvPath, err := w.files.Store(ctx, cv, contentType)
	if err != nil {
		return nil, storageError(err)
	}

	now := w.clock.Now()
	app := &models.Application{
		ID:          uuid.NewString(),
		ApplicantID: actor.ID,
		VacancyID:   vacancyID,
		CVPath:      cvPath,
		Status:      models.StatusApplied,
		AppliedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := w.apps.Create(ctx, app); err != nil {
		// The record never existed, so the stored file is an orphan.
		w.scheduleFileDelete(ctx, cvPath)
		return nil, err
	}

	w.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"applicantId":   actor.ID,
		"vacancyId":     vacancyID,
	})
	return app, nil
}

// UpdateCV replaces the stored CV. The old file is removed asynchronously
// after the new path has been committed.
func (w *ApplicationWorkflow) UpdateCV(ctx context.Context, actor models.User, applicationID string, cv []byte, contentType string) (*models.Application, error) {
	app, err := w.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(actor, policy.ActionUpdateCV, app); err != nil {
		if app.ApplicantID == actor.ID && app.Status != models.StatusApplied {
			return nil, stderrors.NewInvalidStateError("cv can only be replaced while the application is still in applied status")
		}
		return nil, err
	}

	if err := w.validateCV(cv, contentType); err != nil {
		return nil, err
	}

	newPath, err := w.files.Store(ctx, cv, contentType)
	if err != nil {
		return nil, storageError(err)
	}

	oldPath := app.CVPath
	now := w.clock.Now()
	if err := w.apps.UpdateCVPath(ctx, app.ID, newPath, now); err != nil {
		w.scheduleFileDelete(ctx, newPath)
		return nil, err
	}

	w.scheduleFileDelete(ctx, oldPath)

	app.CVPath = newPath
	app.UpdatedAt = now
	w.logger.Info("cv replaced", map[string]interface{}{
		"applicationId": app.ID,
		"applicantId":   app.ApplicantID,
	})
	return app, nil
}

// ChangeStatus moves an application through its lifecycle. Requesting the
// current status on a non-terminal application is a no-op success; every
// real change is committed first and announced afterwards.
func (w *ApplicationWorkflow) ChangeStatus(ctx context.Context, actor models.User, applicationID string, requested models.Status) (*models.Application, error) {
	app, err := w.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(actor, policy.ActionChangeStatus, app); err != nil {
		return nil, err
	}

	if err := w.machine.CanTransition(app.Status, requested); err != nil {
		return nil, err
	}
	if w.machine.IsNoOp(app.Status, requested) {
		return app, nil
	}

	now := w.clock.Now()
	if err := w.apps.UpdateStatus(ctx, app.ID, requested, now); err != nil {
		return nil, err
	}

	fact := models.StatusChanged{
		ApplicationID: app.ID,
		OldStatus:     app.Status,
		NewStatus:     requested,
		OccurredAt:    now,
	}

	app.Status = requested
	app.UpdatedAt = now

	w.logger.Info("status changed", map[string]interface{}{
		"applicationId": app.ID,
		"oldStatus":     fact.OldStatus,
		"newStatus":     fact.NewStatus,
		"changedBy":     actor.ID,
	})
	w.publisher.Publish(ctx, fact)

	return app, nil
}

// Delete removes an application record and schedules removal of its CV file.
func (w *ApplicationWorkflow) Delete(ctx context.Context, actor models.User, applicationID string) error {
	app, err := w.apps.FindByID(ctx, applicationID)
	if err != nil {
		return err
	}

	if err := policy.Authorize(actor, policy.ActionDeleteApplication, app); err != nil {
		return err
	}

	if err := w.apps.Delete(ctx, app.ID); err != nil {
		return err
	}

	w.scheduleFileDelete(ctx, app.CVPath)
	w.logger.Info("application deleted", map[string]interface{}{
		"applicationId": app.ID,
		"deletedBy":     actor.ID,
	})
	return nil
}

// Get returns one application, subject to ownership rules.
func (w *ApplicationWorkflow) Get(ctx context.Context, actor models.User, applicationID string) (*models.Application, error) {
	app, err := w.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionViewApplication, app); err != nil {
		return nil, err
	}
	return app, nil
}

// List returns applications, optionally filtered by status. Applicants only
// ever see their own.
func (w *ApplicationWorkflow) List(ctx context.Context, actor models.User, statusFilter models.Status) ([]models.Application, error) {
	if err := policy.Authorize(actor, policy.ActionListApplications, nil); err != nil {
		return nil, err
	}
	if statusFilter != "" && !statusFilter.Valid() {
		return nil, stderrors.NewValidationFailedError(fmt.Sprintf("unknown status filter %q", statusFilter))
	}
	if actor.Role == models.RoleApplicant {
		return w.apps.ListByApplicant(ctx, actor.ID, statusFilter)
	}
	return w.apps.List(ctx, statusFilter)
}

// storageError tags file-store failures with the storage code. Errors that
// already carry a code pass through untouched.
func storageError(err error) error {
	if stderrors.CodeOf(err) != "" {
		return err
	}
	return stderrors.NewStorageError(err)
}

func (w *ApplicationWorkflow) scheduleFileDelete(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := w.enqueuer.Enqueue(ctx, TaskKindFileDelete, FileDeleteTask{Path: path}); err != nil {
		// The record change already committed; an orphaned file is the
		// acceptable failure mode.
		w.logger.Error("failed to schedule file deletion", map[string]interface{}{
			"path":  path,
			"error": err,
		})
	}
}
