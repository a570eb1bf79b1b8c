package workflow

import (
	"context"

	"github.com/google/uuid"

	"jobtrack/internal/common/clock"
	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/models"
	"jobtrack/internal/policy"
)

// VacancyStore is the persistence surface for postings.
type VacancyStore interface {
	Create(ctx context.Context, v *models.Vacancy) error
	FindByID(ctx context.Context, id string) (*models.Vacancy, error)
	Update(ctx context.Context, v *models.Vacancy) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, openOnly bool) ([]models.Vacancy, error)
}

// VacancyInput carries the editable fields of a posting.
type VacancyInput struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Location    string             `json:"location"`
	Type        models.VacancyType `json:"type"`
}

func (in VacancyInput) validate() error {
	if in.Title == "" {
		return stderrors.NewValidationFailedError("vacancy title is required")
	}
	if !in.Type.Valid() {
		return stderrors.NewValidationFailedError("unknown vacancy type")
	}
	return nil
}

// VacancyWorkflow implements posting management.
type VacancyWorkflow struct {
	vacancies VacancyStore
	clock     clock.Clock
	logger    logger.Logger
}

func NewVacancyWorkflow(vacancies VacancyStore, clk clock.Clock, log logger.Logger) *VacancyWorkflow {
	return &VacancyWorkflow{
		vacancies: vacancies,
		clock:     clk,
		logger:    log.WithFields(map[string]interface{}{"component": "vacancy-workflow"}),
	}
}

// Create opens a new posting.
func (w *VacancyWorkflow) Create(ctx context.Context, actor models.User, in VacancyInput) (*models.Vacancy, error) {
	if err := policy.Authorize(actor, policy.ActionManageVacancies, nil); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := w.clock.Now()
	vacancy := &models.Vacancy{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Type:        in.Type,
		Status:      models.VacancyOpen,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.vacancies.Create(ctx, vacancy); err != nil {
		return nil, err
	}

	w.logger.Info("vacancy created", map[string]interface{}{
		"vacancyId": vacancy.ID,
		"createdBy": actor.ID,
	})
	return vacancy, nil
}

// Update edits a posting's details.
func (w *VacancyWorkflow) Update(ctx context.Context, actor models.User, id string, in VacancyInput) (*models.Vacancy, error) {
	if err := policy.Authorize(actor, policy.ActionManageVacancies, nil); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	vacancy, err := w.vacancies.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	vacancy.Title = in.Title
	vacancy.Description = in.Description
	vacancy.Location = in.Location
	vacancy.Type = in.Type
	vacancy.UpdatedAt = w.clock.Now()

	if err := w.vacancies.Update(ctx, vacancy); err != nil {
		return nil, err
	}
	return vacancy, nil
}

// SetStatus opens or closes a posting. Closing never touches the
// applications already filed against it.
func (w *VacancyWorkflow) SetStatus(ctx context.Context, actor models.User, id string, vs models.VacancyStatus) (*models.Vacancy, error) {
	if err := policy.Authorize(actor, policy.ActionManageVacancies, nil); err != nil {
		return nil, err
	}
	if !vs.Valid() {
		return nil, stderrors.NewValidationFailedError("unknown vacancy status")
	}

	vacancy, err := w.vacancies.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	vacancy.Status = vs
	vacancy.UpdatedAt = w.clock.Now()
	if err := w.vacancies.Update(ctx, vacancy); err != nil {
		return nil, err
	}

	w.logger.Info("vacancy status set", map[string]interface{}{
		"vacancyId": vacancy.ID,
		"status":    vs,
		"changedBy": actor.ID,
	})
	return vacancy, nil
}

// Delete removes a posting.
func (w *VacancyWorkflow) Delete(ctx context.Context, actor models.User, id string) error {
	if err := policy.Authorize(actor, policy.ActionManageVacancies, nil); err != nil {
		return err
	}
	return w.vacancies.Delete(ctx, id)
}

// Get returns one posting. Applicants may only see open postings.
func (w *VacancyWorkflow) Get(ctx context.Context, actor models.User, id string) (*models.Vacancy, error) {
	vacancy, err := w.vacancies.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionViewVacancy, vacancy); err != nil {
		return nil, err
	}
	return vacancy, nil
}

// List returns postings, scoped to open ones for applicants.
func (w *VacancyWorkflow) List(ctx context.Context, actor models.User) ([]models.Vacancy, error) {
	if err := policy.Authorize(actor, policy.ActionViewVacancy, nil); err != nil {
		return nil, err
	}
	return w.vacancies.List(ctx, actor.Role == models.RoleApplicant)
}
