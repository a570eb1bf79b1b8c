package workflow

import (
	"context"

	"github.com/google/uuid"

	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/models"
	"jobtrack/internal/policy"
)

// UserStore is the persistence surface for user records.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

// EmployeeInput carries the editable fields of a staff account.
type EmployeeInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (in EmployeeInput) validate() error {
	if in.Name == "" {
		return stderrors.NewValidationFailedError("employee name is required")
	}
	if in.Email == "" {
		return stderrors.NewValidationFailedError("employee email is required")
	}
	return nil
}

// EmployeeWorkflow manages HR staff accounts. Only admins hold this
// capability.
type EmployeeWorkflow struct {
	users  UserStore
	logger logger.Logger
}

func NewEmployeeWorkflow(users UserStore, log logger.Logger) *EmployeeWorkflow {
	return &EmployeeWorkflow{
		users:  users,
		logger: log.WithFields(map[string]interface{}{"component": "employee-workflow"}),
	}
}

// Create registers a new HR account.
func (w *EmployeeWorkflow) Create(ctx context.Context, actor models.User, in EmployeeInput) (*models.User, error) {
	if err := policy.Authorize(actor, policy.ActionManageEmployees, nil); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	employee := &models.User{
		ID:    uuid.NewString(),
		Name:  in.Name,
		Email: in.Email,
		Role:  models.RoleHR,
	}
	if err := w.users.Create(ctx, employee); err != nil {
		return nil, err
	}

	w.logger.Info("employee created", map[string]interface{}{
		"employeeId": employee.ID,
		"createdBy":  actor.ID,
	})
	return employee, nil
}

// Update edits an HR account.
func (w *EmployeeWorkflow) Update(ctx context.Context, actor models.User, id string, in EmployeeInput) (*models.User, error) {
	if err := policy.Authorize(actor, policy.ActionManageEmployees, nil); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	employee, err := w.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if employee.Role != models.RoleHR {
		return nil, stderrors.NewNotFoundError("employee", id)
	}

	employee.Name = in.Name
	employee.Email = in.Email
	if err := w.users.Update(ctx, employee); err != nil {
		return nil, err
	}
	return employee, nil
}

// Delete removes an HR account.
func (w *EmployeeWorkflow) Delete(ctx context.Context, actor models.User, id string) error {
	if err := policy.Authorize(actor, policy.ActionManageEmployees, nil); err != nil {
		return err
	}

	employee, err := w.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if employee.Role != models.RoleHR {
		return stderrors.NewNotFoundError("employee", id)
	}
	return w.users.Delete(ctx, id)
}

// Get returns one HR account.
func (w *EmployeeWorkflow) Get(ctx context.Context, actor models.User, id string) (*models.User, error) {
	if err := policy.Authorize(actor, policy.ActionManageEmployees, nil); err != nil {
		return nil, err
	}
	employee, err := w.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if employee.Role != models.RoleHR {
		return nil, stderrors.NewNotFoundError("employee", id)
	}
	return employee, nil
}

// List returns every HR account.
func (w *EmployeeWorkflow) List(ctx context.Context, actor models.User) ([]models.User, error) {
	if err := policy.Authorize(actor, policy.ActionManageEmployees, nil); err != nil {
		return nil, err
	}
	return w.users.ListByRole(ctx, models.RoleHR)
}
