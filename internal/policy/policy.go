// Package policy centralizes role- and ownership-based authorization in a
// single capability table so the whole matrix is auditable in one place.
package policy

import (
	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/models"
)

// Action identifies an operation subject to authorization.
type Action string

const (
	ActionListApplications  Action = "applications.list"
	ActionViewApplication   Action = "applications.view"
	ActionCreateApplication Action = "applications.create"
	ActionUpdateCV          Action = "applications.update_cv"
	ActionChangeStatus      Action = "applications.change_status"
	ActionDeleteApplication Action = "applications.delete"
	ActionManageVacancies   Action = "vacancies.manage"
	ActionViewVacancy       Action = "vacancies.view"
	ActionManageEmployees   Action = "employees.manage"
)

// rule decides one (action, role) cell, optionally inspecting the resource.
type rule func(actor models.User, res interface{}) bool

func allow(models.User, interface{}) bool { return true }

func deny(models.User, interface{}) bool { return false }

// ownApplication permits the owning applicant only.
func ownApplication(actor models.User, res interface{}) bool {
	app, ok := res.(*models.Application)
	return ok && app.ApplicantID == actor.ID
}

// ownAppliedApplication permits the owner only while the CV mutability
// window is open (status still applied).
func ownAppliedApplication(actor models.User, res interface{}) bool {
	app, ok := res.(*models.Application)
	return ok && app.ApplicantID == actor.ID && app.Status == models.StatusApplied
}

// openVacancy permits viewing open postings; a nil resource means a listing
// request, which the workflow scopes to open vacancies for applicants.
func openVacancy(_ models.User, res interface{}) bool {
	if res == nil {
		return true
	}
	vac, ok := res.(*models.Vacancy)
	return ok && vac.Status == models.VacancyOpen
}

// capabilities is the full authorization matrix. A missing cell is a denial.
// Admin is deliberately denied application creation: staff do not apply.
var capabilities = map[Action]map[models.Role]rule{
	ActionListApplications: {
		models.RoleAdmin:     allow,
		models.RoleHR:        allow,
		models.RoleApplicant: allow, // scoped to own records by the workflow
	},
	ActionViewApplication: {
		models.RoleAdmin:     allow,
		models.RoleHR:        allow,
		models.RoleApplicant: ownApplication,
	},
	ActionCreateApplication: {
		models.RoleAdmin:     deny,
		models.RoleHR:        deny,
		models.RoleApplicant: allow,
	},
	ActionUpdateCV: {
		models.RoleAdmin:     deny,
		models.RoleHR:        deny,
		models.RoleApplicant: ownAppliedApplication,
	},
	ActionChangeStatus: {
		models.RoleAdmin:     allow,
		models.RoleHR:        allow,
		models.RoleApplicant: deny,
	},
	ActionDeleteApplication: {
		models.RoleAdmin:     allow,
		models.RoleHR:        deny,
		models.RoleApplicant: ownAppliedApplication,
	},
	ActionManageVacancies: {
		models.RoleAdmin:     allow,
		models.RoleHR:        allow,
		models.RoleApplicant: deny,
	},
	ActionViewVacancy: {
		models.RoleAdmin:     allow,
		models.RoleHR:        allow,
		models.RoleApplicant: openVacancy,
	},
	ActionManageEmployees: {
		models.RoleAdmin:     allow,
		models.RoleHR:        deny,
		models.RoleApplicant: deny,
	},
}

// Authorize evaluates the capability table for one action. A denial is
// terminal and non-retryable.
func Authorize(actor models.User, action Action, res interface{}) error {
	roleRules, ok := capabilities[action]
	if !ok {
		return stderrors.NewForbiddenError(string(action))
	}

	r, ok := roleRules[actor.Role]
	if !ok || !r(actor, res) {
		return stderrors.NewForbiddenError(string(action))
	}

	return nil
}
