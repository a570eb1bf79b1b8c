package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/internal/common/clock"
	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/models"
)

type fakeVacancyStore struct {
	vacancies map[string]*models.Vacancy
}

func newFakeVacancyStore() *fakeVacancyStore {
	return &fakeVacancyStore{vacancies: map[string]*models.Vacancy{}}
}

func (s *fakeVacancyStore) Create(_ context.Context, v *models.Vacancy) error {
	cp := *v
	s.vacancies[v.ID] = &cp
	return nil
}

func (s *fakeVacancyStore) FindByID(_ context.Context, id string) (*models.Vacancy, error) {
	v, ok := s.vacancies[id]
	if !ok {
		return nil, stderrors.NewNotFoundError("vacancy", id)
	}
	cp := *v
	return &cp, nil
}

func (s *fakeVacancyStore) Update(_ context.Context, v *models.Vacancy) error {
	if _, ok := s.vacancies[v.ID]; !ok {
		return stderrors.NewNotFoundError("vacancy", v.ID)
	}
	cp := *v
	s.vacancies[v.ID] = &cp
	return nil
}

func (s *fakeVacancyStore) Delete(_ context.Context, id string) error {
	if _, ok := s.vacancies[id]; !ok {
		return stderrors.NewNotFoundError("vacancy", id)
	}
	delete(s.vacancies, id)
	return nil
}

func (s *fakeVacancyStore) List(_ context.Context, openOnly bool) ([]models.Vacancy, error) {
	var out []models.Vacancy
	for _, v := range s.vacancies {
		if openOnly && v.Status != models.VacancyOpen {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

func newVacancyFixture(t *testing.T) (*VacancyWorkflow, *fakeVacancyStore) {
	t.Helper()
	store := newFakeVacancyStore()
	return NewVacancyWorkflow(store, clock.Fixed{T: testNow}, logger.NewTestLogger(t)), store
}

func TestVacancyCreateOpensNewPosting(t *testing.T) {
	wf, _ := newVacancyFixture(t)

	v, err := wf.Create(context.Background(), hrUser, VacancyInput{
		Title: "Backend Engineer", Location: "Berlin", Type: models.VacancyFullTime,
	})

	require.NoError(t, err)
	assert.Equal(t, models.VacancyOpen, v.Status)
	assert.Equal(t, hrUser.ID, v.CreatedBy)
}

func TestVacancyCreateForbiddenForApplicant(t *testing.T) {
	wf, _ := newVacancyFixture(t)

	_, err := wf.Create(context.Background(), applicant, VacancyInput{
		Title: "Backend Engineer", Type: models.VacancyFullTime,
	})

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeForbidden))
}

func TestVacancyCreateValidatesInput(t *testing.T) {
	wf, _ := newVacancyFixture(t)

	_, err := wf.Create(context.Background(), hrUser, VacancyInput{Type: models.VacancyFullTime})
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeValidationFailed))

	_, err = wf.Create(context.Background(), hrUser, VacancyInput{Title: "X", Type: "freelance"})
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeValidationFailed))
}

func TestVacancyCloseDoesNotTouchApplications(t *testing.T) {
	wf, store := newVacancyFixture(t)
	created, err := wf.Create(context.Background(), hrUser, VacancyInput{
		Title: "Backend Engineer", Type: models.VacancyFullTime,
	})
	require.NoError(t, err)

	v, err := wf.SetStatus(context.Background(), hrUser, created.ID, models.VacancyClosed)

	require.NoError(t, err)
	assert.Equal(t, models.VacancyClosed, v.Status)
	assert.Equal(t, models.VacancyClosed, store.vacancies[created.ID].Status)
}

func TestVacancyListScopedForApplicants(t *testing.T) {
	wf, store := newVacancyFixture(t)
	store.vacancies["open"] = &models.Vacancy{ID: "open", Title: "A", Status: models.VacancyOpen}
	store.vacancies["closed"] = &models.Vacancy{ID: "closed", Title: "B", Status: models.VacancyClosed}

	visible, err := wf.List(context.Background(), applicant)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := wf.List(context.Background(), hrUser)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestVacancyGetClosedHiddenFromApplicants(t *testing.T) {
	wf, store := newVacancyFixture(t)
	store.vacancies["closed"] = &models.Vacancy{ID: "closed", Title: "B", Status: models.VacancyClosed}

	_, err := wf.Get(context.Background(), applicant, "closed")
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeForbidden))

	v, err := wf.Get(context.Background(), hrUser, "closed")
	require.NoError(t, err)
	assert.Equal(t, "closed", v.ID)
}

type fakeUserStore struct {
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*models.User{}}
}

func (s *fakeUserStore) Create(_ context.Context, u *models.User) error {
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, stderrors.NewNotFoundError("user", id)
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) Update(_ context.Context, u *models.User) error {
	if _, ok := s.users[u.ID]; !ok {
		return stderrors.NewNotFoundError("user", u.ID)
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id string) error {
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) ListByRole(_ context.Context, role models.Role) ([]models.User, error) {
	var out []models.User
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func TestEmployeeManagementAdminOnly(t *testing.T) {
	store := newFakeUserStore()
	wf := NewEmployeeWorkflow(store, logger.NewTestLogger(t))

	_, err := wf.Create(context.Background(), hrUser, EmployeeInput{Name: "New", Email: "new@example.com"})
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeForbidden))

	created, err := wf.Create(context.Background(), adminUser, EmployeeInput{Name: "New", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleHR, created.Role)

	listed, err := wf.List(context.Background(), adminUser)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestEmployeeOperationsRejectNonHRAccounts(t *testing.T) {
	store := newFakeUserStore()
	store.users["user-9"] = &models.User{ID: "user-9", Name: "Regular", Role: models.RoleApplicant}
	wf := NewEmployeeWorkflow(store, logger.NewTestLogger(t))

	_, err := wf.Get(context.Background(), adminUser, "user-9")
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeNotFound))

	err = wf.Delete(context.Background(), adminUser, "user-9")
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeNotFound))
	assert.Contains(t, store.users, "user-9")
}
