package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/internal/common/clock"
	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/models"
	"jobtrack/internal/status"
)

var (
	applicant = models.User{ID: "user-1", Name: "Alice", Email: "alice@example.com", Role: models.RoleApplicant}
	hrUser    = models.User{ID: "hr-1", Name: "Hanna", Email: "hanna@example.com", Role: models.RoleHR}
	adminUser = models.User{ID: "admin-1", Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin}

	testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
)

type fakeAppStore struct {
	apps      map[string]*models.Application
	createErr error
	updateErr error
}

func newFakeAppStore() *fakeAppStore {
	return &fakeAppStore{apps: map[string]*models.Application{}}
}

func (s *fakeAppStore) Create(_ context.Context, app *models.Application) error {
	if s.createErr != nil {
		return s.createErr
	}
	cp := *app
	s.apps[app.ID] = &cp
	return nil
}

func (s *fakeAppStore) FindByID(_ context.Context, id string) (*models.Application, error) {
	app, ok := s.apps[id]
	if !ok {
		return nil, stderrors.NewNotFoundError("application", id)
	}
	cp := *app
	return &cp, nil
}

func (s *fakeAppStore) UpdateStatus(_ context.Context, id string, st models.Status, updatedAt time.Time) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	app, ok := s.apps[id]
	if !ok {
		return stderrors.NewNotFoundError("application", id)
	}
	app.Status = st
	app.UpdatedAt = updatedAt
	return nil
}

func (s *fakeAppStore) UpdateCVPath(_ context.Context, id, cvPath string, updatedAt time.Time) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	app, ok := s.apps[id]
	if !ok {
		return stderrors.NewNotFoundError("application", id)
	}
	app.CVPath = cvPath
	app.UpdatedAt = updatedAt
	return nil
}

func (s *fakeAppStore) Delete(_ context.Context, id string) error {
	if _, ok := s.apps[id]; !ok {
		return stderrors.NewNotFoundError("application", id)
	}
	delete(s.apps, id)
	return nil
}

func (s *fakeAppStore) CountNonRejectedByApplicant(_ context.Context, applicantID string) (int, error) {
	n := 0
	for _, app := range s.apps {
		if app.ApplicantID == applicantID && app.Status != models.StatusRejected {
			n++
		}
	}
	return n, nil
}

func (s *fakeAppStore) ExistsByApplicantAndVacancy(_ context.Context, applicantID, vacancyID string) (bool, error) {
	for _, app := range s.apps {
		if app.ApplicantID == applicantID && app.VacancyID == vacancyID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeAppStore) List(_ context.Context, st models.Status) ([]models.Application, error) {
	var out []models.Application
	for _, app := range s.apps {
		if st == "" || app.Status == st {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (s *fakeAppStore) ListByApplicant(_ context.Context, applicantID string, st models.Status) ([]models.Application, error) {
	var out []models.Application
	for _, app := range s.apps {
		if app.ApplicantID != applicantID {
			continue
		}
		if st == "" || app.Status == st {
			out = append(out, *app)
		}
	}
	return out, nil
}

type fakeVacancyReader struct {
	vacancies map[string]*models.Vacancy
}

func (f *fakeVacancyReader) FindByID(_ context.Context, id string) (*models.Vacancy, error) {
	v, ok := f.vacancies[id]
	if !ok {
		return nil, stderrors.NewNotFoundError("vacancy", id)
	}
	return v, nil
}

type fakeFileStore struct {
	stored   []string
	deleted  []string
	storeErr error
	seq      int
}

func (f *fakeFileStore) Store(_ context.Context, _ []byte, _ string) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.seq++
	path := fmt.Sprintf("cv/file-%d.pdf", f.seq)
	f.stored = append(f.stored, path)
	return path, nil
}

func (f *fakeFileStore) Delete(_ context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

type fakePublisher struct {
	facts []models.StatusChanged
}

func (p *fakePublisher) Publish(_ context.Context, fact models.StatusChanged) {
	p.facts = append(p.facts, fact)
}

type fakeEnqueuer struct {
	kinds    []string
	payloads []interface{}
	err      error
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, kind string, payload interface{}) error {
	if e.err != nil {
		return e.err
	}
	e.kinds = append(e.kinds, kind)
	e.payloads = append(e.payloads, payload)
	return nil
}

type workflowFixture struct {
	wf       *ApplicationWorkflow
	store    *fakeAppStore
	files    *fakeFileStore
	pub      *fakePublisher
	enqueuer *fakeEnqueuer
}

func newFixture(t *testing.T) *workflowFixture {
	t.Helper()
	store := newFakeAppStore()
	files := &fakeFileStore{}
	pub := &fakePublisher{}
	enq := &fakeEnqueuer{}
	vacancies := &fakeVacancyReader{vacancies: map[string]*models.Vacancy{
		"vac-open":   {ID: "vac-open", Title: "Backend Engineer", Status: models.VacancyOpen},
		"vac-closed": {ID: "vac-closed", Title: "Old Role", Status: models.VacancyClosed},
	}}
	wf := NewApplicationWorkflow(
		store, vacancies, files, status.New(), pub, enq,
		clock.Fixed{T: testNow}, 5*1024*1024, logger.NewTestLogger(t),
	)
	return &workflowFixture{wf: wf, store: store, files: files, pub: pub, enqueuer: enq}
}

func (fx *workflowFixture) seed(id, applicantID, vacancyID string, st models.Status) {
	fx.store.apps[id] = &models.Application{
		ID: id, ApplicantID: applicantID, VacancyID: vacancyID,
		CVPath: "cv/" + id + ".pdf", Status: st,
		AppliedAt: testNow.Add(-24 * time.Hour),
	}
}

var pdf = []byte("%PDF-1.7 test document")

func TestApplyCreatesApplication(t *testing.T) {
	fx := newFixture(t)

	app, err := fx.wf.Apply(context.Background(), applicant, "vac-open", pdf, cvContentType)

	require.NoError(t, err)
	assert.NotEmpty(t, app.ID)
	assert.Equal(t, models.StatusApplied, app.Status)
	assert.Equal(t, applicant.ID, app.ApplicantID)
	assert.Equal(t, testNow, app.AppliedAt)
	assert.Len(t, fx.files.stored, 1)
	assert.Equal(t, fx.files.stored[0], app.CVPath)
	assert.Empty(t, fx.pub.facts, "submission must not announce a status change")
}

func TestApplyDeniedForStaff(t *testing.T) {
	fx := newFixture(t)

	for _, actor := range []models.User{hrUser, adminUser} {
		_, err := fx.wf.Apply(context.Background(), actor, "vac-open", pdf, cvContentType)
		assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeForbidden), "role %s", actor.Role)
	}
	assert.Empty(t, fx.files.stored)
}

func TestApplyRejectsNonPDF(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.wf.Apply(context.Background(), applicant, "vac-open", []byte("plain"), "text/plain")

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeValidationFailed))
	assert.Empty(t, fx.files.stored)
}

func TestApplyRejectsOversizeCV(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.wf.Apply(context.Background(), applicant, "vac-open", make([]byte, 5*1024*1024+1), cvContentType)

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeValidationFailed))
}

func TestApplyRejectsClosedVacancy(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.wf.Apply(context.Background(), applicant, "vac-closed", pdf, cvContentType)

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeValidationFailed))
}

func TestApplyEnforcesQuota(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusApplied)
	fx.seed("app-2", applicant.ID, "vac-b", models.StatusHired)

	_, err := fx.wf.Apply(context.Background(), applicant, "vac-open", pdf, cvContentType)

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeQuotaExceeded))
}

func TestApplyQuotaIgnoresRejected(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusRejected)
	fx.seed("app-2", applicant.ID, "vac-b", models.StatusRejected)

	_, err := fx.wf.Apply(context.Background(), applicant, "vac-open", pdf, cvContentType)

	assert.NoError(t, err)
}

func TestApplyRejectsRepeatVacancy(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-open", models.StatusRejected)

	_, err := fx.wf.Apply(context.Background(), applicant, "vac-open", pdf, cvContentType)

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeDuplicateApplication))
}

func TestApplyCleansUpFileWhenCreateFails(t *testing.T) {
	fx := newFixture(t)
	fx.store.createErr = stderrors.NewPersistenceError(errors.New("insert failed"))

	_, err := fx.wf.Apply(context.Background(), applicant, "vac-open", pdf, cvContentType)

	require.Error(t, err)
	require.Len(t, fx.enqueuer.kinds, 1)
	assert.Equal(t, TaskKindFileDelete, fx.enqueuer.kinds[0])
	assert.Equal(t, FileDeleteTask{Path: fx.files.stored[0]}, fx.enqueuer.payloads[0])
}

func TestApplyReportsStorageErrorWhenUploadFails(t *testing.T) {
	fx := newFixture(t)
	fx.files.storeErr = errors.New("put object cv/x: connection reset")

	_, err := fx.wf.Apply(context.Background(), applicant, "vac-open", pdf, cvContentType)

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeStorageError, stderrors.CodeOf(err))
}

func TestUpdateCVReportsStorageErrorWhenUploadFails(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusApplied)
	fx.files.storeErr = errors.New("put object cv/x: connection reset")

	_, err := fx.wf.UpdateCV(context.Background(), applicant, "app-1", pdf, cvContentType)

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeStorageError, stderrors.CodeOf(err))
}

func TestUpdateCVReplacesFileWhileApplied(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusApplied)

	app, err := fx.wf.UpdateCV(context.Background(), applicant, "app-1", pdf, cvContentType)

	require.NoError(t, err)
	assert.Equal(t, fx.files.stored[0], app.CVPath)
	require.Len(t, fx.enqueuer.kinds, 1)
	assert.Equal(t, TaskKindFileDelete, fx.enqueuer.kinds[0])
	assert.Equal(t, FileDeleteTask{Path: "cv/app-1.pdf"}, fx.enqueuer.payloads[0])
}

func TestUpdateCVRejectedAfterReview(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusReviewed)

	_, err := fx.wf.UpdateCV(context.Background(), applicant, "app-1", pdf, cvContentType)

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeInvalidState))
	assert.Empty(t, fx.files.stored)
}

func TestUpdateCVForbiddenForNonOwner(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", "someone-else", "vac-a", models.StatusApplied)

	_, err := fx.wf.UpdateCV(context.Background(), applicant, "app-1", pdf, cvContentType)

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeForbidden))
}

func TestChangeStatusCommitsThenPublishes(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusApplied)

	app, err := fx.wf.ChangeStatus(context.Background(), hrUser, "app-1", models.StatusReviewed)

	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewed, app.Status)
	require.Len(t, fx.pub.facts, 1)
	assert.Equal(t, models.StatusChanged{
		ApplicationID: "app-1",
		OldStatus:     models.StatusApplied,
		NewStatus:     models.StatusReviewed,
		OccurredAt:    testNow,
	}, fx.pub.facts[0])
	assert.Equal(t, models.StatusReviewed, fx.store.apps["app-1"].Status)
}

func TestChangeStatusNoOpOnSameNonTerminalStatus(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusReviewed)

	app, err := fx.wf.ChangeStatus(context.Background(), hrUser, "app-1", models.StatusReviewed)

	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewed, app.Status)
	assert.Empty(t, fx.pub.facts, "a no-op must not announce anything")
}

func TestChangeStatusRejectsAnyMoveOffTerminal(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusHired)
	fx.seed("app-2", applicant.ID, "vac-b", models.StatusRejected)

	for _, tc := range []struct {
		id        string
		requested models.Status
	}{
		{"app-1", models.StatusReviewed},
		{"app-1", models.StatusHired}, // same terminal status still fails
		{"app-2", models.StatusApplied},
		{"app-2", models.StatusRejected},
	} {
		_, err := fx.wf.ChangeStatus(context.Background(), hrUser, tc.id, tc.requested)
		assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeTransitionRejected),
			"%s -> %s", tc.id, tc.requested)
	}
	assert.Empty(t, fx.pub.facts)
}

func TestChangeStatusForbiddenForApplicant(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusApplied)

	_, err := fx.wf.ChangeStatus(context.Background(), applicant, "app-1", models.StatusHired)

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeForbidden))
}

func TestChangeStatusNotFound(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.wf.ChangeStatus(context.Background(), hrUser, "missing", models.StatusReviewed)

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeNotFound))
}

func TestDeleteByAdminSchedulesFileRemoval(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusHired)

	err := fx.wf.Delete(context.Background(), adminUser, "app-1")

	require.NoError(t, err)
	assert.NotContains(t, fx.store.apps, "app-1")
	require.Len(t, fx.enqueuer.kinds, 1)
	assert.Equal(t, TaskKindFileDelete, fx.enqueuer.kinds[0])
}

func TestDeleteSucceedsWhenFileCleanupCannotBeScheduled(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusHired)
	fx.enqueuer.err = errors.New("queue unavailable")

	err := fx.wf.Delete(context.Background(), adminUser, "app-1")

	require.NoError(t, err, "file cleanup is best-effort and must not block the delete")
	assert.NotContains(t, fx.store.apps, "app-1")
}

func TestDeleteForbiddenForHR(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusApplied)

	err := fx.wf.Delete(context.Background(), hrUser, "app-1")

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeForbidden))
	assert.Contains(t, fx.store.apps, "app-1")
}

func TestDeleteOwnAppliedApplication(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusApplied)
	fx.seed("app-2", applicant.ID, "vac-b", models.StatusReviewed)

	assert.NoError(t, fx.wf.Delete(context.Background(), applicant, "app-1"))

	err := fx.wf.Delete(context.Background(), applicant, "app-2")
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeForbidden))
}

func TestGetScopedToOwner(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", "someone-else", "vac-a", models.StatusApplied)

	_, err := fx.wf.Get(context.Background(), applicant, "app-1")
	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeForbidden))

	app, err := fx.wf.Get(context.Background(), hrUser, "app-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", app.ID)
}

func TestListScopedByRole(t *testing.T) {
	fx := newFixture(t)
	fx.seed("app-1", applicant.ID, "vac-a", models.StatusApplied)
	fx.seed("app-2", "someone-else", "vac-b", models.StatusReviewed)

	own, err := fx.wf.List(context.Background(), applicant, "")
	require.NoError(t, err)
	assert.Len(t, own, 1)

	all, err := fx.wf.List(context.Background(), hrUser, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	reviewed, err := fx.wf.List(context.Background(), hrUser, models.StatusReviewed)
	require.NoError(t, err)
	assert.Len(t, reviewed, 1)
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.wf.List(context.Background(), hrUser, models.Status("archived"))

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeValidationFailed))
}
