package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/models"
	"jobtrack/internal/validation"
	"jobtrack/internal/workflow"
)

// ApplicationService is the application workflow surface the API exposes.
type ApplicationService interface {
	Apply(ctx context.Context, actor models.User, vacancyID string, cv []byte, contentType string) (*models.Application, error)
	UpdateCV(ctx context.Context, actor models.User, applicationID string, cv []byte, contentType string) (*models.Application, error)
	ChangeStatus(ctx context.Context, actor models.User, applicationID string, requested models.Status) (*models.Application, error)
	Delete(ctx context.Context, actor models.User, applicationID string) error
	Get(ctx context.Context, actor models.User, applicationID string) (*models.Application, error)
	List(ctx context.Context, actor models.User, statusFilter models.Status) ([]models.Application, error)
}

// VacancyService is the posting workflow surface the API exposes.
type VacancyService interface {
	Create(ctx context.Context, actor models.User, in workflow.VacancyInput) (*models.Vacancy, error)
	Update(ctx context.Context, actor models.User, id string, in workflow.VacancyInput) (*models.Vacancy, error)
	SetStatus(ctx context.Context, actor models.User, id string, vs models.VacancyStatus) (*models.Vacancy, error)
	Delete(ctx context.Context, actor models.User, id string) error
	Get(ctx context.Context, actor models.User, id string) (*models.Vacancy, error)
	List(ctx context.Context, actor models.User) ([]models.Vacancy, error)
}

// EmployeeService is the staff-management surface the API exposes.
type EmployeeService interface {
	Create(ctx context.Context, actor models.User, in workflow.EmployeeInput) (*models.User, error)
	Update(ctx context.Context, actor models.User, id string, in workflow.EmployeeInput) (*models.User, error)
	Delete(ctx context.Context, actor models.User, id string) error
	Get(ctx context.Context, actor models.User, id string) (*models.User, error)
	List(ctx context.Context, actor models.User) ([]models.User, error)
}

type handlers struct {
	applications ApplicationService
	vacancies    VacancyService
	employees    EmployeeService
	logger       logger.Logger
}

func respondError(c *gin.Context, err error) {
	status := stderrors.HTTPStatus(err)
	var body gin.H
	var std *stderrors.StandardError
	if errors.As(err, &std) {
		body = gin.H{"code": std.Code, "message": std.Message, "details": std.Details}
	} else {
		body = gin.H{"code": stderrors.ErrCodePersistenceError, "message": "Internal error"}
	}
	c.JSON(status, gin.H{"error": body})
}

// readUpload pulls one named multipart file out of the request.
func readUpload(c *gin.Context, field string) ([]byte, string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, "", stderrors.NewValidationFailedError("missing file field " + field)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", stderrors.NewValidationFailedError("unreadable upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", stderrors.NewValidationFailedError("unreadable upload")
	}
	return data, fileHeader.Header.Get("Content-Type"), nil
}

func (h *handlers) createApplication(c *gin.Context) {
	vacancyID := c.PostForm("vacancyId")
	if vacancyID == "" {
		respondError(c, stderrors.NewValidationFailedError("vacancyId is required"))
		return
	}

	cv, contentType, err := readUpload(c, "cv")
	if err != nil {
		respondError(c, err)
		return
	}

	app, err := h.applications.Apply(c.Request.Context(), actorFrom(c), vacancyID, cv, contentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *handlers) listApplications(c *gin.Context) {
	apps, err := h.applications.List(c.Request.Context(), actorFrom(c), models.Status(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}
	c.JSON(http.StatusOK, apps)
}

func (h *handlers) getApplication(c *gin.Context) {
	app, err := h.applications.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *handlers) updateApplicationCV(c *gin.Context) {
	cv, contentType, err := readUpload(c, "cv")
	if err != nil {
		respondError(c, err)
		return
	}

	app, err := h.applications.UpdateCV(c.Request.Context(), actorFrom(c), c.Param("id"), cv, contentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *handlers) changeApplicationStatus(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, stderrors.NewValidationFailedError("unreadable request body"))
		return
	}
	if err := validation.Check(validation.StatusChangeRequest, body); err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		Status models.Status `json:"status"`
	}
	if err := bindJSON(body, &req); err != nil {
		respondError(c, err)
		return
	}

	app, err := h.applications.ChangeStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *handlers) deleteApplication(c *gin.Context) {
	if err := h.applications.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) createVacancy(c *gin.Context) {
	in, err := bindVacancyInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	vacancy, err := h.vacancies.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vacancy)
}

func (h *handlers) updateVacancy(c *gin.Context) {
	in, err := bindVacancyInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	vacancy, err := h.vacancies.Update(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vacancy)
}

func (h *handlers) setVacancyStatus(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, stderrors.NewValidationFailedError("unreadable request body"))
		return
	}
	if err := validation.Check(validation.VacancyStatusRequest, body); err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		Status models.VacancyStatus `json:"status"`
	}
	if err := bindJSON(body, &req); err != nil {
		respondError(c, err)
		return
	}

	vacancy, err := h.vacancies.SetStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vacancy)
}

func (h *handlers) deleteVacancy(c *gin.Context) {
	if err := h.vacancies.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) getVacancy(c *gin.Context) {
	vacancy, err := h.vacancies.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vacancy)
}

func (h *handlers) listVacancies(c *gin.Context) {
	vacancies, err := h.vacancies.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if vacancies == nil {
		vacancies = []models.Vacancy{}
	}
	c.JSON(http.StatusOK, vacancies)
}

func (h *handlers) createEmployee(c *gin.Context) {
	in, err := bindEmployeeInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	employee, err := h.employees.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, employee)
}

func (h *handlers) updateEmployee(c *gin.Context) {
	in, err := bindEmployeeInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	employee, err := h.employees.Update(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (h *handlers) deleteEmployee(c *gin.Context) {
	if err := h.employees.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) getEmployee(c *gin.Context) {
	employee, err := h.employees.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, employee)
}

func (h *handlers) listEmployees(c *gin.Context) {
	employees, err := h.employees.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if employees == nil {
		employees = []models.User{}
	}
	c.JSON(http.StatusOK, employees)
}
