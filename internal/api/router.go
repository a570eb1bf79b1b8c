// Package api is the HTTP transport. Handlers stay thin: decode, authorize
// through the workflow, encode.
package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/observability"
	"jobtrack/internal/validation"
	"jobtrack/internal/workflow"
)

// Config carries the transport-level settings the router needs.
type Config struct {
	JWTSecret string
	Issuer    string
}

// NewRouter wires every route. The caller owns the http.Server around it.
func NewRouter(
	cfg Config,
	applications ApplicationService,
	vacancies VacancyService,
	employees EmployeeService,
	obs *observability.Observability,
	log logger.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := &handlers{
		applications: applications,
		vacancies:    vacancies,
		employees:    employees,
		logger:       log.WithFields(map[string]interface{}{"component": "api"}),
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware(cfg.JWTSecret, cfg.Issuer, h.logger))
	if obs != nil {
		v1.Use(observeMiddleware(obs))
	}

	v1.POST("/applications", h.createApplication)
	v1.GET("/applications", h.listApplications)
	v1.GET("/applications/:id", h.getApplication)
	v1.PUT("/applications/:id/cv", h.updateApplicationCV)
	v1.PATCH("/applications/:id/status", h.changeApplicationStatus)
	v1.DELETE("/applications/:id", h.deleteApplication)

	v1.POST("/vacancies", h.createVacancy)
	v1.GET("/vacancies", h.listVacancies)
	v1.GET("/vacancies/:id", h.getVacancy)
	v1.PUT("/vacancies/:id", h.updateVacancy)
	v1.PATCH("/vacancies/:id/status", h.setVacancyStatus)
	v1.DELETE("/vacancies/:id", h.deleteVacancy)

	v1.POST("/employees", h.createEmployee)
	v1.GET("/employees", h.listEmployees)
	v1.GET("/employees/:id", h.getEmployee)
	v1.PUT("/employees/:id", h.updateEmployee)
	v1.DELETE("/employees/:id", h.deleteEmployee)

	return router
}

func bindJSON(body []byte, dst interface{}) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return stderrors.NewValidationFailedError("request body is not valid JSON")
	}
	return nil
}

func bindVacancyInput(c *gin.Context) (workflow.VacancyInput, error) {
	var in workflow.VacancyInput
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return in, stderrors.NewValidationFailedError("unreadable request body")
	}
	if err := validation.Check(validation.VacancyRequest, body); err != nil {
		return in, err
	}
	if err := bindJSON(body, &in); err != nil {
		return in, err
	}
	return in, nil
}

func bindEmployeeInput(c *gin.Context) (workflow.EmployeeInput, error) {
	var in workflow.EmployeeInput
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return in, stderrors.NewValidationFailedError("unreadable request body")
	}
	if err := validation.Check(validation.EmployeeRequest, body); err != nil {
		return in, err
	}
	if err := bindJSON(body, &in); err != nil {
		return in, err
	}
	return in, nil
}
