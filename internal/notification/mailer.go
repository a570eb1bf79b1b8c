package notification

import (
	"context"
	"encoding/json"
	"fmt"

	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/metrics"
	"jobtrack/internal/models"
)

// EmailSender delivers one email. The SES client satisfies this.
type EmailSender interface {
	SendEmail(ctx context.Context, from, to, subject, body string) error
}

// ApplicationReader loads the application the task refers to.
type ApplicationReader interface {
	FindByID(ctx context.Context, id string) (*models.Application, error)
}

// UserReader resolves the recipient.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// VacancyReader resolves the posting named in the email.
type VacancyReader interface {
	FindByID(ctx context.Context, id string) (*models.Vacancy, error)
}

// Mailer is the queue handler that renders and sends status emails. It reads
// everything from durable state at delivery time, so a retried task sends
// current data.
type Mailer struct {
	applications ApplicationReader
	users        UserReader
	vacancies    VacancyReader
	sender       EmailSender
	fromEmail    string
	logger       logger.Logger
}

func NewMailer(apps ApplicationReader, users UserReader, vacancies VacancyReader, sender EmailSender, fromEmail string, log logger.Logger) *Mailer {
	return &Mailer{
		applications: apps,
		users:        users,
		vacancies:    vacancies,
		sender:       sender,
		fromEmail:    fromEmail,
		logger:       log.WithFields(map[string]interface{}{"component": "mailer"}),
	}
}

// HandleEmailTask executes one queued email. Errors returned here put the
// task on the queue's retry path; a nil return acknowledges it.
func (m *Mailer) HandleEmailTask(ctx context.Context, payload json.RawMessage) error {
	var task EmailTask
	if err := json.Unmarshal(payload, &task); err != nil {
		m.logger.Error("malformed email task", map[string]interface{}{"error": err})
		return nil // retrying a malformed payload cannot help
	}

	tmpl, ok := templatesByStatus[task.Status]
	if !ok {
		m.logger.Warn("no template for status, dropping task", map[string]interface{}{
			"applicationId": task.ApplicationID,
			"status":        task.Status,
		})
		return nil
	}

	app, err := m.applications.FindByID(ctx, task.ApplicationID)
	if err != nil {
		if stderrors.IsCode(err, stderrors.ErrCodeNotFound) {
			// The application was deleted between commit and delivery.
			m.logger.Warn("application gone, dropping email task", map[string]interface{}{
				"applicationId": task.ApplicationID,
			})
			return nil
		}
		return fmt.Errorf("load application %s: %w", task.ApplicationID, err)
	}

	user, err := m.users.FindByID(ctx, app.ApplicantID)
	if err != nil {
		return fmt.Errorf("load applicant %s: %w", app.ApplicantID, err)
	}

	vacancy, err := m.vacancies.FindByID(ctx, app.VacancyID)
	if err != nil {
		return fmt.Errorf("load vacancy %s: %w", app.VacancyID, err)
	}

	data := map[string]interface{}{
		"userName":        user.Name,
		"vacancyTitle":    vacancy.Title,
		"vacancyLocation": vacancy.Location,
		"status":          string(task.Status),
		"statusLabel":     statusLabel(task.Status),
	}
	body := renderTemplate(tmpl.Body, data)

	if err := m.sender.SendEmail(ctx, m.fromEmail, user.Email, tmpl.Subject, body); err != nil {
		metrics.NotificationsFailed.WithLabelValues(string(task.Status)).Inc()
		return stderrors.NewNotificationSendFailedError(err)
	}

	metrics.NotificationsSent.WithLabelValues(string(task.Status)).Inc()
	m.logger.Info("status email sent", map[string]interface{}{
		"applicationId": task.ApplicationID,
		"status":        task.Status,
		"recipient":     user.Email,
	})
	return nil
}
