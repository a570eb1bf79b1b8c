package notification

import (
	"fmt"
	"strings"

	"jobtrack/internal/models"
)

// emailTemplate is one applicant-facing message, keyed by target status.
type emailTemplate struct {
	Subject string
	Body    string
}

// templatesByStatus drives which transitions notify the applicant. Only the
// terminal statuses have entries; reviewed and interview are internal
// process statuses with no applicant-facing notice.
var templatesByStatus = map[models.Status]emailTemplate{
	models.StatusHired: {
		Subject: "Congratulations! You Have Been Hired",
		Body: "Hi {{userName}},\n\n" +
			"Great news: your application for {{vacancyTitle}} ({{vacancyLocation}}) has moved to {{statusLabel}}. " +
			"Our team will reach out with the next steps shortly.\n\n" +
			"Welcome aboard!",
	},
	models.StatusRejected: {
		Subject: "Update on Your Application",
		Body: "Hi {{userName}},\n\n" +
			"Thank you for applying for {{vacancyTitle}} ({{vacancyLocation}}). " +
			"After careful consideration your application status is now {{statusLabel}}. " +
			"We encourage you to apply again for future openings.\n\n" +
			"Best wishes.",
	},
}

// statusLabels maps the status enum to human-readable text.
var statusLabels = map[models.Status]string{
	models.StatusApplied:   "Application Submitted",
	models.StatusReviewed:  "Under Review",
	models.StatusInterview: "Interview Stage",
	models.StatusHired:     "Hired",
	models.StatusRejected:  "Not Selected",
}

// Notifiable reports whether a transition to status triggers an email.
func Notifiable(status models.Status) bool {
	_, ok := templatesByStatus[status]
	return ok
}

func statusLabel(status models.Status) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

// renderTemplate substitutes {{key}} placeholders and strips any that have
// no value.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
