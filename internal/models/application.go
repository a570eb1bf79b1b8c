package models

import "time"

// Status is the application lifecycle status.
type Status string

const (
	StatusApplied   Status = "applied"
	StatusReviewed  Status = "reviewed"
	StatusInterview Status = "interview"
	StatusHired     Status = "hired"
	StatusRejected  Status = "rejected"
)

// AllStatuses lists every lifecycle status in order.
var AllStatuses = []Status{
	StatusApplied,
	StatusReviewed,
	StatusInterview,
	StatusHired,
	StatusRejected,
}

// Valid reports whether s is a member of the status enum.
func (s Status) Valid() bool {
	switch s {
	case StatusApplied, StatusReviewed, StatusInterview, StatusHired, StatusRejected:
		return true
	}
	return false
}

// Application is one applicant's submission against one vacancy.
type Application struct {
	ID          string    `json:"id"`
	ApplicantID string    `json:"applicantId"`
	VacancyID   string    `json:"vacancyId"`
	CVPath      string    `json:"cvPath"`
	Status      Status    `json:"status"`
	AppliedAt   time.Time `json:"appliedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MaxActiveApplications is the number of simultaneously live (non-rejected)
// applications one applicant may hold.
const MaxActiveApplications = 2
