package models

import "time"

// VacancyType is the employment type of a posting.
type VacancyType string

const (
	VacancyFullTime   VacancyType = "full-time"
	VacancyPartTime   VacancyType = "part-time"
	VacancyContract   VacancyType = "contract"
	VacancyInternship VacancyType = "internship"
)

func (t VacancyType) Valid() bool {
	switch t {
	case VacancyFullTime, VacancyPartTime, VacancyContract, VacancyInternship:
		return true
	}
	return false
}

// VacancyStatus is the posting lifecycle status. Closing a vacancy never
// cascades onto its existing applications.
type VacancyStatus string

const (
	VacancyOpen   VacancyStatus = "open"
	VacancyClosed VacancyStatus = "closed"
)

func (s VacancyStatus) Valid() bool {
	return s == VacancyOpen || s == VacancyClosed
}

// Vacancy is a job posting.
type Vacancy struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Location    string        `json:"location"`
	Type        VacancyType   `json:"type"`
	Status      VacancyStatus `json:"status"`
	CreatedBy   string        `json:"createdBy"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
