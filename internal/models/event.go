package models

import "time"

// StatusChanged is the fact emitted after a status change has been committed.
// It describes something that already happened; subscribers must not treat
// their own failures as grounds to roll it back.
type StatusChanged struct {
	ApplicationID string    `json:"applicationId"`
	OldStatus     Status    `json:"oldStatus"`
	NewStatus     Status    `json:"newStatus"`
	OccurredAt    time.Time `json:"occurredAt"`
}
