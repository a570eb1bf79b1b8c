// Package errors provides the standardized error taxonomy for the
// application-tracking workflows.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Business-rule violations. Never retried, never logged as system errors.
const (
	ErrCodeQuotaExceeded        ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeInvalidState         ErrorCode = "INVALID_STATE"
	ErrCodeTransitionRejected   ErrorCode = "TRANSITION_REJECTED"
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
)

// Authorization.
const (
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
)

// Lookup failures.
const (
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Infrastructure failures. Retryable at the caller's discretion.
const (
	ErrCodeStorageError           ErrorCode = "STORAGE_ERROR"
	ErrCodePersistenceError       ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from err, or empty string if err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error code to the transport status the API glue returns.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeQuotaExceeded, ErrCodeDuplicateApplication, ErrCodeInvalidState, ErrCodeTransitionRejected:
		return http.StatusUnprocessableEntity
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// NewQuotaExceededError creates a non-retryable active-application quota error.
func NewQuotaExceededError(applicantID string, active, max int) *StandardError {
	return &StandardError{
		Code:      ErrCodeQuotaExceeded,
		Message:   "Maximum number of active applications reached",
		Details:   fmt.Sprintf("applicantId: %s, active: %d, max: %d", applicantID, active, max),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateApplicationError creates a non-retryable duplicate-pair error.
func NewDuplicateApplicationError(applicantID, vacancyID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateApplication,
		Message:   "Applicant has already applied to this vacancy",
		Details:   fmt.Sprintf("applicantId: %s, vacancyId: %s", applicantID, vacancyID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStateError creates a non-retryable lifecycle-state error.
func NewInvalidStateError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidState,
		Message:   "Operation not permitted in the application's current status",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransitionRejectedError creates a non-retryable status-transition error.
func NewTransitionRejectedError(current, requested string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransitionRejected,
		Message:   "Status transition rejected",
		Details:   fmt.Sprintf("current: %s, requested: %s", current, requested),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFinalStatusError creates a transition error for terminal applications.
func NewFinalStatusError(current string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransitionRejected,
		Message:   "Application status is final and cannot be changed",
		Details:   fmt.Sprintf("final status: %s", current),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable input validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewForbiddenError creates a terminal authorization denial.
func NewForbiddenError(action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbidden,
		Message:   "Actor is not permitted to perform this action",
		Details:   fmt.Sprintf("action: %s", action),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a resource lookup error.
func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageError creates a retryable blob-store error.
func NewStorageError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageError,
		Message:   "File store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceError creates a retryable database error.
func NewPersistenceError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceError,
		Message:   "Database operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
