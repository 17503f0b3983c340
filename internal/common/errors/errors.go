// internal/common/errors/errors.go
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"cleanmatch-workers/internal/matching"
)

type ErrorCode string

const (
	// Booking request validation
	ErrCodeInvalidTimeWindow     ErrorCode = "INVALID_TIME_WINDOW"
	ErrCodeInvalidServiceType    ErrorCode = "INVALID_SERVICE_TYPE"
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"

	// Provider directory
	ErrCodeCandidatePoolUnavailable ErrorCode = "CANDIDATE_POOL_UNAVAILABLE"
	ErrCodeProviderNotFound         ErrorCode = "PROVIDER_NOT_FOUND"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeCacheFailed              ErrorCode = "CACHE_FAILED"

	// Reservation
	ErrCodeSlotConflict      ErrorCode = "SLOT_CONFLICT"
	ErrCodeReservationFailed ErrorCode = "RESERVATION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeWorkflowEngineFailed   ErrorCode = "WORKFLOW_ENGINE_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

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

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidTimeWindowError(details string) *StandardError {
	return newError(ErrCodeInvalidTimeWindow, "Booking time window is invalid", details, false)
}

func NewInvalidServiceTypeError(details string) *StandardError {
	return newError(ErrCodeInvalidServiceType, "Booking service type is invalid", details, false)
}

func NewInputValidationFailedError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Job input failed schema validation", details, false)
}

func NewCandidatePoolUnavailableError(err error) *StandardError {
	return newError(ErrCodeCandidatePoolUnavailable, "Provider directory lookup failed", err.Error(), true)
}

func NewProviderNotFoundError(providerID string) *StandardError {
	return newError(ErrCodeProviderNotFound, "Provider not found in directory", fmt.Sprintf("providerId: %s", providerID), false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("query: %s, error: %s", query, err.Error()), true)
}

func NewQueryTimeoutError(query string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("query: %s", query), true)
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

func NewCacheFailedError(err error) *StandardError {
	return newError(ErrCodeCacheFailed, "Redis operation failed", err.Error(), true)
}

func NewSlotConflictError(providerID string) *StandardError {
	return newError(ErrCodeSlotConflict, "Provider slot already taken", fmt.Sprintf("providerId: %s", providerID), false)
}

func NewReservationFailedError(err error) *StandardError {
	return newError(ErrCodeReservationFailed, "Slot reservation failed", err.Error(), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewWorkflowEngineError(operation string, err error, retryable bool) *StandardError {
	return newError(ErrCodeWorkflowEngineFailed, "Zeebe command failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), retryable)
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidTimeWindow:        "INVALID_TIME_WINDOW",
	ErrCodeInvalidServiceType:       "INVALID_SERVICE_TYPE",
	ErrCodeInputValidationFailed:    "INPUT_VALIDATION_FAILED",
	ErrCodeCandidatePoolUnavailable: "CANDIDATE_POOL_UNAVAILABLE",
	ErrCodeProviderNotFound:         "PROVIDER_NOT_FOUND",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:             "QUERY_TIMEOUT",
	ErrCodeSearchQueryFailed:        "SEARCH_QUERY_FAILED",
	ErrCodeCacheFailed:              "CACHE_FAILED",
	ErrCodeSlotConflict:             "SLOT_CONFLICT",
	ErrCodeReservationFailed:        "RESERVATION_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCandidatePoolUnavailable,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeReservationFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeWorkflowEngineFailed:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeCacheFailed:
		return 2

	default:
		return 0 // business errors are thrown, not retried
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// FromError maps engine sentinels and context errors onto standard codes.
func FromError(err error) *StandardError {
	var stdErr *StandardError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &stdErr):
		return stdErr
	case stderrors.Is(err, matching.ErrInvalidTimeWindow):
		return NewInvalidTimeWindowError(err.Error())
	case stderrors.Is(err, matching.ErrInvalidServiceType):
		return NewInvalidServiceTypeError(err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewQueryTimeoutError(err.Error())
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TIME_WINDOW") || strings.Contains(codeStr, "SERVICE_TYPE") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "SLOT") || strings.Contains(codeStr, "RESERVATION"):
		return "RESERVATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "POOL") || strings.Contains(codeStr, "PROVIDER"):
		return "DIRECTORY"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	default:
		return "OTHER"
	}
}
