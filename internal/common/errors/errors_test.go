package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleanmatch-workers/internal/matching"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  ErrorCode
		retryable bool
	}{
		{"time window sentinel", fmt.Errorf("%w: start in past", matching.ErrInvalidTimeWindow), ErrCodeInvalidTimeWindow, false},
		{"service type sentinel", matching.ErrInvalidServiceType, ErrCodeInvalidServiceType, false},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), ErrCodeQueryTimeout, true},
		{"standard error passthrough", NewSlotConflictError("p-1"), ErrCodeSlotConflict, false},
		{"wrapped standard error", fmt.Errorf("reserve: %w", NewReservationFailedError(stderrors.New("tx"))), ErrCodeReservationFailed, true},
		{"unknown", stderrors.New("boom"), ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
		})
	}

	assert.Nil(t, FromError(nil))
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewCandidatePoolUnavailableError(stderrors.New("es down")))

	assert.Equal(t, "CANDIDATE_POOL_UNAVAILABLE", bpmn.Code)
	assert.True(t, bpmn.Retryable)
	assert.Equal(t, 3, bpmn.Retries)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "CANDIDATE_POOL_UNAVAILABLE", vars["errorCode"])
	assert.Equal(t, "CANDIDATE_POOL_UNAVAILABLE", vars["originalErrorCode"])
	assert.Equal(t, "es down", vars["errorDetails"])

	business := ConvertToBPMNError(NewInvalidServiceTypeError("empty"))
	assert.Equal(t, 0, business.Retries)
}

func TestRemainingRetries(t *testing.T) {
	tests := []struct {
		name       string
		err        *StandardError
		jobRetries int32
		want       int
	}{
		{"business error never retried", NewInvalidTimeWindowError("past"), 3, 0},
		{"decrements job retries", NewReservationFailedError(stderrors.New("x")), 3, 2},
		{"capped by code allowance", NewCacheFailedError(stderrors.New("x")), 10, 2},
		{"last attempt", NewQueryExecutionFailedError("q", stderrors.New("x")), 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingRetries(tt.err, tt.jobRetries))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidTimeWindow))
	assert.Equal(t, "RESERVATION", GetErrorCategory(ErrCodeSlotConflict))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryTimeout))
	assert.Equal(t, "DIRECTORY", GetErrorCategory(ErrCodeCandidatePoolUnavailable))
	assert.Equal(t, "CACHE", GetErrorCategory(ErrCodeCacheFailed))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "WORKFLOW", GetErrorCategory(ErrCodeWorkflowEngineFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeSearchQueryFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeSlotConflict))
}
