package checkprovideravailability

import (
	"context"
	"testing"
	"time"

	"cleanmatch-workers/internal/common/errors"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/matching"
	"cleanmatch-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var windowStart = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type stubDirectory map[string]matching.CandidateProvider

func (s stubDirectory) GetProvider(_ context.Context, id string) (matching.CandidateProvider, error) {
	p, ok := s[id]
	if !ok {
		return matching.CandidateProvider{}, errors.NewProviderNotFoundError(id)
	}
	return p, nil
}

func provider(id string, active bool, slots ...matching.Interval) matching.CandidateProvider {
	return matching.CandidateProvider{
		ProviderID:   id,
		PostalCode:   "94107",
		HourlyRate:   30,
		ServiceTypes: []string{"standard-cleaning"},
		DeclaredAvailability: matching.DeclaredAvailability{
			Weekly: []matching.WeeklyWindow{{Weekday: time.Saturday, StartMinute: 8 * 60, EndMinute: 17 * 60, TimeZone: "UTC"}},
		},
		CommittedSlots: slots,
		Active:         active,
	}
}

func createTestHandler(t *testing.T) *Handler {
	dir := stubDirectory{
		"p-free":     provider("p-free", true),
		"p-busy":     provider("p-busy", true, matching.Interval{Start: windowStart.Add(30 * time.Minute), End: windowStart.Add(90 * time.Minute)}),
		"p-inactive": provider("p-inactive", false),
	}
	return NewHandler(&Config{Timeout: 5 * time.Second}, dir, logger.NewTestLogger(t))
}

// ==========================
// Execute
// ==========================

func TestExecute(t *testing.T) {
	h := createTestHandler(t)

	tests := []struct {
		name          string
		providerID    string
		start         time.Time
		wantAvailable bool
		wantReason    string
	}{
		{"free inside weekly window", "p-free", windowStart, true, ""},
		{"outside weekly window", "p-free", windowStart.Add(7 * time.Hour), false, ReasonUnavailable},
		{"overlaps committed slot", "p-busy", windowStart, false, ReasonUnavailable},
		{"back-to-back with committed slot", "p-busy", windowStart.Add(90 * time.Minute), true, ""},
		{"inactive provider", "p-inactive", windowStart, false, ReasonInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := h.Execute(context.Background(), &Input{
				ProviderID: tt.providerID,
				TimeWindow: models.TimeWindow{Start: tt.start, DurationMinutes: 120},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.providerID, output.ProviderID)
			assert.Equal(t, tt.wantAvailable, output.Available)
			assert.Equal(t, tt.wantReason, output.Reason)
		})
	}
}

func TestExecute_Errors(t *testing.T) {
	h := createTestHandler(t)

	tests := []struct {
		name     string
		input    Input
		wantCode errors.ErrorCode
	}{
		{
			name:     "missing provider id",
			input:    Input{TimeWindow: models.TimeWindow{Start: windowStart, DurationMinutes: 60}},
			wantCode: errors.ErrCodeInputValidationFailed,
		},
		{
			name:     "non-positive duration",
			input:    Input{ProviderID: "p-free", TimeWindow: models.TimeWindow{Start: windowStart}},
			wantCode: errors.ErrCodeInvalidTimeWindow,
		},
		{
			name:     "unknown provider",
			input:    Input{ProviderID: "p-ghost", TimeWindow: models.TimeWindow{Start: windowStart, DurationMinutes: 60}},
			wantCode: errors.ErrCodeProviderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), &tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.FromError(err).Code)
		})
	}
}
