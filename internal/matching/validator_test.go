package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *BookingRequest)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(r *BookingRequest) {},
		},
		{
			name:    "start in the past",
			mutate:  func(r *BookingRequest) { r.TimeWindow.Start = testNow.Add(-time.Hour) },
			wantErr: ErrInvalidTimeWindow,
		},
		{
			name:    "start equal to now",
			mutate:  func(r *BookingRequest) { r.TimeWindow.Start = testNow },
			wantErr: ErrInvalidTimeWindow,
		},
		{
			name:    "zero start",
			mutate:  func(r *BookingRequest) { r.TimeWindow.Start = time.Time{} },
			wantErr: ErrInvalidTimeWindow,
		},
		{
			name:    "zero duration",
			mutate:  func(r *BookingRequest) { r.TimeWindow.Duration = 0 },
			wantErr: ErrInvalidTimeWindow,
		},
		{
			name:    "negative duration",
			mutate:  func(r *BookingRequest) { r.TimeWindow.Duration = -time.Hour },
			wantErr: ErrInvalidTimeWindow,
		},
		{
			name:    "empty service type",
			mutate:  func(r *BookingRequest) { r.ServiceType = "" },
			wantErr: ErrInvalidServiceType,
		},
		{
			name:    "blank service type",
			mutate:  func(r *BookingRequest) { r.ServiceType = "   " },
			wantErr: ErrInvalidServiceType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.mutate(&req)

			_, err := testValidator().ValidateRequest(req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateRequest_Normalizes(t *testing.T) {
	req := testRequest()
	req.ServiceType = "  Standard-Cleaning "
	req.Location.PostalCode = " sw1a 1aa"
	req.BudgetCeiling = floatPtr(40)

	got, err := testValidator().ValidateRequest(req)
	require.NoError(t, err)

	assert.Equal(t, testService, got.ServiceType)
	assert.Equal(t, "SW1A1AA", got.Location.PostalCode)
	assert.Equal(t, " sw1a 1aa", req.Location.PostalCode, "input must not be modified")

	*got.BudgetCeiling = 99
	assert.Equal(t, 40.0, *req.BudgetCeiling)
}

func TestValidate_FiltersPool(t *testing.T) {
	inactive := testCandidate("inactive", "10001")
	inactive.Active = false

	otherService := testCandidate("deep-clean-only", "10001")
	otherService.ServiceTypes = []string{"deep-cleaning"}

	mixedCase := testCandidate("mixed-case", "10001")
	mixedCase.ServiceTypes = []string{"Standard-Cleaning"}

	missingID := testCandidate("", "10001")

	badRate := testCandidate("bad-rate", "10001")
	badRate.HourlyRate = 0

	badRating := testCandidate("bad-rating", "10001")
	badRating.Rating = floatPtr(7)

	negativeJobs := testCandidate("negative-jobs", "10001")
	negativeJobs.CompletedJobCount = -1

	noPostal := testCandidate("no-postal", " ")

	overlapping := testCandidate("overlapping-slots", "10001")
	overlapping.CommittedSlots = []Interval{
		{Start: at(14, 0), End: at(16, 0)},
		{Start: at(15, 0), End: at(17, 0)},
	}

	noAvailability := testCandidate("no-availability", "10001")
	noAvailability.DeclaredAvailability = DeclaredAvailability{}

	pool := []CandidateProvider{
		testCandidate("ok", "10001"),
		inactive,
		otherService,
		mixedCase,
		missingID,
		badRate,
		badRating,
		negativeJobs,
		noPostal,
		overlapping,
		noAvailability,
		testCandidate("ok", "10002"),
	}

	got, err := testValidator().Validate(testRequest(), pool)
	require.NoError(t, err)

	ids := make([]string, 0, len(got.Candidates))
	for _, c := range got.Candidates {
		ids = append(ids, c.ProviderID)
	}
	assert.Equal(t, []string{"ok", "mixed-case", "no-availability"}, ids)

	assert.Equal(t, 1, got.Exclusions.Inactive)
	assert.Equal(t, 1, got.Exclusions.ServiceMismatch)
	assert.Equal(t, 7, got.Exclusions.Malformed)
	assert.Len(t, got.Diagnostics, 7)

	reasons := map[string]string{}
	for _, d := range got.Diagnostics {
		assert.Equal(t, CodeMalformedCandidate, d.Code)
		reasons[d.ProviderID] = d.Reason
	}
	assert.Equal(t, "missing providerId", reasons[""])
	assert.Equal(t, "duplicate providerId", reasons["ok"])
	assert.Equal(t, "hourlyRate must be positive", reasons["bad-rate"])
	assert.Contains(t, reasons["overlapping-slots"], "corrupt availability")
}

func TestValidate_RequestErrorAbortsBeforeCandidates(t *testing.T) {
	req := testRequest()
	req.ServiceType = ""

	got, err := testValidator().Validate(req, []CandidateProvider{testCandidate("p-1", "10001")})
	assert.ErrorIs(t, err, ErrInvalidServiceType)
	assert.Empty(t, got.Candidates)
}

func TestValidate_CopiesCandidates(t *testing.T) {
	c := testCandidate("p-1", "10001")
	c.ServicedPrefixes = []string{"100"}
	pool := []CandidateProvider{c}

	got, err := testValidator().Validate(testRequest(), pool)
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)

	got.Candidates[0].ServicedPrefixes[0] = "999"
	got.Candidates[0].DeclaredAvailability.Windows[0].Start = time.Time{}
	*got.Candidates[0].Rating = 1

	assert.Equal(t, "100", pool[0].ServicedPrefixes[0])
	assert.Equal(t, at(0, 0), pool[0].DeclaredAvailability.Windows[0].Start)
	assert.Equal(t, 4.0, *pool[0].Rating)
}
