package fetchcandidatepool

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"cleanmatch-workers/internal/common/errors"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/directory"
	"cleanmatch-workers/internal/matching"
	"cleanmatch-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubFetcher struct {
	pool  *directory.Pool
	err   error
	query directory.PoolQuery
}

func (s *stubFetcher) FetchPool(_ context.Context, q directory.PoolQuery) (*directory.Pool, error) {
	s.query = q
	return s.pool, s.err
}

func createTestInput(scope string) *Input {
	return &Input{
		BookingRequest: models.BookingRequest{
			RequestID:   "req-1",
			ServiceType: "standard-cleaning",
			Location:    matching.Location{PostalCode: "94107"},
			TimeWindow:  models.TimeWindow{Start: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), DurationMinutes: 120},
		},
		SearchScope: scope,
	}
}

func createTestHandler(t *testing.T, fetcher PoolFetcher) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, fetcher, logger.NewTestLogger(t))
}

// ==========================
// Execute
// ==========================

func TestExecute_PassesScopeAndArea(t *testing.T) {
	fetcher := &stubFetcher{pool: &directory.Pool{
		Candidates: []matching.CandidateProvider{{ProviderID: "p-1"}, {ProviderID: "p-2"}},
		Source:     directory.SourceSearch,
	}}
	h := createTestHandler(t, fetcher)

	output, err := h.Execute(context.Background(), createTestInput("region"))
	require.NoError(t, err)

	assert.Equal(t, directory.ScopeRegion, fetcher.query.Scope)
	assert.Equal(t, "94107", fetcher.query.PostalCode)
	assert.Equal(t, "standard-cleaning", fetcher.query.ServiceType)
	assert.Equal(t, 2, output.CandidateCount)
	assert.Equal(t, directory.SourceSearch, output.Source)
	assert.Equal(t, "region", output.SearchScope)
}

func TestExecute_DefaultsToAreaScope(t *testing.T) {
	fetcher := &stubFetcher{pool: &directory.Pool{Candidates: []matching.CandidateProvider{}, Source: directory.SourceCache}}
	h := createTestHandler(t, fetcher)

	output, err := h.Execute(context.Background(), createTestInput(""))
	require.NoError(t, err)
	assert.Equal(t, "area", output.SearchScope)
	assert.Zero(t, output.CandidateCount)
}

func TestExecute_Errors(t *testing.T) {
	t.Run("unknown scope", func(t *testing.T) {
		h := createTestHandler(t, &stubFetcher{})
		_, err := h.Execute(context.Background(), createTestInput("planet"))
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.FromError(err).Code)
	})

	t.Run("directory failure is retryable", func(t *testing.T) {
		h := createTestHandler(t, &stubFetcher{err: stderrors.New("connection refused")})
		_, err := h.Execute(context.Background(), createTestInput("area"))
		require.Error(t, err)

		stdErr := errors.FromError(err)
		assert.Equal(t, errors.ErrCodeCandidatePoolUnavailable, stdErr.Code)
		assert.Equal(t, 2, errors.RemainingRetries(stdErr, 3))
	})
}

func TestExecute_WithDatabaseDirectory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM providers").WillReturnRows(sqlmock.NewRows([]string{
		"id", "postal_code", "serviced_prefixes", "latitude", "longitude", "rating",
		"experience_months", "completed_jobs", "hourly_rate", "service_types", "active",
	}))

	dir := directory.New(db, nil, nil, directory.Config{AreaPrefixLength: 3, RegionPrefixLength: 2}, logger.NewTestLogger(t))
	h := createTestHandler(t, dir)

	output, err := h.Execute(context.Background(), createTestInput("area"))
	require.NoError(t, err)
	assert.Equal(t, directory.SourceDatabase, output.Source)
	assert.NotNil(t, output.Candidates)
	assert.NoError(t, mock.ExpectationsWereMet())
}
