package matching

import "time"

// ==========================
// Test Helper Functions
// ==========================

const testService = "standard-cleaning"

var (
	testNow   = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	testStart = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
}

func floatPtr(v float64) *float64 {
	return &v
}

func testRequest() BookingRequest {
	return BookingRequest{
		RequestID:   "req-1",
		ServiceType: testService,
		Location:    Location{PostalCode: "10001"},
		TimeWindow:  TimeWindow{Start: testStart, Duration: 2 * time.Hour},
	}
}

// testCandidate is active, offers testService and is free all day on 2024-06-01.
func testCandidate(id, postal string) CandidateProvider {
	return CandidateProvider{
		ProviderID:        id,
		PostalCode:        postal,
		Rating:            floatPtr(4.0),
		ExperienceMonths:  24,
		CompletedJobCount: 20,
		HourlyRate:        30,
		ServiceTypes:      []string{testService},
		DeclaredAvailability: DeclaredAvailability{
			Windows: []Interval{{Start: at(0, 0), End: at(23, 59)}},
		},
		Active: true,
	}
}

func testValidator() *Validator {
	return &Validator{Now: func() time.Time { return testNow }}
}

func testEngine() *Engine {
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		panic(err)
	}
	e.validator.Now = func() time.Time { return testNow }
	return e
}
