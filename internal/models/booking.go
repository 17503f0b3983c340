// internal/models/booking.go
package models

import (
	"time"

	"cleanmatch-workers/internal/matching"
)

// BookingRequest is the booking as it travels through process variables.
// Durations are whole minutes so BPMN forms and FEEL expressions can set them.
type BookingRequest struct {
	RequestID     string            `json:"requestId"`
	ServiceType   string            `json:"serviceType"`
	Location      matching.Location `json:"location"`
	TimeWindow    TimeWindow        `json:"timeWindow"`
	BudgetCeiling *float64          `json:"budgetCeiling,omitempty"`
}

type TimeWindow struct {
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"durationMinutes"`
}

func (b BookingRequest) ToDomain() matching.BookingRequest {
	return matching.BookingRequest{
		RequestID:   b.RequestID,
		ServiceType: b.ServiceType,
		Location:    b.Location,
		TimeWindow: matching.TimeWindow{
			Start:    b.TimeWindow.Start,
			Duration: time.Duration(b.TimeWindow.DurationMinutes) * time.Minute,
		},
		BudgetCeiling: b.BudgetCeiling,
	}
}

func BookingRequestFromDomain(r matching.BookingRequest) BookingRequest {
	return BookingRequest{
		RequestID:   r.RequestID,
		ServiceType: r.ServiceType,
		Location:    r.Location,
		TimeWindow: TimeWindow{
			Start:           r.TimeWindow.Start.UTC(),
			DurationMinutes: int(r.TimeWindow.Duration / time.Minute),
		},
		BudgetCeiling: r.BudgetCeiling,
	}
}
