// internal/workers/matching/reserve-provider-slot/models.go
package reserveproviderslot

import (
	"cleanmatch-workers/internal/matching"
	"cleanmatch-workers/internal/models"
)

// Input.Matches is the ranked list from rank-candidates, best first.
type Input struct {
	BookingRequest models.BookingRequest `json:"bookingRequest"`
	Matches        []matching.MatchScore `json:"matches"`
}

type Output struct {
	Reserved      bool   `json:"reserved"`
	ProviderID    string `json:"providerId,omitempty"`
	ReservationID string `json:"reservationId,omitempty"`
	Attempts      int    `json:"attempts"`
	Conflicts     int    `json:"conflicts"`
}
