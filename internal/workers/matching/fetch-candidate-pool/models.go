// internal/workers/matching/fetch-candidate-pool/models.go
package fetchcandidatepool

import (
	"cleanmatch-workers/internal/matching"
	"cleanmatch-workers/internal/models"
)

type Input struct {
	BookingRequest models.BookingRequest `json:"bookingRequest"`
	SearchScope    string                `json:"searchScope,omitempty"`
}

type Output struct {
	Candidates     []matching.CandidateProvider `json:"candidates"`
	CandidateCount int                          `json:"candidateCount"`
	Source         string                       `json:"source"`
	SearchScope    string                       `json:"searchScope"`
}
