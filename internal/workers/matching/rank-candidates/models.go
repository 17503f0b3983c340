// internal/workers/matching/rank-candidates/models.go
package rankcandidates

import (
	"cleanmatch-workers/internal/matching"
	"cleanmatch-workers/internal/models"
)

type Input struct {
	BookingRequest models.BookingRequest        `json:"bookingRequest"`
	Candidates     []matching.CandidateProvider `json:"candidates"`
	SearchScope    string                       `json:"searchScope,omitempty"`
}

// Output.SuggestedScope is set only when there are no matches and a wider
// search is still possible.
type Output struct {
	Matches        []matching.MatchScore       `json:"matches"`
	TopPick        *matching.MatchScore        `json:"topPick"`
	HasMatches     bool                        `json:"hasMatches"`
	ExcludedCount  int                         `json:"excludedCount"`
	Exclusions     matching.ExclusionCounts    `json:"exclusions"`
	Diagnostics    []matching.SkippedCandidate `json:"diagnostics"`
	SuggestedScope string                      `json:"suggestedScope"`
}
