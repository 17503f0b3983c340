// internal/workers/matching/check-provider-availability/models.go
package checkprovideravailability

import "cleanmatch-workers/internal/models"

type Input struct {
	ProviderID string            `json:"providerId"`
	TimeWindow models.TimeWindow `json:"timeWindow"`
}

type Output struct {
	ProviderID string `json:"providerId"`
	Available  bool   `json:"available"`
	Reason     string `json:"reason,omitempty"`
}

const (
	ReasonInactive    = "inactive"
	ReasonUnavailable = "unavailable"
)
