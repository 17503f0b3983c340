// internal/workers/matching/notify-no-match/models.go
package notifynomatch

import (
	"cleanmatch-workers/internal/matching"
	"cleanmatch-workers/internal/models"
)

type Input struct {
	BookingRequest models.BookingRequest    `json:"bookingRequest"`
	ExcludedCount  int                      `json:"excludedCount"`
	Exclusions     matching.ExclusionCounts `json:"exclusions"`
	SearchScope    string                   `json:"searchScope,omitempty"`
	CustomerEmail  string                   `json:"customerEmail,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Channels       []string `json:"channels"`
}

const (
	ChannelSNS           = "sns"
	ChannelOpsEmail      = "ops-email"
	ChannelCustomerEmail = "customer-email"
)
