// internal/workers/matching/validate-booking-request/models.go
package validatebookingrequest

import "cleanmatch-workers/internal/models"

// Input is the booking as submitted by the customer form.
type Input struct {
	models.BookingRequest
}

type Output struct {
	BookingRequest models.BookingRequest `json:"bookingRequest"`
	RequestValid   bool                  `json:"requestValid"`
}
