package events

import (
	"encoding/json"
	"fmt"
)

// Routing keys on the booking-events exchange this service cares about.
const (
	RKBookingCreated   = "booking.created"
	RKBookingCancelled = "booking.cancelled"
)

// BookingChange is the slice of the booking payload the inventory side
// needs; extra fields in the message are ignored.
type BookingChange struct {
	BookingID  string `json:"bookingId"`
	HotelID    string `json:"hotelId"`
	RoomNumber int    `json:"roomNumber"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
