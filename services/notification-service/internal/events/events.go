package events

import (
	"encoding/json"
	"fmt"
)

// Routing keys on the booking-events exchange that produce a notification.
const (
	RKBookingConfirmed = "booking.confirmed"
	RKBookingCancelled = "booking.cancelled"
	RKBookingPaid      = "booking.payment.confirmed"
)

// BookingNotice carries everything needed to render mail, so the relay
// stays stateless and never calls back into the other services.
type BookingNotice struct {
	BookingID  string `json:"bookingId"`
	HotelID    string `json:"hotelId"`
	RoomNumber int    `json:"roomNumber"`
	UserEmail  string `json:"userEmail"`
	UserName   string `json:"userName"`
	HotelName  string `json:"hotelName"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Price      int64  `json:"price"`
	Status     string `json:"status"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
