package events

import (
	"encoding/json"
	"fmt"
)

// Exchange routing keys. booking-requests drives the saga, wallet-events
// carries the funds-reservation protocol, booking-events fans out state
// changes to inventory and the notification relay.
const (
	RKBookingRequest = "booking.request"
	RKBookingCancel  = "booking.cancel"

	RKWalletHold           = "wallet.hold"
	RKWalletHoldConfirmed  = "wallet.hold.confirmed"
	RKWalletHoldFailed     = "wallet.hold.failed"
	RKWalletRelease        = "wallet.release"
	RKWalletPaymentRequest = "wallet.payment.request"
	RKWalletPaymentOK      = "wallet.payment.confirmed"
	RKWalletPaymentFailed  = "wallet.payment.failed"

	RKBookingCreated   = "booking.created"
	RKBookingConfirmed = "booking.confirmed"
	RKBookingCancelled = "booking.cancelled"
	RKBookingPaid      = "booking.payment.confirmed"
)

type BookingRequest struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	AuthToken string `json:"authToken,omitempty"`
}

type BookingCancel struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
}

type WalletHold struct {
	UserID    string `json:"userId"`
	BookingID string `json:"bookingId"`
	Amount    int64  `json:"amount"`
}

type WalletRelease struct {
	UserID    string `json:"userId"`
	BookingID string `json:"bookingId"`
}

type WalletPaymentRequest struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"`
}

type WalletHoldConfirmed struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"`
}

type WalletHoldFailed struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Reason    string `json:"reason"`
}

type WalletPaymentConfirmed struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"`
}

type WalletPaymentFailed struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Reason    string `json:"reason"`
}

// BookingCreated is consumed by the inventory side; it carries the natural
// keys plus dates so no lookup is needed on receipt.
type BookingCreated struct {
	BookingID  string `json:"bookingId"`
	HotelID    string `json:"hotelId"`
	RoomNumber int    `json:"roomNumber"`
	UserID     string `json:"userId"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

// BookingNotice is the denormalized payload for the notification relay:
// enough context to render mail without further lookups.
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
