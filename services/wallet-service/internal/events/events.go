package events

import (
	"encoding/json"
	"fmt"
)

// Routing keys on the wallet-events exchange.
const (
	RKHold           = "wallet.hold"
	RKHoldConfirmed  = "wallet.hold.confirmed"
	RKHoldFailed     = "wallet.hold.failed"
	RKRelease        = "wallet.release"
	RKHoldReleased   = "wallet.hold.released"
	RKPaymentRequest = "wallet.payment.request"
	RKPaymentOK      = "wallet.payment.confirmed"
	RKPaymentFailed  = "wallet.payment.failed"
)

type HoldRequest struct {
	UserID    string `json:"userId"`
	BookingID string `json:"bookingId"`
	Amount    int64  `json:"amount"`
}

type ReleaseRequest struct {
	UserID    string `json:"userId"`
	BookingID string `json:"bookingId"`
}

type PaymentRequest struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"`
}

type HoldConfirmed struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"`
}

type HoldFailed struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Reason    string `json:"reason"`
}

type HoldReleased struct {
	UserID    string `json:"userId"`
	BookingID string `json:"bookingId"`
}

type PaymentConfirmed struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"`
}

type PaymentFailed struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Reason    string `json:"reason"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
