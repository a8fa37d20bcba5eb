package domain

import (
	"errors"
	"time"
)

// Booking lifecycle. pending/processing are provisional; paid, cancelled
// and failed are terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusBooked     = "booked"
	StatusPaid       = "paid"
	StatusCancelled  = "cancelled"
	StatusFailed     = "failed"
)

var (
	ErrNotFound       = errors.New("booking_not_found")
	ErrConflict       = errors.New("booking_conflict")
	ErrInvalidDates   = errors.New("invalid_dates")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotPayable     = errors.New("booking_not_payable")
	ErrNotCancellable = errors.New("booking_not_cancellable")
	ErrTerminalState  = errors.New("booking_in_terminal_state")
	ErrUpstream       = errors.New("upstream_unavailable")
)

// Booking is one room-stay attempt. Price is captured at creation time and
// never changes afterwards. Dates are a half-open interval [StartDate, EndDate).
type Booking struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	HotelID    string    `gorm:"index" json:"hotelId"`
	RoomNumber int       `gorm:"index" json:"roomNumber"`
	UserID     string    `gorm:"index" json:"userId"`
	StartDate  time.Time `gorm:"index" json:"startDate"`
	EndDate    time.Time `gorm:"index" json:"endDate"`
	Price      int64     `json:"price"`
	Status     string    `gorm:"index" json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (b *Booking) Terminal() bool {
	switch b.Status {
	case StatusPaid, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Overlaps reports whether two half-open date intervals intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
