package domain

import (
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrWalletNotFound    = errors.New("wallet_not_found")
	ErrHoldNotFound      = errors.New("hold_not_found")
	ErrDuplicateHold     = errors.New("duplicate_hold")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrInvalidAmount     = errors.New("invalid_amount")
)

// Wallet is one user's balance plus the provisional holds against it.
// Balance is in the smallest currency unit.
type Wallet struct {
	UserID    string    `gorm:"primaryKey" json:"userId"`
	Balance   int64     `gorm:"not null" json:"balance"`
	Role      string    `gorm:"index" json:"role"`
	Holds     []Hold    `gorm:"foreignKey:WalletUserID;references:UserID" json:"holds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Hold earmarks part of the balance for one booking. A booking id appears
// at most once per wallet.
type Hold struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	WalletUserID string    `gorm:"index:idx_wallet_booking,unique" json:"-"`
	BookingID    string    `gorm:"index:idx_wallet_booking,unique" json:"bookingId"`
	Amount       int64     `gorm:"not null" json:"amount"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (w *Wallet) HeldTotal() int64 {
	var sum int64
	for _, h := range w.Holds {
		sum += h.Amount
	}
	return sum
}

// Available is the balance minus all active holds; it never goes negative
// as long as mutations go through AddHold/CaptureHold.
func (w *Wallet) Available() int64 {
	return w.Balance - w.HeldTotal()
}

func (w *Wallet) FindHold(bookingID string) (Hold, bool) {
	for _, h := range w.Holds {
		if h.BookingID == bookingID {
			return h, true
		}
	}
	return Hold{}, false
}

// AddHold validates and appends a hold in memory. Persisting it is the
// store's job, under the same wallet lock as this check.
func (w *Wallet) AddHold(bookingID string, amount int64) (Hold, error) {
	if amount <= 0 {
		return Hold{}, ErrInvalidAmount
	}
	if _, ok := w.FindHold(bookingID); ok {
		return Hold{}, ErrDuplicateHold
	}
	if w.Available() < amount {
		return Hold{}, ErrInsufficientFunds
	}
	h := Hold{WalletUserID: w.UserID, BookingID: bookingID, Amount: amount, CreatedAt: time.Now().UTC()}
	w.Holds = append(w.Holds, h)
	return h, nil
}

// RemoveHold drops the hold for bookingID if present. Removing an absent
// hold is not an error so release stays idempotent under redelivery.
func (w *Wallet) RemoveHold(bookingID string) bool {
	for i, h := range w.Holds {
		if h.BookingID == bookingID {
			w.Holds = append(w.Holds[:i], w.Holds[i+1:]...)
			return true
		}
	}
	return false
}

// CaptureHold converts the hold into a real debit: the hold is removed and
// the balance drops by its amount. The matching owner credit happens in the
// same store transaction.
func (w *Wallet) CaptureHold(bookingID string) (int64, error) {
	h, ok := w.FindHold(bookingID)
	if !ok {
		return 0, ErrHoldNotFound
	}
	w.RemoveHold(bookingID)
	w.Balance -= h.Amount
	return h.Amount, nil
}
