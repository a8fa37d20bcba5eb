package repository

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/hotel-booking/services/wallet-service/internal/domain"
)

// WalletRepo owns all wallet mutations. Every read-modify-write locks the
// wallet row FOR UPDATE so hold/release/capture on one wallet serialize;
// capture and transfer lock both wallets inside a single transaction.
type WalletRepo struct{ db *gorm.DB }

func NewWalletRepo(db *gorm.DB) *WalletRepo {
	return &WalletRepo{db: db}
}

func (r *WalletRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Wallet{}, &domain.Hold{})
}

func (r *WalletRepo) ByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.WithContext(ctx).Preload("Holds").First(&w, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepo) All(ctx context.Context) ([]domain.Wallet, error) {
	var out []domain.Wallet
	if err := r.db.WithContext(ctx).Preload("Holds").Order("user_id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Credit tops up the wallet, creating it on first load.
func (r *WalletRepo) Credit(ctx context.Context, userID string, amount int64, role string) (*domain.Wallet, error) {
	var out *domain.Wallet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := lockWallet(tx, userID)
		if errors.Is(err, domain.ErrWalletNotFound) {
			w = &domain.Wallet{UserID: userID, Balance: amount, Role: role}
			if err := tx.Create(w).Error; err != nil {
				return err
			}
			out = w
			return nil
		}
		if err != nil {
			return err
		}
		w.Balance += amount
		if role != "" {
			w.Role = role
		}
		if err := tx.Model(&domain.Wallet{}).Where("user_id = ?", userID).
			Updates(map[string]any{"balance": w.Balance, "role": w.Role}).Error; err != nil {
			return err
		}
		out = w
		return nil
	})
	return out, err
}

// AddHold appends a hold after checking available balance and duplicate
// booking ids under the wallet row lock.
func (r *WalletRepo) AddHold(ctx context.Context, userID, bookingID string, amount int64) (*domain.Wallet, error) {
	var out *domain.Wallet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := lockWallet(tx, userID)
		if err != nil {
			return err
		}
		h, err := w.AddHold(bookingID, amount)
		if err != nil {
			return err
		}
		if err := tx.Create(&h).Error; err != nil {
			return err
		}
		out = w
		return nil
	})
	return out, err
}

// RemoveHold deletes the matching hold if any. released reports whether a
// hold actually existed; absence is not an error.
func (r *WalletRepo) RemoveHold(ctx context.Context, userID, bookingID string) (*domain.Wallet, bool, error) {
	var (
		out      *domain.Wallet
		released bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := lockWallet(tx, userID)
		if err != nil {
			return err
		}
		if !w.RemoveHold(bookingID) {
			out = w
			return nil
		}
		if err := tx.Where("wallet_user_id = ? AND booking_id = ?", userID, bookingID).
			Delete(&domain.Hold{}).Error; err != nil {
			return err
		}
		released = true
		out = w
		return nil
	})
	return out, released, err
}

// Capture settles the hold for bookingID: the user wallet loses the hold and
// its amount, the owner wallet gains the same amount. Both rows are locked in
// a stable order and mutated in one transaction so money is neither created
// nor destroyed if anything fails part-way.
func (r *WalletRepo) Capture(ctx context.Context, userID, bookingID, ownerID string) (int64, error) {
	var captured int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, _, err := lockPair(tx, userID, ownerID)
		if err != nil {
			return err
		}
		amount, err := user.CaptureHold(bookingID)
		if err != nil {
			return err
		}
		if err := tx.Where("wallet_user_id = ? AND booking_id = ?", userID, bookingID).
			Delete(&domain.Hold{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Wallet{}).Where("user_id = ?", userID).
			Update("balance", user.Balance).Error; err != nil {
			return err
		}
		if err := creditOwner(tx, ownerID, amount); err != nil {
			return err
		}
		captured = amount
		return nil
	})
	return captured, err
}

// Transfer is the direct-pay path: debit user, credit owner, no hold involved.
func (r *WalletRepo) Transfer(ctx context.Context, userID, ownerID string, amount int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, _, err := lockPair(tx, userID, ownerID)
		if err != nil {
			return err
		}
		if user.Balance < amount {
			return domain.ErrInsufficientFunds
		}
		if err := tx.Model(&domain.Wallet{}).Where("user_id = ?", userID).
			Update("balance", user.Balance-amount).Error; err != nil {
			return err
		}
		return creditOwner(tx, ownerID, amount)
	})
}

func lockWallet(tx *gorm.DB, userID string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Holds").First(&w, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// lockPair locks both wallets in user-id order to avoid lock cycles between
// concurrent captures. The owner wallet may not exist yet; that is fine, it
// is created lazily on credit.
func lockPair(tx *gorm.DB, userID, ownerID string) (*domain.Wallet, *domain.Wallet, error) {
	ids := []string{userID, ownerID}
	sort.Strings(ids)
	got := map[string]*domain.Wallet{}
	for _, id := range ids {
		w, err := lockWallet(tx, id)
		if errors.Is(err, domain.ErrWalletNotFound) && id == ownerID {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		got[id] = w
	}
	user, ok := got[userID]
	if !ok {
		return nil, nil, domain.ErrWalletNotFound
	}
	return user, got[ownerID], nil
}

func creditOwner(tx *gorm.DB, ownerID string, amount int64) error {
	var owner domain.Wallet
	err := tx.First(&owner, "user_id = ?", ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&domain.Wallet{UserID: ownerID, Balance: amount, Role: domain.RoleAdmin}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&domain.Wallet{}).Where("user_id = ?", ownerID).
		Update("balance", owner.Balance+amount).Error
}
