package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/you/hotel-booking/services/wallet-service/internal/domain"
	"github.com/you/hotel-booking/services/wallet-service/internal/events"
)

const cacheTTL = 5 * time.Minute

// Store is the persistence port; all multi-field mutations are atomic per
// wallet, and Capture/Transfer are atomic across both wallets involved.
type Store interface {
	ByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	All(ctx context.Context) ([]domain.Wallet, error)
	Credit(ctx context.Context, userID string, amount int64, role string) (*domain.Wallet, error)
	AddHold(ctx context.Context, userID, bookingID string, amount int64) (*domain.Wallet, error)
	RemoveHold(ctx context.Context, userID, bookingID string) (*domain.Wallet, bool, error)
	Capture(ctx context.Context, userID, bookingID, ownerID string) (int64, error)
	Transfer(ctx context.Context, userID, ownerID string, amount int64) error
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type WalletSvc struct {
	store   Store
	pub     Publisher
	cache   *redis.Client
	ownerID string
	log     *zap.SugaredLogger
}

func NewWalletSvc(store Store, pub Publisher, cache *redis.Client, ownerID string, log *zap.SugaredLogger) *WalletSvc {
	return &WalletSvc{store: store, pub: pub, cache: cache, ownerID: ownerID, log: log}
}

func (s *WalletSvc) LoadMoney(ctx context.Context, userID string, amount int64, role string) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	w, err := s.store.Credit(ctx, userID, amount, role)
	if err != nil {
		return nil, err
	}
	s.updateCache(ctx, w)
	return w, nil
}

func (s *WalletSvc) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	if w := s.fromCache(ctx, userID); w != nil {
		return w, nil
	}
	w, err := s.store.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.updateCache(ctx, w)
	return w, nil
}

func (s *WalletSvc) AllWallets(ctx context.Context) ([]domain.Wallet, error) {
	return s.store.All(ctx)
}

// HoldMoney earmarks amount for bookingID and publishes wallet.hold.confirmed.
// A redelivered request for a booking that already holds funds re-publishes
// the confirmation instead of double-reserving.
func (s *WalletSvc) HoldMoney(ctx context.Context, userID, bookingID string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	w, err := s.store.AddHold(ctx, userID, bookingID, amount)
	if errors.Is(err, domain.ErrDuplicateHold) {
		s.log.Infow("hold already exists, re-confirming", "bookingId", bookingID, "userId", userID)
		return s.pub.PublishJSON(ctx, events.RKHoldConfirmed,
			events.HoldConfirmed{BookingID: bookingID, UserID: userID, Amount: amount})
	}
	if err != nil {
		return err
	}
	s.updateCache(ctx, w)
	s.log.Infow("hold placed", "bookingId", bookingID, "userId", userID, "amount", amount, "available", w.Available())
	return s.pub.PublishJSON(ctx, events.RKHoldConfirmed,
		events.HoldConfirmed{BookingID: bookingID, UserID: userID, Amount: amount})
}

// ReleaseHold removes the hold if it still exists. Releasing twice, or
// releasing a hold that never existed, is a no-op.
func (s *WalletSvc) ReleaseHold(ctx context.Context, userID, bookingID string) error {
	w, released, err := s.store.RemoveHold(ctx, userID, bookingID)
	if errors.Is(err, domain.ErrWalletNotFound) {
		s.log.Infow("release for unknown wallet, skipping", "bookingId", bookingID, "userId", userID)
		return nil
	}
	if err != nil {
		return err
	}
	s.updateCache(ctx, w)
	if !released {
		s.log.Infow("release with no matching hold, skipping", "bookingId", bookingID, "userId", userID)
		return nil
	}
	return s.pub.PublishJSON(ctx, events.RKHoldReleased,
		events.HoldReleased{UserID: userID, BookingID: bookingID})
}

// Capture settles a previously placed hold into the owner wallet and
// publishes wallet.payment.confirmed.
func (s *WalletSvc) Capture(ctx context.Context, userID, bookingID string) error {
	amount, err := s.store.Capture(ctx, userID, bookingID, s.ownerID)
	if err != nil {
		return err
	}
	s.invalidateCache(ctx, userID, s.ownerID)
	s.log.Infow("hold captured", "bookingId", bookingID, "userId", userID, "amount", amount)
	return s.pub.PublishJSON(ctx, events.RKPaymentOK,
		events.PaymentConfirmed{BookingID: bookingID, UserID: userID, Amount: amount})
}

// PayForBooking is the direct-pay path: a plain debit/credit with no hold.
// It never touches the hold list; the two settlement paths stay separate.
func (s *WalletSvc) PayForBooking(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if err := s.store.Transfer(ctx, userID, s.ownerID, amount); err != nil {
		return err
	}
	s.invalidateCache(ctx, userID, s.ownerID)
	return nil
}

func (s *WalletSvc) fromCache(ctx context.Context, userID string) *domain.Wallet {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cacheKey(userID)).Result()
	if err != nil {
		return nil
	}
	var w domain.Wallet
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil
	}
	return &w
}

func (s *WalletSvc) updateCache(ctx context.Context, w *domain.Wallet) {
	if s.cache == nil || w == nil {
		return
	}
	b, err := json.Marshal(w)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(w.UserID), b, cacheTTL).Err(); err != nil {
		s.log.Warnw("wallet cache set failed", "userId", w.UserID, "err", err)
	}
}

func (s *WalletSvc) invalidateCache(ctx context.Context, userIDs ...string) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, cacheKey(id))
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.log.Warnw("wallet cache del failed", "keys", keys, "err", err)
	}
}

func cacheKey(userID string) string { return "wallet:" + userID }
