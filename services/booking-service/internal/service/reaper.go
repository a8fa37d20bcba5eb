package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/you/hotel-booking/services/booking-service/internal/domain"
	"github.com/you/hotel-booking/services/booking-service/internal/events"
)

// Reaper fails bookings stuck in pending/processing past a bound. A lost
// hold request or crashed wallet would otherwise leave bookings provisional
// forever; the compensating wallet.release is harmless when no hold exists.
type Reaper struct {
	store     Store
	walletPub Publisher
	maxAge    time.Duration
	interval  time.Duration
	log       *zap.SugaredLogger
}

func NewReaper(store Store, walletPub Publisher, maxAge, interval time.Duration, log *zap.SugaredLogger) *Reaper {
	return &Reaper{store: store, walletPub: walletPub, maxAge: maxAge, interval: interval, log: log}
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Infow("reaper started", "maxAge", r.maxAge, "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Reaper) Sweep(ctx context.Context) {
	stale, err := r.store.StaleProvisional(ctx, time.Now().Add(-r.maxAge))
	if err != nil {
		r.log.Errorw("list stale bookings", "err", err)
		return
	}
	for _, b := range stale {
		_, changed, err := r.store.UpdateStatusFrom(ctx, b.ID, provisional, domain.StatusFailed)
		if err != nil {
			r.log.Errorw("reap booking", "bookingId", b.ID, "err", err)
			continue
		}
		if !changed {
			continue
		}
		r.log.Warnw("booking timed out, failed", "bookingId", b.ID, "status", b.Status)
		if err := r.walletPub.PublishJSON(ctx, events.RKWalletRelease, events.WalletRelease{
			UserID:    b.UserID,
			BookingID: b.ID,
		}); err != nil {
			r.log.Errorw("publish wallet.release", "bookingId", b.ID, "err", err)
		}
	}
}
