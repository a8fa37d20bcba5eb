package consumer

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/hotel-booking/pkg/mq"
	"github.com/you/hotel-booking/services/wallet-service/internal/domain"
	"github.com/you/hotel-booking/services/wallet-service/internal/events"
)

// WalletConsumer handles hold/release/capture requests off the wallet-events
// exchange. Business failures turn into failure events and an ack; only a
// store-level failure asks the broker to redeliver.
type WalletConsumer struct {
	svc  WalletAPI
	pub  publisher
	log  *zap.SugaredLogger
	cons *mq.Consumer
}

type publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// WalletAPI narrows WalletSvc to what the consumer needs.
type WalletAPI interface {
	HoldMoney(ctx context.Context, userID, bookingID string, amount int64) error
	ReleaseHold(ctx context.Context, userID, bookingID string) error
	Capture(ctx context.Context, userID, bookingID string) error
}

func NewWalletConsumer(svc WalletAPI, pub publisher, cons *mq.Consumer, log *zap.SugaredLogger) *WalletConsumer {
	return &WalletConsumer{svc: svc, pub: pub, cons: cons, log: log}
}

func (c *WalletConsumer) Run(ctx context.Context) error {
	return c.cons.Run(ctx, c.Handle)
}

func (c *WalletConsumer) Handle(ctx context.Context, d amqp.Delivery) mq.Outcome {
	switch d.RoutingKey {
	case events.RKHold:
		ev, err := events.Decode[events.HoldRequest](d.Body)
		if err != nil || ev.UserID == "" || ev.BookingID == "" {
			c.log.Errorw("malformed hold request", "key", d.RoutingKey, "err", err)
			return mq.Drop
		}
		return c.hold(ctx, ev)

	case events.RKRelease:
		ev, err := events.Decode[events.ReleaseRequest](d.Body)
		if err != nil || ev.UserID == "" || ev.BookingID == "" {
			c.log.Errorw("malformed release request", "key", d.RoutingKey, "err", err)
			return mq.Drop
		}
		if err := c.svc.ReleaseHold(ctx, ev.UserID, ev.BookingID); err != nil {
			c.log.Errorw("release failed", "bookingId", ev.BookingID, "key", d.RoutingKey, "err", err)
			return mq.Retry
		}
		return mq.Ack

	case events.RKPaymentRequest:
		ev, err := events.Decode[events.PaymentRequest](d.Body)
		if err != nil || ev.UserID == "" || ev.BookingID == "" {
			c.log.Errorw("malformed payment request", "key", d.RoutingKey, "err", err)
			return mq.Drop
		}
		return c.capture(ctx, ev)

	default:
		return mq.Ack
	}
}

func (c *WalletConsumer) hold(ctx context.Context, ev events.HoldRequest) mq.Outcome {
	err := c.svc.HoldMoney(ctx, ev.UserID, ev.BookingID, ev.Amount)
	switch {
	case err == nil:
		return mq.Ack
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrWalletNotFound),
		errors.Is(err, domain.ErrInvalidAmount):
		c.log.Infow("hold rejected", "bookingId", ev.BookingID, "userId", ev.UserID, "reason", err)
		if perr := c.pub.PublishJSON(ctx, events.RKHoldFailed, events.HoldFailed{
			BookingID: ev.BookingID, UserID: ev.UserID, Reason: err.Error(),
		}); perr != nil {
			c.log.Errorw("publish hold.failed", "bookingId", ev.BookingID, "err", perr)
			return mq.Retry
		}
		return mq.Ack
	default:
		c.log.Errorw("hold failed", "bookingId", ev.BookingID, "key", events.RKHold, "err", err)
		return mq.Retry
	}
}

func (c *WalletConsumer) capture(ctx context.Context, ev events.PaymentRequest) mq.Outcome {
	err := c.svc.Capture(ctx, ev.UserID, ev.BookingID)
	switch {
	case err == nil:
		return mq.Ack
	case errors.Is(err, domain.ErrHoldNotFound),
		errors.Is(err, domain.ErrWalletNotFound):
		// confirm without a prior hold is a protocol violation, not a
		// transient fault; surface it as a payment failure
		c.log.Errorw("capture without hold", "bookingId", ev.BookingID, "userId", ev.UserID, "err", err)
		if perr := c.pub.PublishJSON(ctx, events.RKPaymentFailed, events.PaymentFailed{
			BookingID: ev.BookingID, UserID: ev.UserID, Reason: err.Error(),
		}); perr != nil {
			c.log.Errorw("publish payment.failed", "bookingId", ev.BookingID, "err", perr)
			return mq.Retry
		}
		return mq.Ack
	default:
		c.log.Errorw("capture failed", "bookingId", ev.BookingID, "key", events.RKPaymentRequest, "err", err)
		return mq.Retry
	}
}
