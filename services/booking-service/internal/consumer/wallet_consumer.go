package consumer

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/hotel-booking/pkg/mq"
	"github.com/you/hotel-booking/services/booking-service/internal/domain"
	"github.com/you/hotel-booking/services/booking-service/internal/events"
)

// WalletConsumer reacts to wallet confirmations and failures. The broker
// gives no ordering across queues, so a confirmation can arrive before the
// orchestrator's own write is visible: "booking not found" gets one
// redelivery before the message is dead-lettered.
type WalletConsumer struct {
	svc  SagaAPI
	cons *mq.Consumer
	log  *zap.SugaredLogger
}

func NewWalletConsumer(svc SagaAPI, cons *mq.Consumer, log *zap.SugaredLogger) *WalletConsumer {
	return &WalletConsumer{svc: svc, cons: cons, log: log}
}

func (c *WalletConsumer) Run(ctx context.Context) error {
	return c.cons.Run(ctx, c.Handle)
}

func (c *WalletConsumer) Handle(ctx context.Context, d amqp.Delivery) mq.Outcome {
	switch d.RoutingKey {
	case events.RKWalletHoldConfirmed:
		ev, err := events.Decode[events.WalletHoldConfirmed](d.Body)
		if err != nil || ev.BookingID == "" {
			c.log.Errorw("malformed hold confirmation", "key", d.RoutingKey, "err", err)
			return mq.Drop
		}
		return c.outcome(d, ev.BookingID, c.svc.ConfirmHold(ctx, ev.BookingID))

	case events.RKWalletHoldFailed:
		ev, err := events.Decode[events.WalletHoldFailed](d.Body)
		if err != nil || ev.BookingID == "" {
			c.log.Errorw("malformed hold failure", "key", d.RoutingKey, "err", err)
			return mq.Drop
		}
		if err := c.svc.MarkHoldFailed(ctx, ev.BookingID, ev.Reason); err != nil {
			c.log.Errorw("mark hold failed", "bookingId", ev.BookingID, "key", d.RoutingKey, "err", err)
			return mq.Retry
		}
		return mq.Ack

	case events.RKWalletPaymentOK:
		ev, err := events.Decode[events.WalletPaymentConfirmed](d.Body)
		if err != nil || ev.BookingID == "" {
			c.log.Errorw("malformed payment confirmation", "key", d.RoutingKey, "err", err)
			return mq.Drop
		}
		return c.outcome(d, ev.BookingID, c.svc.ConfirmPayment(ctx, ev.BookingID))

	case events.RKWalletPaymentFailed:
		ev, err := events.Decode[events.WalletPaymentFailed](d.Body)
		if err != nil || ev.BookingID == "" {
			c.log.Errorw("malformed payment failure", "key", d.RoutingKey, "err", err)
			return mq.Drop
		}
		// the hold is still active; the booking stays booked and the
		// user may retry payment
		c.log.Warnw("payment failed", "bookingId", ev.BookingID, "reason", ev.Reason)
		return mq.Ack

	default:
		return mq.Ack
	}
}

func (c *WalletConsumer) outcome(d amqp.Delivery, bookingID string, err error) mq.Outcome {
	switch {
	case err == nil:
		return mq.Ack
	case errors.Is(err, domain.ErrNotFound):
		if d.Redelivered {
			c.log.Errorw("booking still unknown after redelivery, dead-lettering",
				"bookingId", bookingID, "key", d.RoutingKey)
			return mq.Drop
		}
		c.log.Infow("booking not visible yet, retrying", "bookingId", bookingID, "key", d.RoutingKey)
		return mq.Retry
	default:
		c.log.Errorw("wallet event handling failed", "bookingId", bookingID, "key", d.RoutingKey, "err", err)
		return mq.Retry
	}
}
