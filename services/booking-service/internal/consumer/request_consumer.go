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

// SagaAPI narrows BookingSvc to the transitions the consumers invoke.
type SagaAPI interface {
	ProcessRequest(ctx context.Context, bookingID string) error
	ConfirmHold(ctx context.Context, bookingID string) error
	MarkHoldFailed(ctx context.Context, bookingID, reason string) error
	ConfirmPayment(ctx context.Context, bookingID string) error
	Cancel(ctx context.Context, userID, bookingID string) error
}

// RequestConsumer drives the saga off the booking-requests exchange.
type RequestConsumer struct {
	svc  SagaAPI
	cons *mq.Consumer
	log  *zap.SugaredLogger
}

func NewRequestConsumer(svc SagaAPI, cons *mq.Consumer, log *zap.SugaredLogger) *RequestConsumer {
	return &RequestConsumer{svc: svc, cons: cons, log: log}
}

func (c *RequestConsumer) Run(ctx context.Context) error {
	return c.cons.Run(ctx, c.Handle)
}

func (c *RequestConsumer) Handle(ctx context.Context, d amqp.Delivery) mq.Outcome {
	switch d.RoutingKey {
	case events.RKBookingRequest:
		ev, err := events.Decode[events.BookingRequest](d.Body)
		if err != nil || ev.BookingID == "" {
			c.log.Errorw("malformed booking request", "key", d.RoutingKey, "err", err)
			return mq.Drop
		}
		if err := c.svc.ProcessRequest(ctx, ev.BookingID); err != nil {
			c.log.Errorw("process booking request", "bookingId", ev.BookingID, "key", d.RoutingKey, "err", err)
			return mq.Retry
		}
		return mq.Ack

	case events.RKBookingCancel:
		ev, err := events.Decode[events.BookingCancel](d.Body)
		if err != nil || ev.BookingID == "" || ev.UserID == "" {
			c.log.Errorw("malformed cancel request", "key", d.RoutingKey, "err", err)
			return mq.Drop
		}
		err = c.svc.Cancel(ctx, ev.UserID, ev.BookingID)
		switch {
		case err == nil:
			return mq.Ack
		case errors.Is(err, domain.ErrNotFound),
			errors.Is(err, domain.ErrUnauthorized),
			errors.Is(err, domain.ErrTerminalState),
			errors.Is(err, domain.ErrNotCancellable):
			// nothing redelivery could fix
			c.log.Infow("cancel rejected", "bookingId", ev.BookingID, "key", d.RoutingKey, "reason", err)
			return mq.Ack
		default:
			c.log.Errorw("cancel failed", "bookingId", ev.BookingID, "key", d.RoutingKey, "err", err)
			return mq.Retry
		}

	default:
		return mq.Ack
	}
}
