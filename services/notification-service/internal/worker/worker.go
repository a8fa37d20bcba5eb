package worker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/hotel-booking/pkg/mq"
	"github.com/you/hotel-booking/services/notification-service/internal/events"
	"github.com/you/hotel-booking/services/notification-service/internal/notifier"
)

// Worker turns booking lifecycle events into user-facing mail. It keeps no
// state of its own: every delivery is rendered straight from the payload.
type Worker struct {
	cons *mq.Consumer
	out  notifier.Notifier
	log  *zap.SugaredLogger
}

func New(cons *mq.Consumer, out notifier.Notifier, log *zap.SugaredLogger) *Worker {
	return &Worker{cons: cons, out: out, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	return w.cons.Run(ctx, w.Handle)
}

func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) mq.Outcome {
	ev, err := events.Decode[events.BookingNotice](d.Body)
	if err != nil {
		w.log.Errorw("malformed notice", "key", d.RoutingKey, "err", err)
		return mq.Drop
	}
	if ev.UserEmail == "" {
		// nowhere to deliver; the originating service already logged the
		// degraded profile lookup
		w.log.Warnw("notice without recipient, skipping", "bookingId", ev.BookingID, "key", d.RoutingKey)
		return mq.Ack
	}

	m, ok := render(d.RoutingKey, ev)
	if !ok {
		return mq.Ack
	}
	if err := w.out.Send(ctx, m); err != nil {
		w.log.Errorw("send notification", "bookingId", ev.BookingID, "to", ev.UserEmail, "err", err)
		return mq.Retry
	}
	w.log.Infow("notification sent", "bookingId", ev.BookingID, "to", ev.UserEmail, "key", d.RoutingKey)
	return mq.Ack
}

func render(key string, ev events.BookingNotice) (notifier.Message, bool) {
	stay := fmt.Sprintf("%s, room %d, %s to %s", ev.HotelName, ev.RoomNumber, ev.StartDate, ev.EndDate)
	switch key {
	case events.RKBookingConfirmed:
		return notifier.Message{
			To:      ev.UserEmail,
			Subject: fmt.Sprintf("Booking confirmed: %s", ev.HotelName),
			Body: fmt.Sprintf("Hello %s,\n\nYour booking %s is confirmed.\n%s\nAmount held: %d\n\nComplete the payment to finalize your stay.",
				ev.UserName, ev.BookingID, stay, ev.Price),
		}, true
	case events.RKBookingPaid:
		return notifier.Message{
			To:      ev.UserEmail,
			Subject: fmt.Sprintf("Payment received: %s", ev.HotelName),
			Body: fmt.Sprintf("Hello %s,\n\nWe received your payment of %d for booking %s.\n%s\n\nEnjoy your stay!",
				ev.UserName, ev.Price, ev.BookingID, stay),
		}, true
	case events.RKBookingCancelled:
		return notifier.Message{
			To:      ev.UserEmail,
			Subject: fmt.Sprintf("Booking cancelled: %s", ev.HotelName),
			Body: fmt.Sprintf("Hello %s,\n\nYour booking %s has been cancelled.\n%s\nAny held funds have been released.",
				ev.UserName, ev.BookingID, stay),
		}, true
	default:
		return notifier.Message{}, false
	}
}
