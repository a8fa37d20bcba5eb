package consumer

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/hotel-booking/pkg/mq"
	"github.com/you/hotel-booking/services/hotel-service/internal/domain"
	"github.com/you/hotel-booking/services/hotel-service/internal/events"
)

type InventoryAPI interface {
	HandleBookingCreated(ctx context.Context, hotelID string, roomNumber int, bookingID string) error
	HandleBookingCancelled(ctx context.Context, hotelID string, roomNumber int, bookingID string) error
}

// BookingConsumer applies room lock/unlock off the booking-events exchange.
type BookingConsumer struct {
	svc  InventoryAPI
	cons *mq.Consumer
	log  *zap.SugaredLogger
}

func NewBookingConsumer(svc InventoryAPI, cons *mq.Consumer, log *zap.SugaredLogger) *BookingConsumer {
	return &BookingConsumer{svc: svc, cons: cons, log: log}
}

func (c *BookingConsumer) Run(ctx context.Context) error {
	return c.cons.Run(ctx, c.Handle)
}

func (c *BookingConsumer) Handle(ctx context.Context, d amqp.Delivery) mq.Outcome {
	switch d.RoutingKey {
	case events.RKBookingCreated, events.RKBookingCancelled:
	default:
		return mq.Ack
	}

	ev, err := events.Decode[events.BookingChange](d.Body)
	if err != nil || ev.HotelID == "" || ev.RoomNumber == 0 {
		c.log.Errorw("malformed booking event", "key", d.RoutingKey, "err", err)
		return mq.Drop
	}

	if d.RoutingKey == events.RKBookingCreated {
		err = c.svc.HandleBookingCreated(ctx, ev.HotelID, ev.RoomNumber, ev.BookingID)
	} else {
		err = c.svc.HandleBookingCancelled(ctx, ev.HotelID, ev.RoomNumber, ev.BookingID)
	}
	switch {
	case err == nil:
		return mq.Ack
	case errors.Is(err, domain.ErrHotelNotFound), errors.Is(err, domain.ErrRoomNotFound):
		// unknown inventory is not retryable; log and move on
		c.log.Errorw("booking event for unknown room", "key", d.RoutingKey,
			"bookingId", ev.BookingID, "hotelId", ev.HotelID, "roomNumber", ev.RoomNumber)
		return mq.Drop
	default:
		c.log.Errorw("availability update failed", "key", d.RoutingKey, "bookingId", ev.BookingID, "err", err)
		return mq.Retry
	}
}
