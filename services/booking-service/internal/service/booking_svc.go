package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/you/hotel-booking/services/booking-service/internal/domain"
	"github.com/you/hotel-booking/services/booking-service/internal/events"
	"github.com/you/hotel-booking/services/booking-service/internal/integrations/hotelservice"
	"github.com/you/hotel-booking/services/booking-service/internal/integrations/userservice"
)

const searchCacheTTL = 5 * time.Minute

var provisional = []string{domain.StatusPending, domain.StatusProcessing}

type Store interface {
	CreateIfNoConflict(ctx context.Context, b *domain.Booking) error
	ByID(ctx context.Context, id string) (*domain.Booking, error)
	ByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	UpdateStatusFrom(ctx context.Context, id string, from []string, to string) (*domain.Booking, bool, error)
	PromoteToBooked(ctx context.Context, id string) (*domain.Booking, bool, bool, error)
	StaleProvisional(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type HotelGateway interface {
	RoomPrice(ctx context.Context, hotelID string, roomNumber int) (int64, error)
	HotelName(ctx context.Context, hotelID string) string
	Search(ctx context.Context, location string) ([]hotelservice.Hotel, error)
}

type UserGateway interface {
	Profile(ctx context.Context, userID string) (userservice.Profile, error)
}

// BookingSvc drives a booking through
// pending → processing → booked → paid, with failed/cancelled as the
// compensated exits. The hold amount always equals the captured room price;
// no service fee is added on top.
type BookingSvc struct {
	store      Store
	requestPub Publisher // booking-requests exchange
	walletPub  Publisher // wallet-events exchange
	eventPub   Publisher // booking-events exchange
	hotels     HotelGateway
	users      UserGateway
	cache      *redis.Client
	log        *zap.SugaredLogger
}

func NewBookingSvc(store Store, requestPub, walletPub, eventPub Publisher, hotels HotelGateway, users UserGateway, cache *redis.Client, log *zap.SugaredLogger) *BookingSvc {
	return &BookingSvc{
		store:      store,
		requestPub: requestPub,
		walletPub:  walletPub,
		eventPub:   eventPub,
		hotels:     hotels,
		users:      users,
		cache:      cache,
		log:        log,
	}
}

// Create admits a booking request: date validation, authoritative conflict
// check against the booking store, price capture from the hotel service,
// then a pending row plus the booking.request event. The inventory lock is
// published only once the hold confirms, so a booking that never gets
// funded never flips the room flag. Completion is asynchronous; callers
// poll the status.
func (s *BookingSvc) Create(ctx context.Context, userID, hotelID string, roomNumber int, start, end time.Time) (*domain.Booking, error) {
	if !end.After(start) {
		return nil, domain.ErrInvalidDates
	}

	price, err := s.hotels.RoomPrice(ctx, hotelID, roomNumber)
	if err != nil {
		return nil, err
	}

	b := &domain.Booking{
		HotelID:    hotelID,
		RoomNumber: roomNumber,
		UserID:     userID,
		StartDate:  start.UTC(),
		EndDate:    end.UTC(),
		Price:      price,
		Status:     domain.StatusPending,
	}
	if err := s.store.CreateIfNoConflict(ctx, b); err != nil {
		return nil, err
	}

	if err := s.requestPub.PublishJSON(ctx, events.RKBookingRequest, events.BookingRequest{
		BookingID: b.ID,
		UserID:    b.UserID,
	}); err != nil {
		// the reaper will fail the booking if the request never arrives
		s.log.Errorw("publish booking.request", "bookingId", b.ID, "err", err)
	}
	s.log.Infow("booking admitted", "bookingId", b.ID, "hotelId", hotelID, "roomNumber", roomNumber, "price", price)
	return b, nil
}

// ProcessRequest moves pending → processing and asks the wallet to hold the
// captured price. Redelivery for a booking already past pending is a no-op.
func (s *BookingSvc) ProcessRequest(ctx context.Context, bookingID string) error {
	b, changed, err := s.store.UpdateStatusFrom(ctx, bookingID,
		[]string{domain.StatusPending}, domain.StatusProcessing)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Infow("booking.request for unknown booking, skipping", "bookingId", bookingID)
		return nil
	}
	if err != nil {
		return err
	}
	if !changed {
		s.log.Infow("booking.request redelivered, already processed", "bookingId", bookingID, "status", b.Status)
		return nil
	}

	if err := s.walletPub.PublishJSON(ctx, events.RKWalletHold, events.WalletHold{
		UserID:    b.UserID,
		BookingID: b.ID,
		Amount:    b.Price,
	}); err != nil {
		s.log.Errorw("publish wallet.hold", "bookingId", b.ID, "err", err)
		s.failBooking(ctx, b.ID)
	}
	return nil
}

// ConfirmHold promotes the booking to booked once the wallet confirms the
// hold, then publishes the inventory lock and the notification. If another
// booking won the room between admission and now, this one fails and its
// hold is released instead.
func (s *BookingSvc) ConfirmHold(ctx context.Context, bookingID string) error {
	b, changed, conflict, err := s.store.PromoteToBooked(ctx, bookingID)
	if err != nil {
		return err
	}
	if conflict {
		// the loser never published booking.created, so there is no room
		// flag to undo; releasing its hold is the whole compensation
		s.log.Warnw("room taken before hold confirmed, compensating", "bookingId", bookingID)
		if err := s.walletPub.PublishJSON(ctx, events.RKWalletRelease, events.WalletRelease{
			UserID: b.UserID, BookingID: b.ID,
		}); err != nil {
			s.log.Errorw("publish wallet.release", "bookingId", b.ID, "err", err)
		}
		s.failBooking(ctx, b.ID)
		return nil
	}
	if !changed {
		s.log.Infow("hold confirmation redelivered, no transition", "bookingId", bookingID, "status", b.Status)
		return nil
	}

	if err := s.eventPub.PublishJSON(ctx, events.RKBookingCreated, events.BookingCreated{
		BookingID:  b.ID,
		HotelID:    b.HotelID,
		RoomNumber: b.RoomNumber,
		UserID:     b.UserID,
		StartDate:  b.StartDate.Format(time.RFC3339),
		EndDate:    b.EndDate.Format(time.RFC3339),
	}); err != nil {
		// the flag is advisory; the booking store already guards the dates
		s.log.Errorw("publish booking.created", "bookingId", b.ID, "err", err)
	}
	// lookup failures degrade the notification, never the booking
	s.publishNotice(ctx, events.RKBookingConfirmed, b)
	return nil
}

// MarkHoldFailed is the compensating transition for a failed or rejected
// hold.
func (s *BookingSvc) MarkHoldFailed(ctx context.Context, bookingID, reason string) error {
	b, changed, err := s.store.UpdateStatusFrom(ctx, bookingID, provisional, domain.StatusFailed)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Infow("hold failure for unknown booking, skipping", "bookingId", bookingID)
		return nil
	}
	if err != nil {
		return err
	}
	if changed {
		s.log.Infow("booking failed", "bookingId", bookingID, "reason", reason)
	} else {
		s.log.Infow("hold failure redelivered, no transition", "bookingId", bookingID, "status", b.Status)
	}
	return nil
}

// RequestPayment accepts a capture request for a booked booking; settlement
// is asynchronous via wallet.payment.request.
func (s *BookingSvc) RequestPayment(ctx context.Context, userID, bookingID string) error {
	b, err := s.store.ByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return domain.ErrUnauthorized
	}
	if b.Status != domain.StatusBooked {
		return domain.ErrNotPayable
	}
	return s.walletPub.PublishJSON(ctx, events.RKWalletPaymentRequest, events.WalletPaymentRequest{
		BookingID: b.ID,
		UserID:    b.UserID,
		Amount:    b.Price,
	})
}

// ConfirmPayment finishes the saga: booked → paid.
func (s *BookingSvc) ConfirmPayment(ctx context.Context, bookingID string) error {
	b, changed, err := s.store.UpdateStatusFrom(ctx, bookingID,
		[]string{domain.StatusBooked}, domain.StatusPaid)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Infow("payment confirmation for unknown booking, skipping", "bookingId", bookingID)
		return nil
	}
	if err != nil {
		return err
	}
	if !changed {
		s.log.Infow("payment confirmation redelivered, no transition", "bookingId", bookingID, "status", b.Status)
		return nil
	}
	s.publishNotice(ctx, events.RKBookingPaid, b)
	return nil
}

// Cancel releases the funds hold and frees the room. Only booked bookings
// are cancellable: before the hold exists there is nothing to release, and
// terminal bookings stay terminal.
func (s *BookingSvc) Cancel(ctx context.Context, userID, bookingID string) error {
	b, err := s.store.ByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return domain.ErrUnauthorized
	}
	if b.Terminal() {
		return domain.ErrTerminalState
	}

	b, changed, err := s.store.UpdateStatusFrom(ctx, bookingID,
		[]string{domain.StatusBooked}, domain.StatusCancelled)
	if err != nil {
		return err
	}
	if !changed {
		if b.Terminal() {
			return domain.ErrTerminalState
		}
		return domain.ErrNotCancellable
	}

	if err := s.walletPub.PublishJSON(ctx, events.RKWalletRelease, events.WalletRelease{
		UserID:    b.UserID,
		BookingID: b.ID,
	}); err != nil {
		s.log.Errorw("publish wallet.release", "bookingId", b.ID, "err", err)
	}
	s.publishCancelled(ctx, b)
	s.log.Infow("booking cancelled", "bookingId", b.ID)
	return nil
}

func (s *BookingSvc) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return s.store.ByID(ctx, id)
}

func (s *BookingSvc) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.store.ByUser(ctx, userID)
}

// SearchHotels proxies the hotel search with a short-lived cache so the
// booking UI does not hammer the hotel service.
func (s *BookingSvc) SearchHotels(ctx context.Context, location string) ([]hotelservice.Hotel, error) {
	key := "hotels:search:" + location
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Result(); err == nil {
			var out []hotelservice.Hotel
			if json.Unmarshal([]byte(raw), &out) == nil {
				return out, nil
			}
		}
	}
	out, err := s.hotels.Search(ctx, location)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(out) > 0 {
		if b, err := json.Marshal(out); err == nil {
			_ = s.cache.Set(ctx, key, b, searchCacheTTL).Err()
		}
	}
	return out, nil
}

func (s *BookingSvc) failBooking(ctx context.Context, bookingID string) {
	if _, _, err := s.store.UpdateStatusFrom(ctx, bookingID, provisional, domain.StatusFailed); err != nil {
		s.log.Errorw("mark booking failed", "bookingId", bookingID, "err", err)
	}
}

// publishNotice sends the denormalized payload the notification relay
// renders from. Profile/name lookups run best-effort.
func (s *BookingSvc) publishNotice(ctx context.Context, key string, b *domain.Booking) {
	notice := s.notice(ctx, b)
	if err := s.eventPub.PublishJSON(ctx, key, notice); err != nil {
		s.log.Errorw("publish notice", "bookingId", b.ID, "key", key, "err", err)
	}
}

func (s *BookingSvc) publishCancelled(ctx context.Context, b *domain.Booking) {
	// booking.cancelled doubles as the inventory unlock signal, so it
	// carries the natural keys alongside the notification fields
	s.publishNotice(ctx, events.RKBookingCancelled, b)
}

func (s *BookingSvc) notice(ctx context.Context, b *domain.Booking) events.BookingNotice {
	n := events.BookingNotice{
		BookingID:  b.ID,
		HotelID:    b.HotelID,
		RoomNumber: b.RoomNumber,
		UserName:   "Valued Customer",
		HotelName:  "Unknown Hotel",
		StartDate:  b.StartDate.Format(time.RFC3339),
		EndDate:    b.EndDate.Format(time.RFC3339),
		Price:      b.Price,
		Status:     b.Status,
	}
	if p, err := s.users.Profile(ctx, b.UserID); err == nil {
		n.UserEmail = p.Email
		n.UserName = p.Name
	} else {
		s.log.Warnw("profile lookup failed, degrading notification", "bookingId", b.ID, "userId", b.UserID, "err", err)
	}
	n.HotelName = s.hotels.HotelName(ctx, b.HotelID)
	return n
}
