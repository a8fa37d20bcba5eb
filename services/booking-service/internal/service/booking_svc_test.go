package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/hotel-booking/services/booking-service/internal/domain"
	"github.com/you/hotel-booking/services/booking-service/internal/events"
	"github.com/you/hotel-booking/services/booking-service/internal/integrations/hotelservice"
	"github.com/you/hotel-booking/services/booking-service/internal/integrations/userservice"
)

type fakeStore struct {
	bookings map[string]*domain.Booking
	nextID   int

	createErr       error
	promoteConflict bool
	stale           []domain.Booking
	staleErr        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: map[string]*domain.Booking{}}
}

func (f *fakeStore) put(b *domain.Booking) { f.bookings[b.ID] = b }

func (f *fakeStore) CreateIfNoConflict(_ context.Context, b *domain.Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	b.ID = "b-" + string(rune('0'+f.nextID))
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeStore) ByID(_ context.Context, id string) (*domain.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) ByUser(_ context.Context, userID string) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateStatusFrom(_ context.Context, id string, from []string, to string) (*domain.Booking, bool, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	for _, s := range from {
		if b.Status == s {
			b.Status = to
			cp := *b
			return &cp, true, nil
		}
	}
	cp := *b
	return &cp, false, nil
}

func (f *fakeStore) PromoteToBooked(_ context.Context, id string) (*domain.Booking, bool, bool, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, false, false, domain.ErrNotFound
	}
	if f.promoteConflict {
		cp := *b
		return &cp, false, true, nil
	}
	if b.Status == domain.StatusPending || b.Status == domain.StatusProcessing {
		b.Status = domain.StatusBooked
		cp := *b
		return &cp, true, false, nil
	}
	cp := *b
	return &cp, false, false, nil
}

func (f *fakeStore) StaleProvisional(context.Context, time.Time) ([]domain.Booking, error) {
	return f.stale, f.staleErr
}

type published struct {
	key string
	v   any
}

type fakePub struct {
	msgs []published
	err  error
}

func (f *fakePub) PublishJSON(_ context.Context, key string, v any) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{key: key, v: v})
	return nil
}

func (f *fakePub) keys() []string {
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.key)
	}
	return out
}

type fakeHotels struct {
	price     int64
	priceErr  error
	name      string
	results   []hotelservice.Hotel
	searchErr error
}

func (f *fakeHotels) RoomPrice(context.Context, string, int) (int64, error) {
	return f.price, f.priceErr
}

func (f *fakeHotels) HotelName(context.Context, string) string {
	if f.name == "" {
		return "Unknown Hotel"
	}
	return f.name
}

func (f *fakeHotels) Search(context.Context, string) ([]hotelservice.Hotel, error) {
	return f.results, f.searchErr
}

type fakeUsers struct {
	profile userservice.Profile
	err     error
}

func (f *fakeUsers) Profile(context.Context, string) (userservice.Profile, error) {
	return f.profile, f.err
}

type env struct {
	store      *fakeStore
	requestPub *fakePub
	walletPub  *fakePub
	eventPub   *fakePub
	hotels     *fakeHotels
	users      *fakeUsers
	svc        *BookingSvc
}

func newEnv() *env {
	e := &env{
		store:      newFakeStore(),
		requestPub: &fakePub{},
		walletPub:  &fakePub{},
		eventPub:   &fakePub{},
		hotels:     &fakeHotels{price: 2000, name: "Hotel Everest"},
		users:      &fakeUsers{profile: userservice.Profile{Email: "guest@example.com", Name: "Guest"}},
	}
	e.svc = NewBookingSvc(e.store, e.requestPub, e.walletPub, e.eventPub, e.hotels, e.users, nil, zap.NewNop().Sugar())
	return e
}

func dates(t *testing.T) (time.Time, time.Time) {
	t.Helper()
	start, err := time.Parse(time.RFC3339, "2026-09-10T14:00:00Z")
	require.NoError(t, err)
	return start, start.Add(48 * time.Hour)
}

func TestCreateAdmitsPendingAndPublishes(t *testing.T) {
	e := newEnv()
	start, end := dates(t)

	b, err := e.svc.Create(context.Background(), "u1", "h1", 101, start, end)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, b.Status)
	assert.Equal(t, int64(2000), b.Price)
	// the inventory lock only fires once the hold confirms
	assert.Empty(t, e.eventPub.msgs)
	assert.Equal(t, []string{events.RKBookingRequest}, e.requestPub.keys())

	req := e.requestPub.msgs[0].v.(events.BookingRequest)
	assert.Equal(t, b.ID, req.BookingID)
	assert.Equal(t, "u1", req.UserID)
}

func TestCreateRejectsInvertedDates(t *testing.T) {
	e := newEnv()
	start, end := dates(t)

	_, err := e.svc.Create(context.Background(), "u1", "h1", 101, end, start)
	assert.ErrorIs(t, err, domain.ErrInvalidDates)
	assert.Empty(t, e.eventPub.msgs)
	assert.Empty(t, e.store.bookings)
}

func TestCreateRejectsEqualDates(t *testing.T) {
	e := newEnv()
	start, _ := dates(t)

	_, err := e.svc.Create(context.Background(), "u1", "h1", 101, start, start)
	assert.ErrorIs(t, err, domain.ErrInvalidDates)
}

func TestCreatePriceLookupFailurePropagates(t *testing.T) {
	e := newEnv()
	e.hotels.priceErr = domain.ErrUpstream
	start, end := dates(t)

	_, err := e.svc.Create(context.Background(), "u1", "h1", 101, start, end)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Empty(t, e.store.bookings)
	assert.Empty(t, e.requestPub.msgs)
}

func TestCreateConflictPublishesNothing(t *testing.T) {
	e := newEnv()
	e.store.createErr = domain.ErrConflict
	start, end := dates(t)

	_, err := e.svc.Create(context.Background(), "u1", "h1", 101, start, end)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Empty(t, e.eventPub.msgs)
	assert.Empty(t, e.requestPub.msgs)
}

func TestProcessRequestHoldsCapturedPrice(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Price: 2500, Status: domain.StatusPending})

	require.NoError(t, e.svc.ProcessRequest(context.Background(), "b1"))

	assert.Equal(t, domain.StatusProcessing, e.store.bookings["b1"].Status)
	require.Equal(t, []string{events.RKWalletHold}, e.walletPub.keys())
	hold := e.walletPub.msgs[0].v.(events.WalletHold)
	assert.Equal(t, int64(2500), hold.Amount)
	assert.Equal(t, "u1", hold.UserID)
}

func TestProcessRequestRedeliveryIsNoop(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Price: 2500, Status: domain.StatusBooked})

	require.NoError(t, e.svc.ProcessRequest(context.Background(), "b1"))

	assert.Equal(t, domain.StatusBooked, e.store.bookings["b1"].Status)
	assert.Empty(t, e.walletPub.msgs)
}

func TestProcessRequestUnknownBookingIsNoop(t *testing.T) {
	e := newEnv()
	require.NoError(t, e.svc.ProcessRequest(context.Background(), "ghost"))
	assert.Empty(t, e.walletPub.msgs)
}

func TestProcessRequestHoldPublishFailureFailsBooking(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Price: 2500, Status: domain.StatusPending})
	e.walletPub.err = errors.New("broker gone")

	require.NoError(t, e.svc.ProcessRequest(context.Background(), "b1"))
	assert.Equal(t, domain.StatusFailed, e.store.bookings["b1"].Status)
}

func TestConfirmHoldBooksAndNotifies(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", HotelID: "h1", RoomNumber: 101,
		Price: 2000, Status: domain.StatusProcessing})

	require.NoError(t, e.svc.ConfirmHold(context.Background(), "b1"))

	assert.Equal(t, domain.StatusBooked, e.store.bookings["b1"].Status)
	require.Equal(t, []string{events.RKBookingCreated, events.RKBookingConfirmed}, e.eventPub.keys())
	lock := e.eventPub.msgs[0].v.(events.BookingCreated)
	assert.Equal(t, "h1", lock.HotelID)
	assert.Equal(t, 101, lock.RoomNumber)
	n := e.eventPub.msgs[1].v.(events.BookingNotice)
	assert.Equal(t, "guest@example.com", n.UserEmail)
	assert.Equal(t, "Guest", n.UserName)
	assert.Equal(t, "Hotel Everest", n.HotelName)
	assert.Equal(t, int64(2000), n.Price)
}

func TestConfirmHoldConflictCompensates(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", HotelID: "h1", RoomNumber: 101,
		Price: 2000, Status: domain.StatusProcessing})
	e.store.promoteConflict = true

	require.NoError(t, e.svc.ConfirmHold(context.Background(), "b1"))

	assert.Equal(t, domain.StatusFailed, e.store.bookings["b1"].Status)
	assert.Equal(t, []string{events.RKWalletRelease}, e.walletPub.keys())
	// the loser never locked the room, so no inventory event fires
	assert.Empty(t, e.eventPub.msgs)
}

func TestConfirmHoldRedeliveryIsNoop(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Status: domain.StatusBooked})

	require.NoError(t, e.svc.ConfirmHold(context.Background(), "b1"))
	assert.Empty(t, e.eventPub.msgs)
	assert.Empty(t, e.walletPub.msgs)
}

func TestConfirmHoldDegradesNotificationOnProfileFailure(t *testing.T) {
	e := newEnv()
	e.users.err = errors.New("user service down")
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", HotelID: "h1",
		Price: 2000, Status: domain.StatusProcessing})

	require.NoError(t, e.svc.ConfirmHold(context.Background(), "b1"))

	assert.Equal(t, domain.StatusBooked, e.store.bookings["b1"].Status)
	require.Len(t, e.eventPub.msgs, 2)
	n := e.eventPub.msgs[1].v.(events.BookingNotice)
	assert.Empty(t, n.UserEmail)
	assert.Equal(t, "Valued Customer", n.UserName)
}

func TestMarkHoldFailedFromProvisional(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Status: domain.StatusProcessing})

	require.NoError(t, e.svc.MarkHoldFailed(context.Background(), "b1", "insufficient_funds"))
	assert.Equal(t, domain.StatusFailed, e.store.bookings["b1"].Status)
}

func TestFailedHoldNeverLocksRoom(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", HotelID: "h1", RoomNumber: 101,
		Price: 2000, Status: domain.StatusPending})

	require.NoError(t, e.svc.ProcessRequest(context.Background(), "b1"))
	require.NoError(t, e.svc.MarkHoldFailed(context.Background(), "b1", "insufficient_funds"))

	assert.Equal(t, domain.StatusFailed, e.store.bookings["b1"].Status)
	assert.Empty(t, e.eventPub.msgs)
}

func TestMarkHoldFailedLeavesTerminalAlone(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Status: domain.StatusPaid})

	require.NoError(t, e.svc.MarkHoldFailed(context.Background(), "b1", "late failure"))
	assert.Equal(t, domain.StatusPaid, e.store.bookings["b1"].Status)
}

func TestRequestPaymentPublishesCapture(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Price: 2000, Status: domain.StatusBooked})

	require.NoError(t, e.svc.RequestPayment(context.Background(), "u1", "b1"))

	require.Equal(t, []string{events.RKWalletPaymentRequest}, e.walletPub.keys())
	req := e.walletPub.msgs[0].v.(events.WalletPaymentRequest)
	assert.Equal(t, int64(2000), req.Amount)
}

func TestRequestPaymentRejectsForeignBooking(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Status: domain.StatusBooked})

	err := e.svc.RequestPayment(context.Background(), "u2", "b1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, e.walletPub.msgs)
}

func TestRequestPaymentRequiresBookedStatus(t *testing.T) {
	e := newEnv()
	for _, status := range []string{domain.StatusPending, domain.StatusProcessing, domain.StatusPaid, domain.StatusFailed} {
		e.store.put(&domain.Booking{ID: "b-" + status, UserID: "u1", Status: status})
		err := e.svc.RequestPayment(context.Background(), "u1", "b-"+status)
		assert.ErrorIs(t, err, domain.ErrNotPayable, status)
	}
	assert.Empty(t, e.walletPub.msgs)
}

func TestConfirmPaymentFinishesSaga(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", HotelID: "h1",
		Price: 2000, Status: domain.StatusBooked})

	require.NoError(t, e.svc.ConfirmPayment(context.Background(), "b1"))

	assert.Equal(t, domain.StatusPaid, e.store.bookings["b1"].Status)
	assert.Equal(t, []string{events.RKBookingPaid}, e.eventPub.keys())
}

func TestConfirmPaymentRedeliveryIsNoop(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Status: domain.StatusPaid})

	require.NoError(t, e.svc.ConfirmPayment(context.Background(), "b1"))
	assert.Empty(t, e.eventPub.msgs)
}

func TestCancelBookedReleasesHoldAndUnlocksRoom(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", HotelID: "h1", RoomNumber: 101,
		Price: 2000, Status: domain.StatusBooked})

	require.NoError(t, e.svc.Cancel(context.Background(), "u1", "b1"))

	assert.Equal(t, domain.StatusCancelled, e.store.bookings["b1"].Status)
	assert.Equal(t, []string{events.RKWalletRelease}, e.walletPub.keys())
	require.Equal(t, []string{events.RKBookingCancelled}, e.eventPub.keys())
	n := e.eventPub.msgs[0].v.(events.BookingNotice)
	assert.Equal(t, "h1", n.HotelID)
	assert.Equal(t, 101, n.RoomNumber)
}

func TestCancelRejectsForeignBooking(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Status: domain.StatusBooked})

	err := e.svc.Cancel(context.Background(), "u2", "b1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, domain.StatusBooked, e.store.bookings["b1"].Status)
}

func TestCancelTerminalStates(t *testing.T) {
	e := newEnv()
	for _, status := range []string{domain.StatusPaid, domain.StatusCancelled, domain.StatusFailed} {
		e.store.put(&domain.Booking{ID: "b-" + status, UserID: "u1", Status: status})
		err := e.svc.Cancel(context.Background(), "u1", "b-"+status)
		assert.ErrorIs(t, err, domain.ErrTerminalState, status)
		assert.Equal(t, status, e.store.bookings["b-"+status].Status)
	}
	assert.Empty(t, e.walletPub.msgs)
}

func TestCancelBeforeHoldIsRejected(t *testing.T) {
	e := newEnv()
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Status: domain.StatusPending})

	err := e.svc.Cancel(context.Background(), "u1", "b1")
	assert.ErrorIs(t, err, domain.ErrNotCancellable)
	assert.Empty(t, e.walletPub.msgs)
}

func TestSearchHotelsPassesThroughWithoutCache(t *testing.T) {
	e := newEnv()
	e.hotels.results = []hotelservice.Hotel{{ID: "h1", Name: "Hotel Everest", Location: "Kathmandu"}}

	out, err := e.svc.SearchHotels(context.Background(), "Kathmandu")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Hotel Everest", out[0].Name)
}

func TestReaperSweepFailsStaleAndReleases(t *testing.T) {
	e := newEnv()
	stale := domain.Booking{ID: "b1", UserID: "u1", Status: domain.StatusProcessing}
	e.store.put(&stale)
	e.store.stale = []domain.Booking{stale}

	r := NewReaper(e.store, e.walletPub, 10*time.Minute, time.Minute, zap.NewNop().Sugar())
	r.Sweep(context.Background())

	assert.Equal(t, domain.StatusFailed, e.store.bookings["b1"].Status)
	require.Equal(t, []string{events.RKWalletRelease}, e.walletPub.keys())
	rel := e.walletPub.msgs[0].v.(events.WalletRelease)
	assert.Equal(t, "b1", rel.BookingID)
}

func TestReaperSweepSkipsAlreadyTransitioned(t *testing.T) {
	e := newEnv()
	b := domain.Booking{ID: "b1", UserID: "u1", Status: domain.StatusProcessing}
	e.store.stale = []domain.Booking{b}
	e.store.put(&domain.Booking{ID: "b1", UserID: "u1", Status: domain.StatusBooked})

	r := NewReaper(e.store, e.walletPub, 10*time.Minute, time.Minute, zap.NewNop().Sugar())
	r.Sweep(context.Background())

	assert.Equal(t, domain.StatusBooked, e.store.bookings["b1"].Status)
	assert.Empty(t, e.walletPub.msgs)
}
