package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/hotel-booking/services/hotel-service/internal/domain"
)

type fakeStore struct {
	hotels map[string]*domain.Hotel

	seedErr error
	seeded  []domain.Hotel
	flips   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{hotels: map[string]*domain.Hotel{}}
}

func (f *fakeStore) put(h *domain.Hotel) { f.hotels[h.ID] = h }

func (f *fakeStore) All(context.Context) ([]domain.Hotel, error) {
	out := make([]domain.Hotel, 0, len(f.hotels))
	for _, h := range f.hotels {
		out = append(out, *h)
	}
	return out, nil
}

func (f *fakeStore) ByID(_ context.Context, id string) (*domain.Hotel, error) {
	h, ok := f.hotels[id]
	if !ok {
		return nil, domain.ErrHotelNotFound
	}
	cp := *h
	return &cp, nil
}

func (f *fakeStore) ByLocation(_ context.Context, location string) ([]domain.Hotel, error) {
	var out []domain.Hotel
	for _, h := range f.hotels {
		if h.Location == location {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (f *fakeStore) RoomPrice(_ context.Context, hotelID string, roomNumber int) (int64, error) {
	h, ok := f.hotels[hotelID]
	if !ok {
		return 0, domain.ErrHotelNotFound
	}
	for _, r := range h.Rooms {
		if r.RoomNumber == roomNumber {
			return r.Price, nil
		}
	}
	return 0, domain.ErrRoomNotFound
}

func (f *fakeStore) SetRoomAvailability(_ context.Context, hotelID string, roomNumber int, available bool) (*domain.Hotel, error) {
	h, ok := f.hotels[hotelID]
	if !ok {
		return nil, domain.ErrHotelNotFound
	}
	for i := range h.Rooms {
		if h.Rooms[i].RoomNumber == roomNumber {
			h.Rooms[i].IsAvailable = available
			f.flips = append(f.flips, hotelID)
			cp := *h
			return &cp, nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

func (f *fakeStore) Seed(_ context.Context, hotels []domain.Hotel) error {
	if f.seedErr != nil {
		return f.seedErr
	}
	f.seeded = hotels
	return nil
}

func testHotel() *domain.Hotel {
	return &domain.Hotel{
		ID:       "h1",
		Name:     "Hotel Everest",
		Location: "Kathmandu",
		Rooms: []domain.Room{
			{RoomNumber: 101, Price: 2000, IsAvailable: true},
			{RoomNumber: 102, Price: 2500, IsAvailable: true},
		},
	}
}

func TestRoomPrice(t *testing.T) {
	store := newFakeStore()
	store.put(testHotel())
	svc := NewHotelSvc(store, nil, zap.NewNop().Sugar())

	price, err := svc.RoomPrice(context.Background(), "h1", 102)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), price)

	_, err = svc.RoomPrice(context.Background(), "h1", 999)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = svc.RoomPrice(context.Background(), "ghost", 101)
	assert.ErrorIs(t, err, domain.ErrHotelNotFound)
}

func TestHandleBookingCreatedLocksRoomAndInvalidatesCache(t *testing.T) {
	store := newFakeStore()
	store.put(testHotel())
	cache, mock := redismock.NewClientMock()
	mock.ExpectDel("hotels:all", "hotel:h1", "hotels:search:kathmandu").SetVal(3)
	svc := NewHotelSvc(store, cache, zap.NewNop().Sugar())

	require.NoError(t, svc.HandleBookingCreated(context.Background(), "h1", 101, "b1"))

	assert.False(t, store.hotels["h1"].Rooms[0].IsAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleBookingCancelledUnlocksRoom(t *testing.T) {
	store := newFakeStore()
	h := testHotel()
	h.Rooms[0].IsAvailable = false
	store.put(h)
	svc := NewHotelSvc(store, nil, zap.NewNop().Sugar())

	require.NoError(t, svc.HandleBookingCancelled(context.Background(), "h1", 101, "b1"))
	assert.True(t, store.hotels["h1"].Rooms[0].IsAvailable)
}

func TestAvailabilityFlipsAreIdempotent(t *testing.T) {
	store := newFakeStore()
	store.put(testHotel())
	svc := NewHotelSvc(store, nil, zap.NewNop().Sugar())

	require.NoError(t, svc.HandleBookingCreated(context.Background(), "h1", 101, "b1"))
	require.NoError(t, svc.HandleBookingCreated(context.Background(), "h1", 101, "b1"))

	assert.False(t, store.hotels["h1"].Rooms[0].IsAvailable)
	assert.True(t, store.hotels["h1"].Rooms[1].IsAvailable)
}

func TestHandleBookingCreatedUnknownRoom(t *testing.T) {
	store := newFakeStore()
	store.put(testHotel())
	svc := NewHotelSvc(store, nil, zap.NewNop().Sugar())

	err := svc.HandleBookingCreated(context.Background(), "h1", 999, "b1")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestHotelByIDServesFromCache(t *testing.T) {
	store := newFakeStore()
	cache, mock := redismock.NewClientMock()
	cached, err := json.Marshal(testHotel())
	require.NoError(t, err)
	mock.ExpectGet("hotel:h1").SetVal(string(cached))
	svc := NewHotelSvc(store, cache, zap.NewNop().Sugar())

	// the store is empty; a hit proves the cache answered
	h, err := svc.HotelByID(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "Hotel Everest", h.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHotelByIDFallsThroughOnCacheMiss(t *testing.T) {
	store := newFakeStore()
	store.put(testHotel())
	cache, mock := redismock.NewClientMock()
	mock.ExpectGet("hotel:h1").RedisNil()
	filled, err := json.Marshal(testHotel())
	require.NoError(t, err)
	mock.ExpectSet("hotel:h1", filled, hotelCacheTTL).SetVal("OK")
	svc := NewHotelSvc(store, cache, zap.NewNop().Sugar())

	h, err := svc.HotelByID(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "h1", h.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchHotelsMatchesLocation(t *testing.T) {
	store := newFakeStore()
	store.put(testHotel())
	store.put(&domain.Hotel{ID: "h2", Name: "Hotel Pokhara Paradise", Location: "Pokhara"})
	svc := NewHotelSvc(store, nil, zap.NewNop().Sugar())

	out, err := svc.SearchHotels(context.Background(), "Pokhara")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "h2", out[0].ID)

	out, err = svc.SearchHotels(context.Background(), "Nowhere")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSeedHotelsFixture(t *testing.T) {
	store := newFakeStore()
	svc := NewHotelSvc(store, nil, zap.NewNop().Sugar())

	hotels, err := svc.SeedHotels(context.Background())
	require.NoError(t, err)
	require.Len(t, hotels, 4)
	require.Len(t, store.seeded, 4)

	for _, h := range hotels {
		require.Len(t, h.Rooms, 5)
		for i, r := range h.Rooms {
			assert.Equal(t, int64(2000)+int64(i)*500, r.Price)
			assert.True(t, r.IsAvailable)
		}
	}
	assert.Equal(t, 101, hotels[0].Rooms[0].RoomNumber)
	assert.Equal(t, 405, hotels[3].Rooms[4].RoomNumber)
}
