package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/you/hotel-booking/services/hotel-service/internal/domain"
)

const (
	listCacheTTL  = 5 * time.Minute
	hotelCacheTTL = time.Hour
)

type Store interface {
	All(ctx context.Context) ([]domain.Hotel, error)
	ByID(ctx context.Context, id string) (*domain.Hotel, error)
	ByLocation(ctx context.Context, location string) ([]domain.Hotel, error)
	RoomPrice(ctx context.Context, hotelID string, roomNumber int) (int64, error)
	SetRoomAvailability(ctx context.Context, hotelID string, roomNumber int, available bool) (*domain.Hotel, error)
	Seed(ctx context.Context, hotels []domain.Hotel) error
}

type HotelSvc struct {
	store Store
	cache *redis.Client
	log   *zap.SugaredLogger
}

func NewHotelSvc(store Store, cache *redis.Client, log *zap.SugaredLogger) *HotelSvc {
	return &HotelSvc{store: store, cache: cache, log: log}
}

func (s *HotelSvc) AllHotels(ctx context.Context) ([]domain.Hotel, error) {
	var out []domain.Hotel
	if s.cachedList(ctx, "hotels:all", &out) {
		return out, nil
	}
	out, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheList(ctx, "hotels:all", out, listCacheTTL)
	return out, nil
}

func (s *HotelSvc) HotelByID(ctx context.Context, id string) (*domain.Hotel, error) {
	key := "hotel:" + id
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Result(); err == nil {
			var h domain.Hotel
			if json.Unmarshal([]byte(raw), &h) == nil {
				return &h, nil
			}
		}
	}
	h, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if b, err := json.Marshal(h); err == nil {
			_ = s.cache.Set(ctx, key, b, hotelCacheTTL).Err()
		}
	}
	return h, nil
}

func (s *HotelSvc) SearchHotels(ctx context.Context, location string) ([]domain.Hotel, error) {
	key := searchKey(location)
	var out []domain.Hotel
	if s.cachedList(ctx, key, &out) {
		return out, nil
	}
	out, err := s.store.ByLocation(ctx, location)
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		s.cacheList(ctx, key, out, listCacheTTL)
	}
	return out, nil
}

func (s *HotelSvc) RoomPrice(ctx context.Context, hotelID string, roomNumber int) (int64, error) {
	return s.store.RoomPrice(ctx, hotelID, roomNumber)
}

// HandleBookingCreated marks the room unavailable and drops every cache key
// that could still show it as free. Re-marking an unavailable room is a no-op.
func (s *HotelSvc) HandleBookingCreated(ctx context.Context, hotelID string, roomNumber int, bookingID string) error {
	h, err := s.store.SetRoomAvailability(ctx, hotelID, roomNumber, false)
	if err != nil {
		return err
	}
	s.invalidate(ctx, h)
	s.log.Infow("room locked", "hotelId", hotelID, "roomNumber", roomNumber, "bookingId", bookingID)
	return nil
}

// HandleBookingCancelled is the symmetric unlock.
func (s *HotelSvc) HandleBookingCancelled(ctx context.Context, hotelID string, roomNumber int, bookingID string) error {
	h, err := s.store.SetRoomAvailability(ctx, hotelID, roomNumber, true)
	if err != nil {
		return err
	}
	s.invalidate(ctx, h)
	s.log.Infow("room unlocked", "hotelId", hotelID, "roomNumber", roomNumber, "bookingId", bookingID)
	return nil
}

// SeedHotels loads the demo catalog: four hotels, five rooms each, prices
// stepping up from 2000 by 500.
func (s *HotelSvc) SeedHotels(ctx context.Context) ([]domain.Hotel, error) {
	hotels := []domain.Hotel{
		{Name: "Hotel Everest", Location: "Kathmandu", Rooms: generateRooms(101, 5)},
		{Name: "Hotel Pokhara Paradise", Location: "Pokhara", Rooms: generateRooms(201, 5)},
		{Name: "Hotel Chitwan Jungle", Location: "Chitwan", Rooms: generateRooms(301, 5)},
		{Name: "Sauraha Inn", Location: "Sauraha", Rooms: generateRooms(401, 5)},
	}
	if err := s.store.Seed(ctx, hotels); err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, "hotels:all").Err()
	}
	return hotels, nil
}

func generateRooms(startNumber, count int) []domain.Room {
	rooms := make([]domain.Room, 0, count)
	for i := 0; i < count; i++ {
		rooms = append(rooms, domain.Room{
			RoomNumber:  startNumber + i,
			Price:       2000 + int64(i)*500,
			IsAvailable: true,
		})
	}
	return rooms
}

func (s *HotelSvc) invalidate(ctx context.Context, h *domain.Hotel) {
	if s.cache == nil || h == nil {
		return
	}
	keys := []string{"hotels:all", "hotel:" + h.ID, searchKey(h.Location)}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.log.Warnw("cache invalidation failed", "keys", keys, "err", err)
	}
}

func (s *HotelSvc) cachedList(ctx context.Context, key string, out *[]domain.Hotel) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (s *HotelSvc) cacheList(ctx context.Context, key string, hotels []domain.Hotel, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if b, err := json.Marshal(hotels); err == nil {
		_ = s.cache.Set(ctx, key, b, ttl).Err()
	}
}

func searchKey(location string) string {
	return fmt.Sprintf("hotels:search:%s", strings.ToLower(location))
}
