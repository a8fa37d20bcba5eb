package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/you/hotel-booking/services/hotel-service/internal/domain"
)

type HotelRepo struct{ db *gorm.DB }

func NewHotelRepo(db *gorm.DB) *HotelRepo {
	return &HotelRepo{db: db}
}

func (r *HotelRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Hotel{}, &domain.Room{})
}

func (r *HotelRepo) All(ctx context.Context) ([]domain.Hotel, error) {
	var out []domain.Hotel
	if err := r.db.WithContext(ctx).Preload("Rooms").Order("name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *HotelRepo) ByID(ctx context.Context, id string) (*domain.Hotel, error) {
	var h domain.Hotel
	err := r.db.WithContext(ctx).Preload("Rooms").First(&h, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrHotelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HotelRepo) ByLocation(ctx context.Context, location string) ([]domain.Hotel, error) {
	var out []domain.Hotel
	err := r.db.WithContext(ctx).Preload("Rooms").
		Where("LOWER(location) = LOWER(?)", location).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *HotelRepo) RoomPrice(ctx context.Context, hotelID string, roomNumber int) (int64, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).
		First(&room, "hotel_id = ? AND room_number = ?", hotelID, roomNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, domain.ErrRoomNotFound
	}
	if err != nil {
		return 0, err
	}
	return room.Price, nil
}

// SetRoomAvailability flips the advisory flag. Writing the value it already
// has is a no-op, which keeps event redelivery harmless. Returns the hotel
// so callers can invalidate location-scoped caches.
func (r *HotelRepo) SetRoomAvailability(ctx context.Context, hotelID string, roomNumber int, available bool) (*domain.Hotel, error) {
	var h domain.Hotel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&h, "id = ?", hotelID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrHotelNotFound
			}
			return err
		}
		res := tx.Model(&domain.Room{}).
			Where("hotel_id = ? AND room_number = ?", hotelID, roomNumber).
			Update("is_available", available)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&domain.Room{}).
				Where("hotel_id = ? AND room_number = ?", hotelID, roomNumber).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return domain.ErrRoomNotFound
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Seed inserts the fixture catalog once; it refuses to run on a non-empty
// store.
func (r *HotelRepo) Seed(ctx context.Context, hotels []domain.Hotel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Hotel{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.New("hotels already seeded")
		}
		for i := range hotels {
			if hotels[i].ID == "" {
				hotels[i].ID = uuid.NewString()
			}
			if err := tx.Create(&hotels[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
