package domain

import (
	"errors"
	"time"
)

var (
	ErrHotelNotFound = errors.New("hotel_not_found")
	ErrRoomNotFound  = errors.New("room_not_found")
)

type Hotel struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Location  string    `gorm:"index" json:"location"`
	Rooms     []Room    `gorm:"foreignKey:HotelID" json:"rooms"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Room availability is a denormalized hint for search; the booking store's
// date-range conflict check stays the source of truth.
type Room struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	HotelID     string `gorm:"index:idx_hotel_room,unique" json:"-"`
	RoomNumber  int    `gorm:"index:idx_hotel_room,unique" json:"roomNumber"`
	Price       int64  `gorm:"not null" json:"price"`
	IsAvailable bool   `json:"isAvailable"`
}
