package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/hotel-booking/services/booking-service/internal/domain"
)

type BookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Booking{})
}

// CreateIfNoConflict persists a pending booking unless a booked/paid booking
// already covers an overlapping date range on the same room. Candidate rows
// are locked so two concurrent requests cannot both pass the check.
func (r *BookingRepo) CreateIfNoConflict(ctx context.Context, b *domain.Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Booking
		err := tx.Model(&domain.Booking{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("hotel_id = ? AND room_number = ? AND status IN ?",
				b.HotelID, b.RoomNumber, []string{domain.StatusBooked, domain.StatusPaid}).
			Where("start_date < ? AND end_date > ?", b.EndDate, b.StartDate).
			Take(&existing).Error
		if err == nil {
			return domain.ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		return tx.Create(b).Error
	})
}

func (r *BookingRepo) ByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepo) ByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatusFrom moves the booking to `to` only when its current status is
// one of `from`. changed=false with a nil error means the booking was in some
// other state; callers treat that as an idempotent no-op or a rejection,
// which keeps terminal states sticky under event redelivery.
func (r *BookingRepo) UpdateStatusFrom(ctx context.Context, id string, from []string, to string) (*domain.Booking, bool, error) {
	var (
		b       domain.Booking
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		for _, f := range from {
			if b.Status == f {
				b.Status = to
				changed = true
				return tx.Model(&domain.Booking{}).Where("id = ?", id).
					Update("status", to).Error
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &b, changed, nil
}

// PromoteToBooked moves a pending/processing booking to booked after
// re-verifying that no other booked/paid booking overlaps its dates. Two
// provisional bookings can both pass admission; whichever hold confirms
// second must lose here, not double-book the room.
func (r *BookingRepo) PromoteToBooked(ctx context.Context, id string) (b *domain.Booking, changed, conflict bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur domain.Booking
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cur, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		b = &cur
		if cur.Status != domain.StatusPending && cur.Status != domain.StatusProcessing {
			return nil
		}

		var winner domain.Booking
		err = tx.Model(&domain.Booking{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id <> ? AND hotel_id = ? AND room_number = ? AND status IN ?",
				cur.ID, cur.HotelID, cur.RoomNumber, []string{domain.StatusBooked, domain.StatusPaid}).
			Where("start_date < ? AND end_date > ?", cur.EndDate, cur.StartDate).
			Take(&winner).Error
		if err == nil {
			conflict = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		b.Status = domain.StatusBooked
		changed = true
		return tx.Model(&domain.Booking{}).Where("id = ?", id).
			Update("status", domain.StatusBooked).Error
	})
	if err != nil {
		return nil, false, false, err
	}
	return b, changed, conflict, nil
}

// StaleProvisional lists bookings stuck in pending/processing since before
// the cutoff; the reaper compensates them.
func (r *BookingRepo) StaleProvisional(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]string{domain.StatusPending, domain.StatusProcessing}, cutoff).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
