package sqlite

import (
	"context"
	"errors"
	"fmt"

	"bookingreminder/internal/domain/entity"
	"bookingreminder/internal/domain/repository"
	appErrors "bookingreminder/internal/pkg/errors"

	"gorm.io/gorm"
)

type bookingRepository struct {
	db *gorm.DB
}

// NewBookingRepository creates a new instance of BookingRepository.
func NewBookingRepository(db *gorm.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

// FindByID retrieves a booking by its ID.
func (r *bookingRepository) FindByID(ctx context.Context, id string) (*entity.Booking, error) {
	var booking entity.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", appErrors.ErrBookingNotFound, id)
		}
		return nil, fmt.Errorf("failed to find booking %s: %w", id, err)
	}
	return &booking, nil
}

// Create stores a new booking.
func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return fmt.Errorf("failed to create booking %s: %w", booking.ID, err)
	}
	return nil
}

// Update saves all fields of an existing booking.
func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	// Use Save to update all fields, including zero values
	if err := r.db.WithContext(ctx).Save(booking).Error; err != nil {
		return fmt.Errorf("failed to update booking %s: %w", booking.ID, err)
	}
	return nil
}
