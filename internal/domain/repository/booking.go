package repository

import (
	"context"

	"bookingreminder/internal/domain/entity"
)

// BookingRepository defines the interface for booking persistence.
type BookingRepository interface {
	// FindByID retrieves a booking by its ID.
	FindByID(ctx context.Context, id string) (*entity.Booking, error)
	// Create stores a new booking.
	Create(ctx context.Context, booking *entity.Booking) error
	// Update saves all fields of an existing booking.
	Update(ctx context.Context, booking *entity.Booking) error
}
