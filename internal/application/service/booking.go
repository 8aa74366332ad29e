package service

import (
	"context"

	"bookingreminder/internal/application/dto"
)

// BookingService defines the interface for booking operations and keeps the
// reminder schedule of every booking in step with its lifecycle.
type BookingService interface {
	// CreateBooking stores a booking and schedules its reminders when it is confirmed.
	CreateBooking(ctx context.Context, req dto.CreateBookingRequest) (*dto.BookingResponse, error)
	GetBooking(ctx context.Context, id string) (*dto.BookingResponse, error)
	// UpdateBooking stores the change, drops all pending reminders and
	// schedules a fresh set if the booking is still confirmed.
	UpdateBooking(ctx context.Context, id string, req dto.UpdateBookingRequest) (*dto.BookingResponse, error)
	// CancelBooking marks the booking cancelled and removes its reminders. A
	// failure to remove them is logged and the cancelled booking returned.
	CancelBooking(ctx context.Context, id string) (*dto.BookingResponse, error)
	// CancelBookingReminders removes every waiting, delayed or active job of
	// the booking and returns how many were removed.
	CancelBookingReminders(ctx context.Context, bookingID string) (int, error)
	GetBookingReminderStatus(ctx context.Context, bookingID string) ([]dto.ReminderStatus, error)
	QueueStats(ctx context.Context) (dto.QueueStats, error)
}
