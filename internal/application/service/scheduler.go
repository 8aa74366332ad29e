package service

import (
	"context"

	"bookingreminder/internal/domain/entity"
)

// ReminderScheduler translates a booking's appointment time into reminder jobs.
type ReminderScheduler interface {
	// ScheduleReminders enqueues one job per reminder interval before the
	// appointment and returns the IDs of the jobs actually enqueued. Failures
	// are logged per reminder; the call itself never fails.
	ScheduleReminders(ctx context.Context, booking *entity.Booking) []string
}
