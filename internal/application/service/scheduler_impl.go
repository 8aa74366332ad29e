package service

import (
	"context"
	"fmt"
	"time"

	"bookingreminder/internal/domain/entity"
	"bookingreminder/internal/domain/repository"
	appErrors "bookingreminder/internal/pkg/errors"
	"bookingreminder/internal/pkg/logger"
)

const (
	// DefaultReminderInterval is the spacing between reminders of one booking.
	DefaultReminderInterval = 2 * time.Hour
	// fanOutWarnThreshold is the reminder count above which an uncapped
	// schedule is logged as a warning.
	fanOutWarnThreshold = 100
)

// SchedulerConfig configures the reminder scheduler.
type SchedulerConfig struct {
	Interval      time.Duration
	MaxPerBooking int // 0 means no cap
	Now           func() time.Time
}

type reminderScheduler struct {
	store   repository.ReminderJobStore
	cfg     SchedulerConfig
	metrics Metrics
	log     logger.Logger
}

// NewReminderScheduler creates a new instance of ReminderScheduler implementation.
func NewReminderScheduler(store repository.ReminderJobStore, cfg SchedulerConfig, metrics Metrics, log logger.Logger) ReminderScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReminderInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &reminderScheduler{
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		log:     log,
	}
}

// ScheduleReminders enqueues reminders at now+interval, now+2*interval, ...
// strictly before the appointment.
func (s *reminderScheduler) ScheduleReminders(ctx context.Context, booking *entity.Booking) []string {
	enqueued := []string{}
	if booking == nil {
		return enqueued
	}
	if !booking.Confirmed() {
		s.log.Debug(fmt.Sprintf("Booking %s is %s, no reminders scheduled", booking.ID, booking.Status))
		return enqueued
	}

	now := s.cfg.Now()
	count := int(booking.ScheduledTime.Sub(now) / s.cfg.Interval)
	if count <= 0 {
		s.log.Info(fmt.Sprintf("Booking %s is less than %s away, no reminders scheduled", booking.ID, s.cfg.Interval))
		return enqueued
	}
	switch {
	case s.cfg.MaxPerBooking > 0 && count > s.cfg.MaxPerBooking:
		s.log.Warn(fmt.Sprintf("Booking %s would get %d reminders, capped at %d", booking.ID, count, s.cfg.MaxPerBooking))
		count = s.cfg.MaxPerBooking
	case count > fanOutWarnThreshold:
		s.log.Warn(fmt.Sprintf("Booking %s gets %d reminders (no cap configured)", booking.ID, count))
	}

	payload := entity.ReminderPayload{
		BookingID:       booking.ID,
		CustomerName:    booking.CustomerName,
		CustomerPhone:   booking.CustomerPhone,
		CustomerLineID:  booking.CustomerLineID,
		AppointmentTime: booking.ScheduledTime,
	}

	for i := 1; i <= count; i++ {
		firing := now.Add(time.Duration(i) * s.cfg.Interval)
		if !firing.Before(booking.ScheduledTime) {
			break
		}

		job := &entity.ReminderJob{
			ID:        entity.ReminderJobID(booking.ID, i),
			BookingID: booking.ID,
			Ordinal:   i,
			Payload:   payload,
			CreatedAt: now,
		}
		created, err := s.store.Enqueue(ctx, job, firing.Sub(now))
		if err != nil {
			s.log.Error(fmt.Sprintf("Failed to schedule reminder %d for booking %s", i, booking.ID),
				fmt.Errorf("%w: %v", appErrors.ErrScheduling, err))
			continue
		}
		if !created {
			s.log.Debug(fmt.Sprintf("Reminder %s already scheduled, skipping", job.ID))
			continue
		}
		enqueued = append(enqueued, job.ID)
	}

	s.metrics.RemindersScheduled(len(enqueued))
	s.log.Info(fmt.Sprintf("Scheduled %d reminders for booking %s at %v", len(enqueued), booking.ID, booking.ScheduledTime))
	return enqueued
}
