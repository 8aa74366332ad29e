package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookingreminder/internal/application/dto"
	"bookingreminder/internal/domain/constant"
	"bookingreminder/internal/domain/entity"
	"bookingreminder/internal/domain/repository"
	appErrors "bookingreminder/internal/pkg/errors"
	"bookingreminder/internal/pkg/logger"

	"github.com/google/uuid"
)

type bookingService struct {
	bookingRepo repository.BookingRepository
	jobStore    repository.ReminderJobStore
	scheduler   ReminderScheduler
	metrics     Metrics
	log         logger.Logger
}

// NewBookingService creates a new instance of BookingService implementation.
func NewBookingService(
	bookingRepo repository.BookingRepository,
	jobStore repository.ReminderJobStore,
	scheduler ReminderScheduler,
	metrics Metrics,
	log logger.Logger,
) BookingService {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &bookingService{
		bookingRepo: bookingRepo,
		jobStore:    jobStore,
		scheduler:   scheduler,
		metrics:     metrics,
		log:         log,
	}
}

// CreateBooking validates and stores a new booking.
func (s *bookingService) CreateBooking(ctx context.Context, req dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	if req.Status == "" {
		req.Status = constant.BookingPending
	}
	if err := validateBooking(req.CustomerName, req.CustomerPhone, req.ScheduledTime, req.Status); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	booking := &entity.Booking{
		ID:             req.ID,
		CustomerID:     req.CustomerID,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		CustomerLineID: req.CustomerLineID,
		ServiceID:      req.ServiceID,
		ResourceID:     req.ResourceID,
		ScheduledTime:  req.ScheduledTime,
		Status:         req.Status,
	}
	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		s.log.Error(fmt.Sprintf("Failed to create booking %s", booking.ID), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.log.Info(fmt.Sprintf("Created booking %s (%s) at %v", booking.ID, booking.Status, booking.ScheduledTime))

	resp := dto.ToBookingResponse(booking)
	if booking.Confirmed() {
		resp.RemindersScheduled = s.scheduler.ScheduleReminders(ctx, booking)
	}
	return &resp, nil
}

// GetBooking retrieves a booking by its ID.
func (s *bookingService) GetBooking(ctx context.Context, id string) (*dto.BookingResponse, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.ToBookingResponse(booking)
	return &resp, nil
}

// UpdateBooking applies the change and rebuilds the reminder schedule.
func (s *bookingService) UpdateBooking(ctx context.Context, id string, req dto.UpdateBookingRequest) (*dto.BookingResponse, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CustomerName != nil {
		booking.CustomerName = *req.CustomerName
	}
	if req.CustomerPhone != nil {
		booking.CustomerPhone = *req.CustomerPhone
	}
	if req.CustomerLineID != nil {
		booking.CustomerLineID = *req.CustomerLineID
	}
	if req.ResourceID != nil {
		booking.ResourceID = *req.ResourceID
	}
	if req.ScheduledTime != nil {
		booking.ScheduledTime = *req.ScheduledTime
	}
	if req.Status != nil {
		booking.Status = *req.Status
	}
	if err := validateBooking(booking.CustomerName, booking.CustomerPhone, booking.ScheduledTime, booking.Status); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		s.log.Error(fmt.Sprintf("Failed to update booking %s", id), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.log.Info(fmt.Sprintf("Updated booking %s (%s) at %v", booking.ID, booking.Status, booking.ScheduledTime))

	resp := dto.ToBookingResponse(booking)
	// The booking is stored; reminder maintenance below no longer decides the response.
	removed, err := s.CancelBookingReminders(ctx, booking.ID)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to clear reminders of updated booking %s, not rescheduling", booking.ID), err)
		return &resp, nil
	}
	s.log.Debug(fmt.Sprintf("Cleared %d reminders of updated booking %s", removed, booking.ID))

	if booking.Confirmed() {
		resp.RemindersScheduled = s.scheduler.ScheduleReminders(ctx, booking)
	}
	return &resp, nil
}

// CancelBooking marks a booking cancelled and removes its reminders.
func (s *bookingService) CancelBooking(ctx context.Context, id string) (*dto.BookingResponse, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	booking.Status = constant.BookingCancelled
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		s.log.Error(fmt.Sprintf("Failed to cancel booking %s", id), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}

	resp := dto.ToBookingResponse(booking)
	// As in UpdateBooking, the stored status decides the response.
	removed, err := s.CancelBookingReminders(ctx, booking.ID)
	if err != nil {
		s.log.Error(fmt.Sprintf("Booking %s cancelled but its reminders could not be removed", booking.ID), err)
		return &resp, nil
	}
	s.log.Info(fmt.Sprintf("Cancelled booking %s and %d reminders", booking.ID, removed))
	return &resp, nil
}

// CancelBookingReminders removes all pending jobs of the booking.
func (s *bookingService) CancelBookingReminders(ctx context.Context, bookingID string) (int, error) {
	jobs, err := s.jobStore.ListByBooking(ctx, bookingID, constant.PendingJobStates...)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to list reminders of booking %s", bookingID), err)
		return 0, fmt.Errorf("%w: %v", appErrors.ErrCancellation, err)
	}

	removed := 0
	for _, job := range jobs {
		ok, err := s.jobStore.Remove(ctx, job.ID)
		if err != nil {
			s.log.Error(fmt.Sprintf("Failed to remove reminder %s of booking %s", job.ID, bookingID), err)
			return removed, fmt.Errorf("%w: %v", appErrors.ErrCancellation, err)
		}
		if ok {
			removed++
		}
	}

	s.metrics.RemindersCancelled(removed)
	if removed > 0 {
		s.log.Info(fmt.Sprintf("Cancelled %d reminders of booking %s", removed, bookingID))
	}
	return removed, nil
}

// GetBookingReminderStatus lists every job of the booking in any state, ordered by reminder number.
func (s *bookingService) GetBookingReminderStatus(ctx context.Context, bookingID string) ([]dto.ReminderStatus, error) {
	jobs, err := s.jobStore.ListByBooking(ctx, bookingID)
	if err != nil {
		s.log.Error(fmt.Sprintf("Failed to list reminders of booking %s", bookingID), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}

	statuses := make([]dto.ReminderStatus, len(jobs))
	for i, job := range jobs {
		statuses[i] = dto.ToReminderStatus(job)
	}
	return statuses, nil
}

// QueueStats returns the number of reminder jobs per state.
func (s *bookingService) QueueStats(ctx context.Context) (dto.QueueStats, error) {
	counts, err := s.jobStore.Counts(ctx, constant.AllJobStates...)
	if err != nil {
		s.log.Error("Failed to count reminder jobs", err)
		return dto.QueueStats{}, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	s.metrics.QueueDepth(counts)
	return dto.ToQueueStats(counts), nil
}

func (s *bookingService) findBooking(ctx context.Context, id string) (*entity.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, appErrors.ErrBookingNotFound) {
			return nil, err
		}
		s.log.Error(fmt.Sprintf("Failed to load booking %s", id), err)
		return nil, fmt.Errorf("%w: %v", appErrors.ErrDatabaseOperation, err)
	}
	return booking, nil
}

func validateBooking(name, phone string, at time.Time, status constant.BookingStatus) error {
	var problems []string
	if strings.TrimSpace(name) == "" {
		problems = append(problems, "customer_name is required")
	}
	if strings.TrimSpace(phone) == "" {
		problems = append(problems, "customer_phone is required")
	}
	if at.IsZero() {
		problems = append(problems, "scheduled_time is required")
	}
	if !status.Valid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", status))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", appErrors.ErrInvalidBooking, strings.Join(problems, "; "))
	}
	return nil
}
