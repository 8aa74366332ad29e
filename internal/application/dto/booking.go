package dto

import (
	"time"

	"bookingreminder/internal/domain/constant"
	"bookingreminder/internal/domain/entity"
)

// CreateBookingRequest is the DTO for creating a new booking.
type CreateBookingRequest struct {
	ID             string                 `json:"id"` // optional, a uuid is assigned when empty
	CustomerID     string                 `json:"customer_id"`
	CustomerName   string                 `json:"customer_name"`
	CustomerPhone  string                 `json:"customer_phone"`
	CustomerLineID string                 `json:"customer_line_id"`
	ServiceID      string                 `json:"service_id"`
	ResourceID     string                 `json:"resource_id"`
	ScheduledTime  time.Time              `json:"scheduled_time"`
	Status         constant.BookingStatus `json:"status"` // defaults to pending
}

// UpdateBookingRequest is the DTO for changing a booking. Nil fields are left unchanged.
type UpdateBookingRequest struct {
	CustomerName   *string                 `json:"customer_name"`
	CustomerPhone  *string                 `json:"customer_phone"`
	CustomerLineID *string                 `json:"customer_line_id"`
	ResourceID     *string                 `json:"resource_id"`
	ScheduledTime  *time.Time              `json:"scheduled_time"`
	Status         *constant.BookingStatus `json:"status"`
}

// BookingResponse is the DTO for sending booking information to the client.
type BookingResponse struct {
	ID                 string                 `json:"id"`
	CustomerID         string                 `json:"customer_id"`
	CustomerName       string                 `json:"customer_name"`
	CustomerPhone      string                 `json:"customer_phone"`
	CustomerLineID     string                 `json:"customer_line_id,omitempty"`
	ServiceID          string                 `json:"service_id"`
	ResourceID         string                 `json:"resource_id"`
	ScheduledTime      time.Time              `json:"scheduled_time"`
	Status             constant.BookingStatus `json:"status"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
	RemindersScheduled []string               `json:"reminders_scheduled,omitempty"`
}

// ToBookingResponse converts an entity.Booking to a BookingResponse DTO.
func ToBookingResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:             b.ID,
		CustomerID:     b.CustomerID,
		CustomerName:   b.CustomerName,
		CustomerPhone:  b.CustomerPhone,
		CustomerLineID: b.CustomerLineID,
		ServiceID:      b.ServiceID,
		ResourceID:     b.ResourceID,
		ScheduledTime:  b.ScheduledTime,
		Status:         b.Status,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

// ReminderStatus describes one reminder job of a booking.
type ReminderStatus struct {
	JobID        string            `json:"job_id"`
	State        constant.JobState `json:"state"`
	ScheduledFor time.Time         `json:"scheduled_for"`
	Attempts     int               `json:"attempts"`
}

// ToReminderStatus converts an entity.ReminderJob to a ReminderStatus DTO.
func ToReminderStatus(j *entity.ReminderJob) ReminderStatus {
	return ReminderStatus{
		JobID:        j.ID,
		State:        j.State,
		ScheduledFor: j.ScheduledFor(),
		Attempts:     j.Attempts,
	}
}

// CancelRemindersResponse reports how many reminder jobs were removed.
type CancelRemindersResponse struct {
	BookingID string `json:"booking_id"`
	Removed   int    `json:"removed"`
}

// QueueStats is the number of reminder jobs per state.
type QueueStats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}

// ToQueueStats converts per-state counts to a QueueStats DTO.
func ToQueueStats(counts map[constant.JobState]int64) QueueStats {
	return QueueStats{
		Waiting:   counts[constant.JobWaiting],
		Active:    counts[constant.JobActive],
		Completed: counts[constant.JobCompleted],
		Failed:    counts[constant.JobFailed],
		Delayed:   counts[constant.JobDelayed],
	}
}
