package entity

import (
	"fmt"
	"time"

	"bookingreminder/internal/domain/constant"
)

// ReminderJobID derives the job id for the n-th reminder of a booking.
// It is the idempotency key of the job store.
func ReminderJobID(bookingID string, ordinal int) string {
	return fmt.Sprintf("%s-reminder-%d", bookingID, ordinal)
}

// ReminderPayload is the data a worker needs to deliver a reminder without
// reading the booking back.
type ReminderPayload struct {
	BookingID       string    `json:"booking_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	CustomerLineID  string    `json:"customer_line_id,omitempty"`
	AppointmentTime time.Time `json:"appointment_time"`
}

// ReminderJob is one pending notification tied to one booking.
type ReminderJob struct {
	ID          string            `gorm:"column:id;primaryKey"`
	BookingID   string            `gorm:"column:booking_id;index"`
	Ordinal     int               `gorm:"column:ordinal"`
	Payload     ReminderPayload   `gorm:"column:payload;serializer:json"`
	State       constant.JobState `gorm:"column:state;type:varchar(16);index:idx_reminder_job_due,priority:1"`
	RunAt       time.Time         `gorm:"column:run_at;index:idx_reminder_job_due,priority:2"`
	DelayMs     int64             `gorm:"column:delay_ms"`
	Attempts    int               `gorm:"column:attempts"`
	MaxAttempts int               `gorm:"column:max_attempts"`
	LastError   string            `gorm:"column:last_error;type:text"`
	CreatedAt   time.Time         `gorm:"column:created_at"` // enqueue timestamp
	UpdatedAt   time.Time         `gorm:"column:updated_at"`
	FinishedAt  *time.Time        `gorm:"column:finished_at;index"`
}

// TableName specifies the table name for the ReminderJob entity.
func (ReminderJob) TableName() string {
	return "reminder_job"
}

// ScheduledFor is the configured firing time: enqueue timestamp plus delay.
func (j *ReminderJob) ScheduledFor() time.Time {
	return j.CreatedAt.Add(time.Duration(j.DelayMs) * time.Millisecond)
}

// Retrying reports whether the job is waiting out a backoff after a failed attempt.
func (j *ReminderJob) Retrying() bool {
	return j.State == constant.JobDelayed && j.Attempts > 0
}

// DeliveryKey identifies one scheduled delivery of this job. A job id that is
// rescheduled for another time gets a new key.
func (j *ReminderJob) DeliveryKey() string {
	return fmt.Sprintf("%s@%d", j.ID, j.ScheduledFor().UnixMilli())
}
