package entity

import (
	"time"

	"bookingreminder/internal/domain/constant"
)

// Booking represents a scheduled appointment.
type Booking struct {
	ID             string                 `gorm:"column:id;primaryKey"`
	CustomerID     string                 `gorm:"column:customer_id;index"`
	CustomerName   string                 `gorm:"column:customer_name"`
	CustomerPhone  string                 `gorm:"column:customer_phone"`
	CustomerLineID string                 `gorm:"column:customer_line_id"` // LINE user ID the push transport delivers to
	ServiceID      string                 `gorm:"column:service_id"`
	ResourceID     string                 `gorm:"column:resource_id"`
	ScheduledTime  time.Time              `gorm:"column:scheduled_time;index"`
	Status         constant.BookingStatus `gorm:"column:status;type:varchar(16);index"`
	CreatedAt      time.Time              `gorm:"column:created_at"`
	UpdatedAt      time.Time              `gorm:"column:updated_at"`
}

// TableName specifies the table name for the Booking entity.
func (Booking) TableName() string {
	return "booking"
}

// Confirmed reports whether reminders may exist for this booking.
func (b *Booking) Confirmed() bool {
	return b.Status == constant.BookingConfirmed
}
