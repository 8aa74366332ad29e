package errors

import "errors"

// Custom application errors
var (
	ErrBookingNotFound   = errors.New("booking not found")                  // Booking id unknown to the repository
	ErrInvalidBooking    = errors.New("invalid booking")                    // Request failed validation
	ErrJobNotFound       = errors.New("reminder job not found")             // Job id unknown to the job store
	ErrDatabaseOperation = errors.New("database operation failed")          // Generic database error
	ErrScheduling        = errors.New("failed to schedule reminder")        // Enqueue of a reminder job failed
	ErrCancellation      = errors.New("failed to cancel booking reminders") // Removal of reminder jobs failed
	ErrTransport         = errors.New("message transport delivery failed")  // Send returned an error or success=false
	ErrInternalServer    = errors.New("internal server error")              // Generic internal error
)
