package service

import (
	"context"
	"fmt"

	"bookingreminder/internal/domain/entity"
)

// Message is one reminder text addressed to a customer.
type Message struct {
	RecipientPhone string
	RecipientID    string // transport specific address, e.g. a LINE user ID
	Body           string
}

// SendResult is the outcome of a delivery attempt.
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// MessageTransport delivers messages to customers.
//
// Ordinary delivery failures are reported as SendResult{Success: false};
// a non-nil error is reserved for malformed input. Timeouts are the
// transport's own business.
type MessageTransport interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
}

// FormatReminderMessage builds the message for a reminder payload.
func FormatReminderMessage(p entity.ReminderPayload) Message {
	return Message{
		RecipientPhone: p.CustomerPhone,
		RecipientID:    p.CustomerLineID,
		Body: fmt.Sprintf("Hi %s, this is a reminder of your appointment on %s.",
			p.CustomerName, p.AppointmentTime.Format("2006/01/02 15:04")),
	}
}
