package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookingreminder/internal/application/service"
	"bookingreminder/internal/pkg/logger"

	"github.com/google/uuid"
)

// Notifier is a MessageTransport that writes messages to the log instead of
// delivering them. Used when no LINE channel is configured.
type Notifier struct {
	log logger.Logger
}

// NewNotifier creates a console Notifier.
func NewNotifier(log logger.Logger) *Notifier {
	return &Notifier{log: log.With("transport", "console")}
}

// Send logs msg and reports it as delivered.
func (n *Notifier) Send(ctx context.Context, msg service.Message) (service.SendResult, error) {
	if strings.TrimSpace(msg.Body) == "" {
		return service.SendResult{}, errors.New("console: empty message body")
	}
	if err := ctx.Err(); err != nil {
		return service.SendResult{Success: false, Error: err.Error()}, nil
	}

	id := uuid.NewString()
	n.log.Info(fmt.Sprintf("Reminder %s to %s (%s): %s", id, msg.RecipientPhone, msg.RecipientID, msg.Body))
	return service.SendResult{Success: true, MessageID: id}, nil
}
