package line

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookingreminder/internal/application/service"
	"bookingreminder/internal/pkg/logger"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// Client delivers reminder messages through the LINE Messaging API push endpoint.
type Client struct {
	bot *linebot.Client
	log logger.Logger
}

// NewClient creates a LINE Bot client from the channel credentials.
func NewClient(channelSecret, channelToken string, log logger.Logger, opts ...linebot.ClientOption) (*Client, error) {
	if channelSecret == "" || channelToken == "" {
		return nil, errors.New("CHANNEL_SECRET and CHANNEL_ACCESS_TOKEN must be set")
	}
	bot, err := linebot.New(channelSecret, channelToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE Bot client: %w", err)
	}
	log.Info("Successfully created LINE Bot client.")
	return &Client{bot: bot, log: log}, nil
}

// Send pushes msg as a text message to the recipient's LINE user ID.
// API and network failures are reported as an unsuccessful result.
func (c *Client) Send(ctx context.Context, msg service.Message) (service.SendResult, error) {
	if strings.TrimSpace(msg.Body) == "" {
		return service.SendResult{}, errors.New("line: empty message body")
	}
	if msg.RecipientID == "" {
		return service.SendResult{Success: false, Error: "recipient has no LINE user id"}, nil
	}

	res, err := c.bot.PushMessage(msg.RecipientID, linebot.NewTextMessage(msg.Body)).WithContext(ctx).Do()
	if err != nil {
		var apiErr *linebot.APIError
		if errors.As(err, &apiErr) {
			c.log.Warn(fmt.Sprintf("LINE push to %s rejected with status %d: %v", msg.RecipientID, apiErr.Code, err))
		} else {
			c.log.Warn(fmt.Sprintf("LINE push to %s failed: %v", msg.RecipientID, err))
		}
		return service.SendResult{Success: false, Error: err.Error()}, nil
	}

	// The push API assigns no message id; its request id identifies the delivery.
	c.log.Debug(fmt.Sprintf("Successfully sent push message %s.", res.RequestID))
	return service.SendResult{Success: true, MessageID: res.RequestID}, nil
}
