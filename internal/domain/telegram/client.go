package telegram

import (
	"context"
	"errors"
	"fmt"
)

// ParseModeMarkdownV2 is the parse mode every alert is sent with.
const ParseModeMarkdownV2 = "MarkdownV2"

// ErrTransport is returned when the request to the messaging API could not be sent at all.
var ErrTransport = errors.New("telegram: request could not be sent")

// DeliveryError is returned when the messaging API answered but refused the message.
type DeliveryError struct {
	StatusCode  int    // HTTP status, 0 if unknown
	Description string // response body or API description
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("telegram: delivery failed with status %d: %s", e.StatusCode, e.Description)
}

// Client defines an interface for sending messages via a Telegram bot.
// This helps in decoupling the application logic from the specific bot library.
type Client interface {
	SendMessage(ctx context.Context, chatID string, text string) error
}
