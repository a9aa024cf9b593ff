package notify

import (
	"context"
	"fmt"

	"handover/internal/config"
	"handover/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Transport delivers one notification to an external channel.
type Transport interface {
	Deliver(ctx context.Context, payload models.NotificationPayload) error
}

// TelegramSender is the slice of the bot API the transport needs.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramTransport notifies the configured chats about new requests.
type TelegramTransport struct {
	bot     TelegramSender
	chatIDs []int64
}

// NewTelegramTransport returns nil when no token is configured: notifications
// are a configured-off state, not an error.
func NewTelegramTransport(cfg config.NotificationsConfig) (*TelegramTransport, error) {
	if cfg.TelegramToken == "" {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramTransport{bot: bot, chatIDs: cfg.ChatIDs}, nil
}

// NewTelegramTransportWithSender is used by tests to inject a fake sender.
func NewTelegramTransportWithSender(sender TelegramSender, chatIDs []int64) *TelegramTransport {
	return &TelegramTransport{bot: sender, chatIDs: chatIDs}
}

func (t *TelegramTransport) Deliver(ctx context.Context, payload models.NotificationPayload) error {
	text := fmt.Sprintf(
		"New request for %q\nRequester: %s\nAddress: %s\nPhone: %s",
		payload.ItemName,
		payload.RequesterName,
		payload.RequesterAddress,
		payload.RequesterPhone,
	)

	for _, chatID := range t.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to notify chat %d: %w", chatID, err)
		}
	}
	return nil
}
