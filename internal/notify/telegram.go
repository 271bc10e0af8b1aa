// Package notify formats and delivers booking notifications and runs the
// asynchronous dispatch queue.
package notify

import (
	"context"
	"fmt"

	"salonbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramSender is the subset of tgbotapi.BotAPI the notifier needs.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers staff notifications over Telegram. Notifications
// without a chat id (client-facing, addressed by email) are recorded in the
// log; no outbound email provider is configured in this deployment.
type TelegramNotifier struct {
	bot    TelegramSender
	logger *zerolog.Logger
}

func NewTelegramNotifier(bot TelegramSender, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, logger: logger}
}

func (t *TelegramNotifier) Send(_ context.Context, n models.Notification) error {
	text := formatMessage(n)

	if n.ChatID == 0 {
		t.logger.Info().
			Str("kind", n.Kind).
			Str("recipient", n.Recipient).
			Str("booking_id", n.BookingID).
			Msg("client notification recorded")
		return nil
	}

	if t.bot == nil {
		return fmt.Errorf("telegram sender not configured")
	}

	msg := tgbotapi.NewMessage(n.ChatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func formatMessage(n models.Notification) string {
	service := n.Data["service"]
	employee := n.Data["employee"]
	date := n.Data["date"]
	at := n.Data["time"]

	switch n.Kind {
	case models.NotifyBookingConfirmed:
		return fmt.Sprintf("Your booking for %s with %s on %s at %s is confirmed.",
			service, employee, date, at)
	case models.NotifyBookingPending:
		return fmt.Sprintf("Your booking for %s with %s on %s at %s is pending payment.",
			service, employee, date, at)
	case models.NotifyBookingCancelled:
		return fmt.Sprintf("Your booking for %s on %s at %s has been cancelled.",
			service, date, at)
	case models.NotifyStaffNewBooking:
		return fmt.Sprintf("New booking: %s on %s at %s.", service, date, at)
	default:
		return fmt.Sprintf("Booking %s: %s", n.BookingID, n.Kind)
	}
}
