package notify

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// NOTIFIER - Optional Telegram trade alerts
// ═══════════════════════════════════════════════════════════════════════════════

// Notifier delivers operator alerts. Failures are logged, never propagated.
type Notifier interface {
	Send(text string)
}

// Noop is used when Telegram is not configured.
type Noop struct{}

func (Noop) Send(string) {}

type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects the bot.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("📱 Telegram notifier connected")
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Send(text string) {
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		log.Warn().Err(err).Msg("Telegram send failed")
	}
}

// FromConfig returns a Telegram notifier when both token and chat id are
// set, otherwise a Noop.
func FromConfig(token string, chatID int64) Notifier {
	if token == "" || chatID == 0 {
		return Noop{}
	}
	t, err := NewTelegram(token, chatID)
	if err != nil {
		log.Warn().Err(err).Msg("Telegram notifier disabled")
		return Noop{}
	}
	return t
}
