package notify

import (
	"fmt"

	"signal_engine/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Telegram — пассивный нотифайер: сигналы, филлы, выходы.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

// New returns a telegram notifier, or a noop one when no token is configured.
func New(token string, chatID int64) (Notifier, error) {
	if token == "" || chatID == 0 {
		return Noop{}, nil
	}
	bot, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Send(msg string) {
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Warn("[TG] send: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) {
	t.Send(fmt.Sprintf(format, args...))
}

type Noop struct{}

func (Noop) Send(string)          {}
func (Noop) Sendf(string, ...any) {}
