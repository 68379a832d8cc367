// Package ops is a best-effort operational notifier: it watches
// Registry lifecycle events and Persistence failures and posts them
// to a Telegram chat, the way the teacher's admin bot watched
// withdrawals. It is entirely decoupled from gameplay correctness —
// disabled outright if no bot token is configured, and every send is
// fire-and-forget.
package ops

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier posts operational events to a Telegram chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

// New builds a Notifier. An empty token returns (nil, nil): no bot
// token was configured, and a nil *Notifier does nothing on Notify.
func New(token string, chatID int64, log *slog.Logger) (*Notifier, error) {
	if token == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info("ops notifier authorized", "username", bot.Self.UserName)
	return &Notifier{bot: bot, chatID: chatID, log: log}, nil
}

// Notify posts event with the given fields as a single-line message.
// It never blocks the caller for long: failures are logged, not
// returned, since losing an ops notification must never affect
// gameplay.
func (n *Notifier) Notify(event string, fields map[string]any) {
	if n == nil {
		return
	}
	go n.send(event, fields)
}

func (n *Notifier) send(event string, fields map[string]any) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", event)
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}

	msg := tgbotapi.NewMessage(n.chatID, b.String())
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Warn("ops notifier: send failed", "event", event, "error", err)
	}
}
