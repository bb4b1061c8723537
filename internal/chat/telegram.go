package chat

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type TelegramTransport struct {
	api    *tgbotapi.BotAPI
	router *Router
	log    *zap.SugaredLogger
}

func NewTelegramTransport(token string, router *Router, log *zap.SugaredLogger) (*TelegramTransport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramTransport{api: api, router: router, log: log}, nil
}

// Run long-polls Telegram until ctx is cancelled. Messages are handled one
// at a time, in arrival order.
func (t *TelegramTransport) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)

	t.log.Infow("Telegram transport started", "bot", t.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			t.handle(ctx, update.Message)
		}
	}
}

func toMessage(m *tgbotapi.Message) Message {
	msg := Message{
		SenderID: strconv.FormatInt(m.From.ID, 10),
		Text:     m.Text,
		Locale:   m.From.LanguageCode,
	}
	if m.Contact != nil && m.Contact.UserID == m.From.ID {
		msg.Phone = m.Contact.PhoneNumber
	}
	return msg
}

func (t *TelegramTransport) handle(ctx context.Context, m *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reply, err := t.router.Handle(ctx, toMessage(m))
	if err != nil {
		t.log.Errorw("Chat handling failed", "chat_id", m.Chat.ID, "error", err)
	}
	if reply == "" {
		return
	}

	out := tgbotapi.NewMessage(m.Chat.ID, reply)
	if _, err := t.api.Send(out); err != nil {
		t.log.Warnw("Failed to send chat reply", "chat_id", m.Chat.ID, "error", err)
	}
}
