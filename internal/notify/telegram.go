package notify

import (
	"context"
	"errors"
	"net"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ahsandevhub/wetrain-kpi/internal/observability"
)

// Sender is the delivery channel the relay writes to.
type Sender interface {
	SendText(chatID int64, text string) error
	SendDocument(chatID int64, filename string, data []byte, caption string) error
}

// TelegramSender delivers through the Bot API.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramSender(token string) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramSender{bot: bot}, nil
}

func (t *TelegramSender) SendText(chatID int64, text string) error {
	_, err := t.bot.Send(tgbotapi.NewMessage(chatID, text))
	capture(err)
	return err
}

func (t *TelegramSender) SendDocument(chatID int64, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	_, err := t.bot.Send(doc)
	capture(err)
	return err
}

// capture reports only failures on Telegram's side (5xx, 429, timeouts).
// Bad requests and unknown chats are recorded in the delivery log only.
func capture(err error) {
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
}

func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)
}
