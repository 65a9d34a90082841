package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Deliverer shows a notification to the user.
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

// LogDeliverer writes notifications to the log. It is the fallback channel
// when no chat is configured.
type LogDeliverer struct {
	log *zap.Logger
}

func NewLogDeliverer(log *zap.Logger) *LogDeliverer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogDeliverer{log: log}
}

func (d *LogDeliverer) Deliver(_ context.Context, n Notification) error {
	d.log.Info("reminder",
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.String("item_id", n.Metadata[MetaItemID]),
		zap.String("repeat", n.Metadata[MetaRepeat]),
	)
	return nil
}

// MessageSender is the part of *tgbotapi.BotAPI used for delivery.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramDeliverer sends notifications as HTML messages to one chat.
type TelegramDeliverer struct {
	api    MessageSender
	chatID int64
}

func NewTelegramDeliverer(api MessageSender, chatID int64) *TelegramDeliverer {
	return &TelegramDeliverer{api: api, chatID: chatID}
}

func (d *TelegramDeliverer) Deliver(_ context.Context, n Notification) error {
	msg := tgbotapi.NewMessage(d.chatID, FormatMessage(n))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := d.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram reminder: %w", err)
	}
	return nil
}

// FormatMessage renders a notification as Telegram HTML.
func FormatMessage(n Notification) string {
	var sb strings.Builder
	sb.WriteString("⏰ <b>")
	sb.WriteString(html.EscapeString(strings.TrimSpace(n.Title)))
	sb.WriteString("</b>")
	if body := strings.TrimSpace(n.Body); body != "" {
		sb.WriteString("\n")
		sb.WriteString(html.EscapeString(body))
	}
	if repeat := n.Metadata[MetaRepeat]; repeat != "" && repeat != "none" {
		sb.WriteString(fmt.Sprintf("\n<i>repeats %s</i>", repeat))
	}
	return sb.String()
}

// MultiDeliverer delivers to every channel and joins their errors.
type MultiDeliverer []Deliverer

func (m MultiDeliverer) Deliver(ctx context.Context, n Notification) error {
	var errs []error
	for _, d := range m {
		if err := d.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
