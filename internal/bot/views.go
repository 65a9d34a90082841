package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"remindcal/internal/model"
	"remindcal/internal/service"
	"remindcal/internal/timeutil"
)

const (
	iconTask   = "📝"
	iconEvent  = "📌"
	iconRepeat = "🔁"
)

func (b *Bot) sendDay(ctx context.Context, chatID int64, date string) error {
	items, err := b.planner.ItemsByDate(ctx, date)
	if err != nil {
		return b.sendText(chatID, userError("Could not load the day", err))
	}

	header := fmt.Sprintf("🗓 <b>%s</b>", dayTitle(date, b.planner.Location()))
	if len(items) == 0 {
		return b.sendText(chatID, header+"\nNothing planned.")
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, item := range items {
		sb.WriteString(formatItem(item))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+shortTitle(item.Title(), 28), cbDeletePrefix+item.ID()),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(sb.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) sendMonth(ctx context.Context, chatID int64, month time.Time) error {
	days, err := b.planner.MonthOverview(ctx, month)
	if err != nil {
		return b.sendText(chatID, userError("Could not load the month", err))
	}

	text, busy := renderMonth(month, days)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(busy) > 0 {
		msg.ReplyMarkup = dayButtons(busy)
	}
	_, err = b.api.Send(msg)
	return err
}

// renderMonth draws a Monday-first grid. Days with items are starred and
// returned so they can get buttons.
func renderMonth(month time.Time, days []service.DayItems) (string, []time.Time) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📆 <b>%s</b>\n<pre>", month.Format("January 2006")))
	sb.WriteString(" Mo  Tu  We  Th  Fr  Sa  Su\n")

	var busy []time.Time
	for i, day := range days {
		cell := "    "
		if day.Date.Month() == month.Month() {
			mark := " "
			if len(day.Items) > 0 {
				mark = "*"
				busy = append(busy, day.Date)
			}
			cell = fmt.Sprintf("%3d%s", day.Date.Day(), mark)
		}
		sb.WriteString(cell)
		if i%7 == 6 {
			sb.WriteString("\n")
		}
	}
	sb.WriteString("</pre>")
	if len(busy) > 0 {
		sb.WriteString("\n* marks days with items. Tap one below.")
	}
	return sb.String(), busy
}

func dayButtons(days []time.Time) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, d := range days {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(d.Format("Jan 2"), cbDayPrefix+timeutil.FormatDate(d)))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatItem(item model.CalendarItem) string {
	var sb strings.Builder

	icon := iconTask
	if item.Type == model.ItemEvent {
		icon = iconEvent
	}
	clock := item.StartTime()
	if clock == "" {
		clock = "all day"
	}
	sb.WriteString(fmt.Sprintf("%s <b>%s</b> · %s", icon, clock, escape(item.Title())))
	if item.Repeat().Repeats() {
		sb.WriteString(" " + iconRepeat)
	}
	if item.Type == model.ItemEvent && item.Event.EffectiveEndDate() != item.StartDate() {
		sb.WriteString(fmt.Sprintf("\n   ↔️ %s → %s", item.StartDate(), item.Event.EffectiveEndDate()))
	}
	if d := strings.TrimSpace(item.Description()); d != "" {
		sb.WriteString(fmt.Sprintf("\n   %s", escape(d)))
	}
	sb.WriteString(fmt.Sprintf("\n   <code>%s</code>\n", item.ID()))
	return sb.String()
}

func whenLabel(item model.CalendarItem) string {
	clock := item.StartTime()
	if clock == "" {
		clock = "all day"
	}
	if item.Type == model.ItemEvent {
		if end := item.Event.EffectiveEndDate(); end != item.StartDate() {
			return fmt.Sprintf("%s → %s, %s", item.StartDate(), end, clock)
		}
	}
	return fmt.Sprintf("%s, %s", item.StartDate(), clock)
}

func dayTitle(date string, loc *time.Location) string {
	d, err := timeutil.ParseDate(date, loc)
	if err != nil {
		return escape(date)
	}
	return d.Format("Monday, 2 January 2006")
}

func kindLabel(kind model.ItemType) string {
	if kind == model.ItemEvent {
		return "Event"
	}
	return "Task"
}

func escape(s string) string {
	return html.EscapeString(s)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
