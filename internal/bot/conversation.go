package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"remindcal/internal/model"
	"remindcal/internal/service"
	"remindcal/internal/timeutil"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageDate
	stageTime
	stageRepeat
)

type conversationState struct {
	stage       conversationStage
	kind        model.ItemType
	title       string
	description string
	startDate   time.Time
	endDate     time.Time
	clock       string
	allDay      bool
}

func (b *Bot) startConversation(msg *tgbotapi.Message, kind model.ItemType) error {
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle, kind: kind})
	b.log.Info("start conversation", zap.Int64("user_id", msg.From.ID), zap.String("kind", string(kind)))
	return b.sendWithReplyMarkup(msg.Chat.ID,
		fmt.Sprintf("🆕 New %s.\n<b>Step 1:</b> what should I call it?", kind), cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title cannot be empty.", cancelKeyboard())
		}
		state.title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Add a short description (or skip).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.description = text
		}
		state.stage = stageDate
		if state.kind == model.ItemEvent {
			return b.sendWithReplyMarkup(msg.Chat.ID,
				"📅 Which days? Send <code>2025-11-30</code> or a range <code>2025-11-30 2025-12-02</code>.", dateKeyboard())
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, "📅 Which day? Send <code>2025-11-30</code>.", dateKeyboard())
	case stageDate:
		now := b.planner.Now()
		start, end, err := parseDateRangeInput(text, now)
		if err != nil || (state.kind == model.ItemTask && !end.Equal(start)) {
			return b.sendWithReplyMarkup(msg.Chat.ID, "I cannot read that date. Use <code>2025-11-30</code>.", dateKeyboard())
		}
		state.startDate, state.endDate = start, end
		state.stage = stageTime
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ At what time? Send <code>18:30</code> or choose all day.", timeKeyboard())
	case stageTime:
		if isAllDayInput(text) {
			state.allDay = true
			state.clock = ""
		} else {
			if _, _, err := timeutil.ParseClock(text); err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Use HH:MM, for example <code>09:05</code>.", timeKeyboard())
			}
			state.allDay = false
			state.clock = text
		}
		state.stage = stageRepeat
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 Should it repeat?", repeatKeyboard())
	case stageRepeat:
		repeat, ok := parseRepeatInput(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the options.", repeatKeyboard())
		}
		err := b.finishCreation(ctx, msg.Chat.ID, state, repeat)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return nil
	}
}

func (b *Bot) finishCreation(ctx context.Context, chatID int64, state *conversationState, repeat model.RepeatFrequency) error {
	var (
		item model.CalendarItem
		err  error
	)
	if state.kind == model.ItemEvent {
		var event *model.CalendarEvent
		event, err = b.planner.SaveEvent(ctx, service.EventInput{
			Title:       state.title,
			Description: state.description,
			StartDate:   timeutil.FormatDate(state.startDate),
			EndDate:     timeutil.FormatDate(state.endDate),
			Time:        state.clock,
			AllDay:      state.allDay,
			Repeat:      repeat,
		})
		if err == nil {
			item = model.EventItem(*event)
		}
	} else {
		var task *model.Task
		task, err = b.planner.SaveTask(ctx, service.TaskInput{
			Title:       state.title,
			Description: state.description,
			Date:        timeutil.FormatDate(state.startDate),
			Time:        state.clock,
			AllDay:      state.allDay,
			Repeat:      repeat,
		})
		if err == nil {
			item = model.TaskItem(*task)
		}
	}
	if err != nil {
		return b.sendText(chatID, userError("Could not save", err))
	}

	b.log.Info("item created", zap.String("type", string(item.Type)), zap.String("id", item.ID()))
	return b.sendText(chatID, formatSaved(item))
}

func formatSaved(item model.CalendarItem) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ <b>%s saved</b>\n", kindLabel(item.Type)))
	sb.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(item.Title())))
	if d := item.Description(); d != "" {
		sb.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(d)))
	}
	sb.WriteString(fmt.Sprintf("• <b>When:</b> %s\n", whenLabel(item)))
	sb.WriteString(fmt.Sprintf("• <b>Repeat:</b> %s\n", item.Repeat().Label()))
	if n := len(item.NotificationIDs()); n > 0 {
		sb.WriteString(fmt.Sprintf("• <b>Reminders:</b> %d\n", n))
	}
	sb.WriteString(fmt.Sprintf("• <b>ID:</b> <code>%s</code>", item.ID()))
	return sb.String()
}

func parseDateInput(text string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnToday), "today":
		return timeutil.StartOfDay(now), nil
	case strings.ToLower(btnTomorrow), "tomorrow":
		return timeutil.StartOfDay(now).AddDate(0, 0, 1), nil
	}
	return timeutil.ParseDate(text, now.Location())
}

// parseDateRangeInput accepts one date or two separated by spaces or "..".
func parseDateRangeInput(text string, now time.Time) (time.Time, time.Time, error) {
	fields := strings.Fields(strings.ReplaceAll(text, "..", " "))
	switch len(fields) {
	case 1:
		d, err := parseDateInput(fields[0], now)
		return d, d, err
	case 2:
		start, err := parseDateInput(fields[0], now)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := parseDateInput(fields[1], now)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, model.Invalidf("end date before start date")
		}
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, model.Invalidf("malformed date %q", text)
	}
}

func parseRepeatInput(text string) (model.RepeatFrequency, bool) {
	value := strings.ToLower(strings.TrimSpace(text))
	for _, r := range []model.RepeatFrequency{model.RepeatNone, model.RepeatDaily, model.RepeatWeekly} {
		if value == strings.ToLower(r.Label()) || value == string(r) {
			return r, true
		}
	}
	if isSkipInput(value) || value == "no" {
		return model.RepeatNone, true
	}
	return "", false
}
