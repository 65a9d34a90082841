package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"remindcal/internal/model"
	"remindcal/internal/service"
	"remindcal/internal/timeutil"
)

const (
	cbDeletePrefix = "delete:"
	cbDayPrefix    = "day:"
)

type confirmationRequest struct {
	itemID string
	title  string
}

// botAPI is the part of *tgbotapi.BotAPI the bot relies on.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram front end over the planner. Only the configured chat
// is served.
type Bot struct {
	api           botAPI
	planner       *service.PlannerService
	chatID        int64
	log           *zap.Logger
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(api *tgbotapi.BotAPI, planner *service.PlannerService, chatID int64, log *zap.Logger) *Bot {
	b := newBot(api, planner, chatID, log)
	b.log.Info("bot authorized", zap.String("account", api.Self.UserName))
	return b
}

func newBot(api botAPI, planner *service.PlannerService, chatID int64, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		api:           api,
		planner:       planner,
		chatID:        chatID,
		log:           log,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error("handle message", zap.Error(err))
			}
		}
	}
	return nil
}

func (b *Bot) allowed(chat *tgbotapi.Chat) bool {
	return chat != nil && chat.ID == b.chatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	if !b.allowed(msg.Chat) {
		b.log.Warn("ignoring message from foreign chat", zap.Int64("chat_id", msg.Chat.ID))
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled. Nothing was saved.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Info("command",
			zap.Int64("user_id", msg.From.ID),
			zap.String("command", msg.Command()),
			zap.String("args", msg.CommandArguments()),
		)
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Try /newtask, /newevent or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "today":
		return b.sendDay(ctx, msg.Chat.ID, timeutil.FormatDate(b.planner.Now()))
	case "day":
		return b.handleDay(ctx, msg)
	case "month":
		return b.handleMonth(ctx, msg)
	case "newtask":
		return b.startConversation(msg, model.ItemTask)
	case "newevent":
		return b.startConversation(msg, model.ItemEvent)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "export":
		return b.handleExport(ctx, msg)
	case "sweep":
		return b.handleSweep(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your tasks and events and remind you about them.</b>\n\n%s",
		escape(name), commandList)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Commands</b>\n"+commandList)
}

const commandList = "• /newtask — add a single-day task\n" +
	"• /newevent — add an event, possibly spanning several days\n" +
	"• /today — what is on today\n" +
	"• /day &lt;YYYY-MM-DD&gt; — items of one day\n" +
	"• /month [YYYY-MM] — month overview\n" +
	"• /delete &lt;id&gt; — delete an item and its reminders\n" +
	"• /export — download everything as .ics\n" +
	"• /sweep — purge expired items now\n" +
	"• /cancel — abort the current input"

func (b *Bot) handleDay(ctx context.Context, msg *tgbotapi.Message) error {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		return b.sendText(msg.Chat.ID, "Tell me the date: /day 2025-11-30")
	}
	date, err := parseDateInput(arg, b.planner.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, "I cannot read that date. Use <code>2025-11-30</code>.")
	}
	return b.sendDay(ctx, msg.Chat.ID, timeutil.FormatDate(date))
}

func (b *Bot) handleMonth(ctx context.Context, msg *tgbotapi.Message) error {
	month := b.planner.Now()
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		parsed, err := time.ParseInLocation("2006-01", arg, b.planner.Location())
		if err != nil {
			return b.sendText(msg.Chat.ID, "Use <code>/month 2025-11</code>.")
		}
		month = parsed
	}
	return b.sendMonth(ctx, msg.Chat.ID, month)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Tell me the id: /delete task_…")
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From, id)
}

func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message) error {
	feed, err := b.planner.ExportICS(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, userError("Export failed", err))
	}
	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{Name: "remindcal.ics", Bytes: feed})
	doc.Caption = "📤 Your calendar"
	_, err = b.api.Send(doc)
	return err
}

func (b *Bot) handleSweep(ctx context.Context, msg *tgbotapi.Message) error {
	res := b.planner.Sweep(ctx)
	text := fmt.Sprintf("🧹 Removed %d task(s) and %d event(s).", res.TasksDeleted, res.EventsDeleted)
	if res.Failed {
		text += "\nSome items could not be removed; they will be retried next time."
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}
	if !b.allowed(cb.Message.Chat) {
		return nil
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbDeletePrefix):
		return b.askDeleteConfirmation(ctx, cb.Message.Chat.ID, cb.From, strings.TrimPrefix(data, cbDeletePrefix))
	case strings.HasPrefix(data, cbDayPrefix):
		return b.sendDay(ctx, cb.Message.Chat.ID, strings.TrimPrefix(data, cbDayPrefix))
	default:
		return nil
	}
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, id string) error {
	item, err := b.planner.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrItemNotFound) {
			return b.sendText(chatID, "Item not found.")
		}
		return b.sendText(chatID, userError("Lookup failed", err))
	}
	b.setConfirmation(from.ID, confirmationRequest{itemID: item.ID(), title: item.Title()})
	text := fmt.Sprintf("Delete %s «%s»? Its reminders are cancelled too.", item.Type, escape(item.Title()))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		item, err := b.planner.DeleteByID(ctx, req.itemID)
		if err != nil {
			if errors.Is(err, model.ErrItemNotFound) {
				return b.sendText(msg.Chat.ID, "Item not found or already deleted.")
			}
			return b.sendText(msg.Chat.ID, userError("Could not delete", err))
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 «%s» deleted.", escape(item.Title())))
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Kept it.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(msg.Text)) {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startConversation(msg, model.ItemTask)
	case strings.ToLower(menuLabelNewEvent):
		return true, b.startConversation(msg, model.ItemEvent)
	case strings.ToLower(menuLabelToday):
		return true, b.sendDay(ctx, msg.Chat.ID, timeutil.FormatDate(b.planner.Now()))
	case strings.ToLower(menuLabelMonth):
		return true, b.sendMonth(ctx, msg.Chat.ID, b.planner.Now())
	default:
		return false, nil
	}
}

// userError renders err for the chat. Validation messages are shown as is.
func userError(prefix string, err error) string {
	var dErr *model.Error
	if errors.As(err, &dErr) && dErr.Code == model.ErrCodeInvalid {
		return "⚠️ " + escape(dErr.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, escape(err.Error()))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
