package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"remindcal/internal/model"
	"remindcal/internal/notify"
	"remindcal/internal/repository"
	"remindcal/internal/service"
	"remindcal/internal/timeutil"
)

const testChatID = 4242

type fakeAPI struct {
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("last message is %T", f.sent[len(f.sent)-1])
	}
	return msg.Text
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *notify.CronRegistrar) {
	t.Helper()
	db, err := repository.NewDB(repository.Options{
		DSN:    filepath.Join(t.TempDir(), "bot.db"),
		Driver: repository.DriverPureGo,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	tasks := repository.NewTaskRepository(db)
	events := repository.NewEventRepository(db)
	registrar := notify.NewCronRegistrar(nil, notify.NewLogDeliverer(nil), time.Local, nil)
	planner := service.NewPlannerService(
		tasks, events,
		service.NewReminderService(registrar, nil),
		service.NewAgendaService(tasks, events, time.Local, nil),
		service.NewCleanupService(tasks, events, nil),
		time.Local, nil,
	)
	api := &fakeAPI{}
	return newBot(api, planner, testChatID, nil), api, registrar
}

func textMessage(text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: testChatID, Type: "private"},
		From: &tgbotapi.User{ID: 7, FirstName: "Ada"},
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return msg
}

func TestTaskConversation(t *testing.T) {
	ctx := context.Background()
	b, api, registrar := newTestBot(t)
	tomorrow := timeutil.FormatDate(time.Now().AddDate(0, 0, 1))

	for _, text := range []string{"/newtask", "Buy milk", btnSkip, tomorrow, "18:30", model.RepeatWeekly.Label()} {
		if err := b.handleMessage(ctx, textMessage(text)); err != nil {
			t.Fatalf("%q: %v", text, err)
		}
	}
	if reply := api.lastText(t); !strings.Contains(reply, "Task saved") || !strings.Contains(reply, "Every week") {
		t.Fatalf("unexpected reply: %s", reply)
	}
	if b.hasConversation(7) {
		t.Fatal("conversation should be finished")
	}

	items, err := b.planner.ItemsByDate(ctx, tomorrow)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Title() != "Buy milk" || items[0].StartTime() != "18:30" {
		t.Fatalf("items = %+v", items)
	}
	if len(registrar.Pending()) != 1 {
		t.Fatalf("expected one armed reminder, got %d", len(registrar.Pending()))
	}
}

func TestEventConversationWithRange(t *testing.T) {
	ctx := context.Background()
	b, api, registrar := newTestBot(t)
	start := time.Now().AddDate(0, 0, 2)
	end := start.AddDate(0, 0, 2)
	rangeText := timeutil.FormatDate(start) + " " + timeutil.FormatDate(end)

	for _, text := range []string{"/newevent", "Conference", "Hall B", rangeText, btnAllDay, model.RepeatNone.Label()} {
		if err := b.handleMessage(ctx, textMessage(text)); err != nil {
			t.Fatalf("%q: %v", text, err)
		}
	}
	if reply := api.lastText(t); !strings.Contains(reply, "Event saved") || !strings.Contains(reply, "Reminders:</b> 3") {
		t.Fatalf("unexpected reply: %s", reply)
	}
	if got := len(registrar.Pending()); got != 3 {
		t.Fatalf("pending reminders = %d, want 3", got)
	}
}

func TestConversationRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)

	for _, text := range []string{"/newtask", "Run", "-", "someday"} {
		if err := b.handleMessage(ctx, textMessage(text)); err != nil {
			t.Fatal(err)
		}
	}
	if reply := api.lastText(t); !strings.Contains(reply, "cannot read that date") {
		t.Fatalf("unexpected reply: %s", reply)
	}
	if state := b.getConversation(7); state == nil || state.stage != stageDate {
		t.Fatal("conversation should stay on the date step")
	}

	if err := b.handleMessage(ctx, textMessage(btnCancelDialog)); err != nil {
		t.Fatal(err)
	}
	if b.hasConversation(7) {
		t.Fatal("cancel should drop the conversation")
	}
}

func TestDeleteWithConfirmation(t *testing.T) {
	ctx := context.Background()
	b, api, registrar := newTestBot(t)

	task, err := b.planner.SaveTask(ctx, service.TaskInput{
		Title: "Gym", Date: timeutil.FormatDate(time.Now().AddDate(0, 0, 3)), Time: "07:00",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := b.handleMessage(ctx, textMessage("/delete "+task.ID)); err != nil {
		t.Fatal(err)
	}
	if reply := api.lastText(t); !strings.Contains(reply, "Delete task «Gym»") {
		t.Fatalf("unexpected prompt: %s", reply)
	}
	if err := b.handleMessage(ctx, textMessage(btnConfirm)); err != nil {
		t.Fatal(err)
	}
	if reply := api.lastText(t); !strings.Contains(reply, "deleted") {
		t.Fatalf("unexpected reply: %s", reply)
	}
	if len(registrar.Pending()) != 0 {
		t.Fatal("reminder was not cancelled")
	}
	if _, err := b.planner.FindByID(ctx, task.ID); err == nil {
		t.Fatal("task still exists")
	}
}

func TestForeignChatIgnored(t *testing.T) {
	b, api, _ := newTestBot(t)
	msg := textMessage("/today")
	msg.Chat.ID = 1
	if err := b.handleMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if len(api.sent) != 0 {
		t.Fatal("bot answered a foreign chat")
	}
}

func TestNewBotWithoutLogger(t *testing.T) {
	api := &fakeAPI{}
	b := newBot(api, nil, testChatID, nil)
	if b.log == nil {
		t.Fatal("nil logger was not replaced")
	}
	msg := textMessage("/help")
	msg.Chat.ID = 1
	if err := b.handleMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if err := b.handleMessage(context.Background(), textMessage("/help")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(api.lastText(t), "Commands") {
		t.Fatalf("unexpected reply: %s", api.lastText(t))
	}
}

func TestExportSendsDocument(t *testing.T) {
	b, api, _ := newTestBot(t)
	if err := b.handleMessage(context.Background(), textMessage("/export")); err != nil {
		t.Fatal(err)
	}
	if _, ok := api.sent[len(api.sent)-1].(tgbotapi.DocumentConfig); !ok {
		t.Fatalf("expected a document, got %T", api.sent[len(api.sent)-1])
	}
}

func TestRenderMonth(t *testing.T) {
	month := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var days []service.DayItems
	for _, d := range timeutil.CalendarGridDays(month) {
		di := service.DayItems{Date: d}
		if d.Day() == 15 && d.Month() == time.June {
			di.Items = []model.CalendarItem{model.TaskItem(model.Task{ID: "t", Title: "t"})}
		}
		days = append(days, di)
	}

	text, busy := renderMonth(month, days)
	if !strings.Contains(text, "June 2024") || !strings.Contains(text, " 15*") {
		t.Fatalf("unexpected grid:\n%s", text)
	}
	if strings.Contains(text, " 31") {
		t.Fatalf("days outside the month should be blank:\n%s", text)
	}
	if len(busy) != 1 || busy[0].Day() != 15 {
		t.Fatalf("busy = %v", busy)
	}
}

func TestParseDateRangeInput(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	start, end, err := parseDateRangeInput("2024-06-11..2024-06-13", now)
	if err != nil || timeutil.FormatDate(start) != "2024-06-11" || timeutil.FormatDate(end) != "2024-06-13" {
		t.Fatalf("range: %v %v %v", start, end, err)
	}
	start, end, err = parseDateRangeInput("tomorrow", now)
	if err != nil || !start.Equal(end) || timeutil.FormatDate(start) != "2024-06-11" {
		t.Fatalf("tomorrow: %v %v %v", start, end, err)
	}
	if _, _, err := parseDateRangeInput("2024-06-13 2024-06-11", now); err == nil {
		t.Fatal("expected reversed range to fail")
	}
}
