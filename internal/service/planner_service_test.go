package service

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"remindcal/internal/model"
	"remindcal/internal/notify"
)

var plannerNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestPlanner(t *testing.T) (*PlannerService, *fakeRegistrar, testStores) {
	t.Helper()
	stores := newTestStores(t)
	reg := &fakeRegistrar{}
	planner := NewPlannerService(
		stores.tasks,
		stores.events,
		NewReminderService(reg, nil),
		NewAgendaService(stores.tasks, stores.events, time.UTC, nil),
		NewCleanupService(stores.tasks, stores.events, nil),
		time.UTC,
		nil,
	)
	planner.now = func() time.Time { return plannerNow }
	return planner, reg, stores
}

func TestSaveTaskSchedulesReminder(t *testing.T) {
	ctx := context.Background()
	planner, reg, stores := newTestPlanner(t)

	task, err := planner.SaveTask(ctx, TaskInput{Title: "  Dentist ", Date: "2024-06-11", Time: "15:00"})
	if err != nil {
		t.Fatal(err)
	}
	if task.Title != "Dentist" || task.RepeatFrequency != model.RepeatNone || task.NotificationID != "trg-1" {
		t.Fatalf("task = %+v", task)
	}
	if len(reg.triggers) != 1 || !reg.triggers[0].FireAt.Equal(time.Date(2024, 6, 11, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("triggers = %+v", reg.triggers)
	}
	if reg.triggers[0].Metadata[notify.MetaItemID] != task.ID {
		t.Fatal("trigger does not point at the task")
	}

	stored, err := stores.tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.NotificationID != "trg-1" || stored.CreatedAt != "2024-06-10T12:00:00.000Z" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestSaveTaskAllDayTodayNotifiesImmediately(t *testing.T) {
	planner, reg, _ := newTestPlanner(t)

	task, err := planner.SaveTask(context.Background(), TaskInput{Title: "Laundry", Date: "2024-06-10", AllDay: true})
	if err != nil {
		t.Fatal(err)
	}
	if task.StartTime != "" || task.NotificationID != "" {
		t.Fatalf("task = %+v", task)
	}
	if len(reg.immediate) != 1 || len(reg.triggers) != 0 {
		t.Fatalf("immediate=%d triggers=%d", len(reg.immediate), len(reg.triggers))
	}
	if reg.immediate[0].Body != "Task reminder" {
		t.Fatalf("body = %q", reg.immediate[0].Body)
	}
}

func TestSaveTaskValidation(t *testing.T) {
	planner, reg, stores := newTestPlanner(t)
	ctx := context.Background()

	for name, in := range map[string]TaskInput{
		"blank title":  {Title: " ", Date: "2024-06-11", Time: "10:00"},
		"missing time": {Title: "x", Date: "2024-06-11"},
		"bad time":     {Title: "x", Date: "2024-06-11", Time: "10:00:30"},
		"bad date":     {Title: "x", Date: "11/06/2024", Time: "10:00"},
		"past":         {Title: "x", Date: "2024-06-10", Time: "08:00"},
		"past all-day": {Title: "x", Date: "2024-06-09", AllDay: true},
		"bad repeat":   {Title: "x", Date: "2024-06-11", Time: "10:00", Repeat: "monthly"},
	} {
		if _, err := planner.SaveTask(ctx, in); !errors.Is(err, model.ErrInvalidArgument) {
			t.Errorf("%s: expected invalid argument, got %v", name, err)
		}
	}
	if all, _ := stores.tasks.GetAll(ctx); len(all) != 0 {
		t.Fatalf("rejected tasks were stored: %+v", all)
	}
	if len(reg.triggers)+len(reg.immediate) != 0 {
		t.Fatal("rejected tasks produced reminders")
	}
}

func TestSaveTaskPastButRepeating(t *testing.T) {
	planner, reg, _ := newTestPlanner(t)

	task, err := planner.SaveTask(context.Background(), TaskInput{
		Title: "Pills", Date: "2024-06-01", Time: "08:00", Repeat: model.RepeatDaily,
	})
	if err != nil {
		t.Fatal(err)
	}
	if task.NotificationID == "" || len(reg.triggers) != 1 || reg.triggers[0].Repeat != model.RepeatDaily {
		t.Fatalf("task=%+v triggers=%+v", task, reg.triggers)
	}
}

func TestSaveTaskKeepsItemWhenSchedulingFails(t *testing.T) {
	ctx := context.Background()
	planner, reg, stores := newTestPlanner(t)
	reg.submitErr = errors.New("no alarms allowed")

	task, err := planner.SaveTask(ctx, TaskInput{Title: "Call mum", Date: "2024-06-12", Time: "19:00"})
	if err != nil {
		t.Fatalf("save must succeed without a reminder: %v", err)
	}
	stored, err := stores.tasks.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.NotificationID != "" {
		t.Fatalf("unexpected notification id %q", stored.NotificationID)
	}
}

func TestSaveEventFansOut(t *testing.T) {
	ctx := context.Background()
	planner, reg, stores := newTestPlanner(t)

	event, err := planner.SaveEvent(ctx, EventInput{
		Title: "Retreat", StartDate: "2024-06-11", EndDate: "2024-06-13", Time: "10:00",
	})
	if err != nil {
		t.Fatal(err)
	}
	if event.EndTime != "10:00" || event.EndDate != "2024-06-13" {
		t.Fatalf("event = %+v", event)
	}
	if event.NotificationID != "trg-1,trg-2,trg-3" {
		t.Fatalf("notification ids = %q", event.NotificationID)
	}
	if len(reg.triggers) != 3 || reg.triggers[0].Body != "Event reminder" {
		t.Fatalf("triggers = %+v", reg.triggers)
	}

	stored, err := stores.events.GetByID(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(stored.NotificationIDs(), []string{"trg-1", "trg-2", "trg-3"}) {
		t.Fatalf("stored ids = %v", stored.NotificationIDs())
	}
}

func TestSaveEventValidation(t *testing.T) {
	planner, _, _ := newTestPlanner(t)
	ctx := context.Background()

	for name, in := range map[string]EventInput{
		"end before start":      {Title: "x", StartDate: "2024-06-12", EndDate: "2024-06-11", AllDay: true},
		"end time before start": {Title: "x", StartDate: "2024-06-12", Time: "10:00", EndTime: "09:00"},
		"past":                  {Title: "x", StartDate: "2024-06-09", AllDay: true},
	} {
		if _, err := planner.SaveEvent(ctx, in); !errors.Is(err, model.ErrInvalidArgument) {
			t.Errorf("%s: expected invalid argument, got %v", name, err)
		}
	}
}

func TestSaveEventAllDayToday(t *testing.T) {
	planner, reg, _ := newTestPlanner(t)

	event, err := planner.SaveEvent(context.Background(), EventInput{Title: "Holiday", StartDate: "2024-06-10", AllDay: true})
	if err != nil {
		t.Fatal(err)
	}
	if event.EndDate != "2024-06-10" || event.NotificationID != "" || len(reg.immediate) != 1 {
		t.Fatalf("event=%+v immediate=%d", event, len(reg.immediate))
	}
}

func TestSaveEventAllDayFromTodaySpanningDays(t *testing.T) {
	ctx := context.Background()
	planner, reg, stores := newTestPlanner(t)

	event, err := planner.SaveEvent(ctx, EventInput{
		Title: "Festival", StartDate: "2024-06-10", EndDate: "2024-06-12", AllDay: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.immediate) != 1 {
		t.Fatalf("immediate = %d, want 1", len(reg.immediate))
	}
	if len(reg.triggers) != 2 {
		t.Fatalf("triggers = %d, want 2", len(reg.triggers))
	}
	for i, day := range []int{11, 12} {
		want := time.Date(2024, 6, day, 9, 0, 0, 0, time.UTC)
		if !reg.triggers[i].FireAt.Equal(want) {
			t.Errorf("trigger %d fires at %v, want %v", i, reg.triggers[i].FireAt, want)
		}
	}

	stored, err := stores.events.GetByID(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(stored.NotificationIDs(), []string{"trg-1", "trg-2"}) {
		t.Fatalf("stored ids = %v", stored.NotificationIDs())
	}
}

func TestDeleteByIDCancelsTriggers(t *testing.T) {
	ctx := context.Background()
	planner, reg, stores := newTestPlanner(t)

	event, err := planner.SaveEvent(ctx, EventInput{Title: "Course", StartDate: "2024-06-11", EndDate: "2024-06-12", Time: "18:30"})
	if err != nil {
		t.Fatal(err)
	}

	item, err := planner.DeleteByID(ctx, event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if item.Type != model.ItemEvent || item.ID() != event.ID {
		t.Fatalf("deleted item = %+v", item)
	}
	if !reflect.DeepEqual(reg.cancelled, []string{"trg-1", "trg-2"}) {
		t.Fatalf("cancelled = %v", reg.cancelled)
	}
	if _, err := stores.events.GetByID(ctx, event.ID); !errors.Is(err, model.ErrItemNotFound) {
		t.Fatalf("event still present: %v", err)
	}
	if _, err := planner.DeleteByID(ctx, event.ID); !errors.Is(err, model.ErrItemNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteItemKeepsRowWhenCancelFails(t *testing.T) {
	ctx := context.Background()
	planner, reg, stores := newTestPlanner(t)

	task, err := planner.SaveTask(ctx, TaskInput{Title: "Rent", Date: "2024-06-30", AllDay: true})
	if err != nil {
		t.Fatal(err)
	}
	reg.cancelErr = errors.New("registrar offline")

	if err := planner.DeleteItem(ctx, model.TaskItem(*task)); !errors.Is(err, model.ErrRegistrar) {
		t.Fatalf("expected registrar error, got %v", err)
	}
	if _, err := stores.tasks.GetByID(ctx, task.ID); err != nil {
		t.Fatalf("task should survive a failed cancel: %v", err)
	}
}

func TestPlannerViews(t *testing.T) {
	ctx := context.Background()
	planner, _, _ := newTestPlanner(t)

	if _, err := planner.SaveTask(ctx, TaskInput{Title: "Standup", Date: "2024-06-11", Time: "09:15"}); err != nil {
		t.Fatal(err)
	}
	if _, err := planner.SaveEvent(ctx, EventInput{Title: "Sprint", StartDate: "2024-06-11", EndDate: "2024-06-14", AllDay: true}); err != nil {
		t.Fatal(err)
	}

	items, err := planner.ItemsByDate(ctx, "2024-06-12")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Title() != "Sprint" {
		t.Fatalf("items = %+v", items)
	}

	if got := len(planner.CalendarGrid(plannerNow)); got != 35 {
		t.Fatalf("grid = %d days", got)
	}

	feed, err := planner.ExportICS(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(feed, []byte("SUMMARY:Standup")) || !bytes.Contains(feed, []byte("SUMMARY:Sprint")) {
		t.Fatalf("feed is missing items:\n%s", feed)
	}

	res := planner.Sweep(ctx)
	if res.Failed || res.TasksDeleted != 0 || res.EventsDeleted != 0 {
		t.Fatalf("sweep = %+v", res)
	}
}
