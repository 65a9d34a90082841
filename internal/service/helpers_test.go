package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"remindcal/internal/model"
	"remindcal/internal/notify"
	"remindcal/internal/repository"
)

type fakeRegistrar struct {
	mu           sync.Mutex
	seq          int
	triggers     []notify.Trigger
	immediate    []notify.Notification
	cancelled    []string
	cancelAll    int
	submitErr    error
	immediateErr error
	cancelErr    error
}

func (f *fakeRegistrar) SubmitTrigger(_ context.Context, t notify.Trigger) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.seq++
	t.ID = fmt.Sprintf("trg-%d", f.seq)
	f.triggers = append(f.triggers, t)
	return t.ID, nil
}

func (f *fakeRegistrar) SubmitImmediate(_ context.Context, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.immediateErr != nil {
		return f.immediateErr
	}
	f.immediate = append(f.immediate, n)
	return nil
}

func (f *fakeRegistrar) CancelTrigger(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeRegistrar) CancelAllTriggers(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelAll++
	return nil
}

type testStores struct {
	tasks  *repository.TaskRepository
	events *repository.EventRepository
}

func newTestStores(t *testing.T) testStores {
	t.Helper()
	db, err := repository.NewDB(repository.Options{
		DSN:    filepath.Join(t.TempDir(), "remindcal.db"),
		Driver: repository.DriverPureGo,
	}, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return testStores{
		tasks:  repository.NewTaskRepository(db),
		events: repository.NewEventRepository(db),
	}
}

func (s testStores) addTask(t *testing.T, id, date, clock string, repeat model.RepeatFrequency) {
	t.Helper()
	err := s.tasks.Insert(context.Background(), model.Task{
		ID:              id,
		Title:           id,
		StartDate:       date,
		StartTime:       clock,
		RepeatFrequency: repeat,
		CreatedAt:       "2024-01-01T00:00:00.000Z",
		UpdatedAt:       "2024-01-01T00:00:00.000Z",
	})
	if err != nil {
		t.Fatalf("insert task %s: %v", id, err)
	}
}

func (s testStores) addEvent(t *testing.T, id, startDate, startTime, endDate, endTime string, repeat model.RepeatFrequency) {
	t.Helper()
	err := s.events.Insert(context.Background(), model.CalendarEvent{
		ID:              id,
		Title:           id,
		StartDate:       startDate,
		StartTime:       startTime,
		EndDate:         endDate,
		EndTime:         endTime,
		RepeatFrequency: repeat,
		CreatedAt:       "2024-01-01T00:00:00.000Z",
		UpdatedAt:       "2024-01-01T00:00:00.000Z",
	})
	if err != nil {
		t.Fatalf("insert event %s: %v", id, err)
	}
}

func itemIDs(items []model.CalendarItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID())
	}
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
