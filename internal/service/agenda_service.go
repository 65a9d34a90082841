package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"remindcal/internal/model"
	"remindcal/internal/repository"
	"remindcal/internal/timeutil"
)

// DayItems is one cell of the month overview.
type DayItems struct {
	Date  time.Time
	Items []model.CalendarItem
}

// AgendaService merges tasks and events into per-day views.
type AgendaService struct {
	taskRepo  *repository.TaskRepository
	eventRepo *repository.EventRepository
	loc       *time.Location
	log       *zap.Logger
}

func NewAgendaService(taskRepo *repository.TaskRepository, eventRepo *repository.EventRepository, loc *time.Location, log *zap.Logger) *AgendaService {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &AgendaService{taskRepo: taskRepo, eventRepo: eventRepo, loc: loc, log: log}
}

// ItemsByDate returns the tasks on date followed by the events overlapping
// it, stably sorted by time of day. Items without a time sort as "00:00", so
// at equal times tasks stay ahead of events.
func (s *AgendaService) ItemsByDate(ctx context.Context, date string) ([]model.CalendarItem, error) {
	day, err := timeutil.ParseDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	date = timeutil.FormatDate(day)

	tasks, err := s.taskRepo.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.GetByDateRange(ctx, date, date)
	if err != nil {
		return nil, err
	}

	items := make([]model.CalendarItem, 0, len(tasks)+len(events))
	for _, t := range tasks {
		items = append(items, model.TaskItem(t))
	}
	for _, e := range events {
		items = append(items, model.EventItem(e))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].TimeOfDay() < items[j].TimeOfDay()
	})
	return items, nil
}

// MonthOverview lists the items of every day in month's calendar grid. A day
// that fails to load is logged and left empty; only ctx ending stops the walk.
func (s *AgendaService) MonthOverview(ctx context.Context, month time.Time) ([]DayItems, error) {
	days := timeutil.CalendarGridDays(month.In(s.loc))
	out := make([]DayItems, 0, len(days))
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		date := timeutil.FormatDate(day)
		items, err := s.ItemsByDate(ctx, date)
		if err != nil {
			s.log.Warn("load day failed", zap.String("date", date), zap.Error(err))
			items = nil
		}
		out = append(out, DayItems{Date: day, Items: items})
	}
	return out, nil
}
