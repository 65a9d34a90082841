package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"remindcal/internal/ics"
	"remindcal/internal/model"
	"remindcal/internal/repository"
	"remindcal/internal/timeutil"
)

// TaskInput is what a front end collects to create a task.
type TaskInput struct {
	Title       string
	Description string
	Date        string
	Time        string
	AllDay      bool
	Repeat      model.RepeatFrequency
}

// EventInput is what a front end collects to create an event. EndDate may be
// empty for a single-day event; EndTime defaults to Time.
type EventInput struct {
	Title       string
	Description string
	StartDate   string
	EndDate     string
	Time        string
	EndTime     string
	AllDay      bool
	Repeat      model.RepeatFrequency
}

// PlannerService is the entry point front ends talk to: it saves items,
// wires their reminders and deletes them again.
type PlannerService struct {
	taskRepo  *repository.TaskRepository
	eventRepo *repository.EventRepository
	reminders *ReminderService
	agenda    *AgendaService
	cleanup   *CleanupService
	loc       *time.Location
	now       func() time.Time
	log       *zap.Logger
}

func NewPlannerService(
	taskRepo *repository.TaskRepository,
	eventRepo *repository.EventRepository,
	reminders *ReminderService,
	agenda *AgendaService,
	cleanup *CleanupService,
	loc *time.Location,
	log *zap.Logger,
) *PlannerService {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &PlannerService{
		taskRepo:  taskRepo,
		eventRepo: eventRepo,
		reminders: reminders,
		agenda:    agenda,
		cleanup:   cleanup,
		loc:       loc,
		now:       time.Now,
		log:       log,
	}
}

// Location is the zone dates are interpreted in.
func (s *PlannerService) Location() *time.Location {
	return s.loc
}

// Now is the service clock in Location.
func (s *PlannerService) Now() time.Time {
	return s.now().In(s.loc)
}

// SaveTask validates and stores a task, then announces or schedules its
// reminder. A reminder failure is logged; the task stays saved.
func (s *PlannerService) SaveTask(ctx context.Context, in TaskInput) (*model.Task, error) {
	title, repeat, err := validateCommon(in.Title, in.Repeat)
	if err != nil {
		return nil, err
	}
	date, err := timeutil.ParseDate(in.Date, s.loc)
	if err != nil {
		return nil, err
	}
	clock, err := validateClock(in.Time, in.AllDay)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	selected, err := timeutil.BuildTriggerInstant(date, clock, in.AllDay, timeutil.RangeStartAllDayHour)
	if err != nil {
		return nil, err
	}
	isPast := timeutil.IsPast(selected, in.AllDay, now)
	if isPast && !repeat.Repeats() {
		return nil, model.Invalidf("cannot create task for past date/time")
	}

	stamp := timeutil.ISOTimestamp(now)
	task := model.Task{
		ID:              "task_" + uuid.NewString(),
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		StartDate:       timeutil.FormatDate(date),
		StartTime:       clock,
		RepeatFrequency: repeat,
		CreatedAt:       stamp,
		UpdatedAt:       stamp,
	}
	if err := s.taskRepo.Insert(ctx, task); err != nil {
		return nil, err
	}

	mode := DecideDeliveryMode(in.AllDay, timeutil.SameDay(date, now), isPast, repeat)
	switch mode {
	case DeliveryImmediate:
		if err := s.reminders.Notify(ctx, task.ID, CategoryTask, task.Title, task.Description); err != nil {
			s.log.Error("task notification failed", zap.String("task_id", task.ID), zap.Error(err))
		}
	case DeliveryScheduled:
		id, err := s.reminders.ScheduleSingle(ctx, ReminderRequest{
			ItemID:      task.ID,
			Category:    CategoryTask,
			Title:       task.Title,
			Description: task.Description,
			Date:        date,
			Time:        clock,
			AllDay:      in.AllDay,
			Repeat:      repeat,
		})
		if err != nil {
			s.log.Error("task reminder not scheduled", zap.String("task_id", task.ID), zap.Error(err))
			break
		}
		task.NotificationID = id
		task.UpdatedAt = timeutil.ISOTimestamp(s.Now())
		if err := s.taskRepo.Update(ctx, task); err != nil {
			s.log.Error("store task notification id failed", zap.String("task_id", task.ID), zap.Error(err))
		}
	}

	s.log.Info("task saved",
		zap.String("task_id", task.ID),
		zap.String("date", task.StartDate),
		zap.String("repeat", string(repeat)),
		zap.Stringer("delivery", mode),
	)
	return &task, nil
}

// SaveEvent validates and stores an event. Multi-day events get one reminder
// per day.
func (s *PlannerService) SaveEvent(ctx context.Context, in EventInput) (*model.CalendarEvent, error) {
	title, repeat, err := validateCommon(in.Title, in.Repeat)
	if err != nil {
		return nil, err
	}
	startDate, err := timeutil.ParseDate(in.StartDate, s.loc)
	if err != nil {
		return nil, err
	}
	endDate := startDate
	if strings.TrimSpace(in.EndDate) != "" {
		if endDate, err = timeutil.ParseDate(in.EndDate, s.loc); err != nil {
			return nil, err
		}
		if endDate.Before(startDate) {
			return nil, model.Invalidf("end date %s is before start date %s", in.EndDate, in.StartDate)
		}
	}
	clock, err := validateClock(in.Time, in.AllDay)
	if err != nil {
		return nil, err
	}
	endClock := ""
	if !in.AllDay {
		endClock = clock
		if strings.TrimSpace(in.EndTime) != "" {
			if endClock, err = validateClock(in.EndTime, false); err != nil {
				return nil, err
			}
		}
	}

	if !in.AllDay && endDate.Equal(startDate) && endClock < clock {
		return nil, model.Invalidf("end time %s is before start time %s", endClock, clock)
	}

	now := s.Now()
	selected, err := timeutil.BuildTriggerInstant(startDate, clock, in.AllDay, timeutil.ReminderAllDayHour)
	if err != nil {
		return nil, err
	}
	isPast := timeutil.IsPast(selected, in.AllDay, now)
	if isPast && !repeat.Repeats() {
		return nil, model.Invalidf("cannot create event for past date/time")
	}

	stamp := timeutil.ISOTimestamp(now)
	event := model.CalendarEvent{
		ID:              "event_" + uuid.NewString(),
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		StartDate:       timeutil.FormatDate(startDate),
		StartTime:       clock,
		EndDate:         timeutil.FormatDate(endDate),
		EndTime:         endClock,
		RepeatFrequency: repeat,
		CreatedAt:       stamp,
		UpdatedAt:       stamp,
	}
	if err := s.eventRepo.Insert(ctx, event); err != nil {
		return nil, err
	}

	mode := DecideDeliveryMode(in.AllDay, timeutil.SameDay(startDate, now), isPast, repeat)
	fanOutFrom := startDate
	switch mode {
	case DeliveryImmediate:
		if err := s.reminders.Notify(ctx, event.ID, CategoryEvent, event.Title, event.Description); err != nil {
			s.log.Error("event notification failed", zap.String("event_id", event.ID), zap.Error(err))
		}
		// today is announced now; the remaining days still get a reminder each
		fanOutFrom = startDate.AddDate(0, 0, 1)
		if fanOutFrom.After(endDate) {
			break
		}
		fallthrough
	case DeliveryScheduled:
		ids, err := s.reminders.ScheduleFanOut(ctx, FanOutRequest{
			ItemID:      event.ID,
			Category:    CategoryEvent,
			Title:       event.Title,
			Description: event.Description,
			StartDate:   fanOutFrom,
			EndDate:     endDate,
			Time:        clock,
			AllDay:      in.AllDay,
			Repeat:      repeat,
		})
		if err != nil {
			s.log.Error("event reminders not fully scheduled",
				zap.String("event_id", event.ID),
				zap.Int("scheduled", len(ids)),
				zap.Error(err),
			)
		}
		if len(ids) == 0 {
			break
		}
		event.NotificationID = model.JoinNotificationIDs(ids)
		event.UpdatedAt = timeutil.ISOTimestamp(s.Now())
		if err := s.eventRepo.Update(ctx, event); err != nil {
			s.log.Error("store event notification ids failed", zap.String("event_id", event.ID), zap.Error(err))
		}
	}

	s.log.Info("event saved",
		zap.String("event_id", event.ID),
		zap.String("start", event.StartDate),
		zap.String("end", event.EndDate),
		zap.String("repeat", string(repeat)),
		zap.Stringer("delivery", mode),
	)
	return &event, nil
}

// DeleteItem cancels every trigger the item owns and then deletes it. A
// cancellation failure leaves the item in place.
func (s *PlannerService) DeleteItem(ctx context.Context, item model.CalendarItem) error {
	for _, id := range item.NotificationIDs() {
		if err := s.reminders.Cancel(ctx, id); err != nil {
			return err
		}
	}

	var err error
	switch item.Type {
	case model.ItemTask:
		err = s.taskRepo.Delete(ctx, item.ID())
	case model.ItemEvent:
		err = s.eventRepo.Delete(ctx, item.ID())
	default:
		return model.Invalidf("unknown item type %q", item.Type)
	}
	if err != nil {
		return err
	}
	s.log.Info("item deleted", zap.String("type", string(item.Type)), zap.String("id", item.ID()))
	return nil
}

// FindByID looks id up among tasks, then events.
func (s *PlannerService) FindByID(ctx context.Context, id string) (model.CalendarItem, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err == nil {
		return model.TaskItem(*task), nil
	}
	if !errors.Is(err, model.ErrItemNotFound) {
		return model.CalendarItem{}, err
	}
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return model.CalendarItem{}, err
	}
	return model.EventItem(*event), nil
}

// DeleteByID deletes the task or event with id and returns what was removed.
func (s *PlannerService) DeleteByID(ctx context.Context, id string) (model.CalendarItem, error) {
	item, err := s.FindByID(ctx, id)
	if err != nil {
		return model.CalendarItem{}, err
	}
	if err := s.DeleteItem(ctx, item); err != nil {
		return model.CalendarItem{}, err
	}
	return item, nil
}

func (s *PlannerService) ItemsByDate(ctx context.Context, date string) ([]model.CalendarItem, error) {
	return s.agenda.ItemsByDate(ctx, date)
}

func (s *PlannerService) MonthOverview(ctx context.Context, month time.Time) ([]DayItems, error) {
	return s.agenda.MonthOverview(ctx, month)
}

// Sweep purges expired items as of the service clock.
func (s *PlannerService) Sweep(ctx context.Context) SweepResult {
	return s.cleanup.Sweep(ctx, s.Now())
}

func (s *PlannerService) CalendarGrid(month time.Time) []time.Time {
	return timeutil.CalendarGridDays(month.In(s.loc))
}

// ExportICS renders every stored item as an iCalendar feed.
func (s *PlannerService) ExportICS(ctx context.Context) ([]byte, error) {
	tasks, err := s.taskRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return ics.Export(tasks, events, s.loc)
}

func validateCommon(title string, repeat model.RepeatFrequency) (string, model.RepeatFrequency, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", model.Invalidf("title is required")
	}
	if repeat == "" {
		repeat = model.RepeatNone
	}
	if !repeat.Valid() {
		return "", "", model.Invalidf("unknown repeat frequency %q", repeat)
	}
	return title, repeat, nil
}

// validateClock returns the normalised HH:MM, or "" for all-day items.
func validateClock(clock string, allDay bool) (string, error) {
	if allDay {
		return "", nil
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return "", model.Invalidf("time is required when all-day is off")
	}
	if _, _, err := timeutil.ParseClock(clock); err != nil {
		return "", err
	}
	return clock, nil
}
