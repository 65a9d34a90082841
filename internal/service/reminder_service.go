package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"remindcal/internal/model"
	"remindcal/internal/notify"
	"remindcal/internal/timeutil"
)

// Notification categories, carried in trigger metadata.
const (
	CategoryTask  = "reminder"
	CategoryEvent = "event"
)

// DeliveryMode is the outcome of DecideDeliveryMode.
type DeliveryMode int

const (
	DeliveryDropped DeliveryMode = iota
	DeliveryImmediate
	DeliveryScheduled
)

func (m DeliveryMode) String() string {
	switch m {
	case DeliveryImmediate:
		return "immediate"
	case DeliveryScheduled:
		return "scheduled"
	default:
		return "dropped"
	}
}

// DecideDeliveryMode picks how a freshly saved item is announced. An all-day,
// non-repeating item for today has no future instant left and is shown at
// once; anything upcoming or repeating is scheduled; the rest is dropped.
func DecideDeliveryMode(isAllDay, isToday, isPast bool, repeat model.RepeatFrequency) DeliveryMode {
	switch {
	case isAllDay && isToday && !repeat.Repeats():
		return DeliveryImmediate
	case !isPast || repeat.Repeats():
		return DeliveryScheduled
	default:
		return DeliveryDropped
	}
}

// ReminderRequest describes one trigger for one day.
type ReminderRequest struct {
	ItemID      string
	Category    string
	Title       string
	Description string
	Date        time.Time
	Time        string
	AllDay      bool
	Repeat      model.RepeatFrequency
}

// FanOutRequest describes a multi-day event: one trigger per day.
type FanOutRequest struct {
	ItemID      string
	Category    string
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Time        string
	AllDay      bool
	Repeat      model.RepeatFrequency
}

// ReminderService turns items into trigger descriptors for a Registrar.
type ReminderService struct {
	registrar notify.Registrar
	log       *zap.Logger
}

func NewReminderService(registrar notify.Registrar, log *zap.Logger) *ReminderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReminderService{registrar: registrar, log: log}
}

// ScheduleSingle submits one trigger and returns the registrar's id.
func (s *ReminderService) ScheduleSingle(ctx context.Context, req ReminderRequest) (string, error) {
	trigger, err := buildTrigger(req)
	if err != nil {
		return "", err
	}
	id, err := s.registrar.SubmitTrigger(ctx, trigger)
	if err != nil {
		return "", registrarError("submit trigger", err)
	}
	s.log.Debug("reminder scheduled",
		zap.String("item_id", req.ItemID),
		zap.String("trigger_id", id),
		zap.Time("fire_at", trigger.FireAt),
	)
	return id, nil
}

// ScheduleFanOut submits one independent trigger for every day from StartDate
// to EndDate inclusive and returns the ids in date order. On failure the ids
// submitted so far are returned alongside the error.
func (s *ReminderService) ScheduleFanOut(ctx context.Context, req FanOutRequest) ([]string, error) {
	if !req.AllDay && strings.TrimSpace(req.Time) == "" {
		return nil, model.Invalidf("time is required when all-day is off")
	}
	days := timeutil.EachDay(req.StartDate, req.EndDate)
	if len(days) == 0 {
		return nil, model.Invalidf("end date %s is before start date %s",
			timeutil.FormatDate(req.EndDate), timeutil.FormatDate(req.StartDate))
	}

	ids := make([]string, 0, len(days))
	for _, day := range days {
		id, err := s.ScheduleSingle(ctx, ReminderRequest{
			ItemID:      req.ItemID,
			Category:    req.Category,
			Title:       req.Title,
			Description: req.Description,
			Date:        day,
			Time:        req.Time,
			AllDay:      req.AllDay,
			Repeat:      req.Repeat,
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Notify delivers a notification right away.
func (s *ReminderService) Notify(ctx context.Context, itemID, category, title, description string) error {
	n := notify.Notification{
		Title:      title,
		Body:       reminderBody(category, description),
		Metadata:   map[string]string{notify.MetaItemID: itemID, notify.MetaCategory: category, notify.MetaRepeat: string(model.RepeatNone)},
		AutoCancel: true,
	}
	if err := s.registrar.SubmitImmediate(ctx, n); err != nil {
		return registrarError("deliver notification", err)
	}
	return nil
}

// Cancel drops one trigger. Unknown and already fired ids are fine.
func (s *ReminderService) Cancel(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	if err := s.registrar.CancelTrigger(ctx, id); err != nil {
		return registrarError("cancel trigger", err)
	}
	return nil
}

func (s *ReminderService) CancelAll(ctx context.Context) error {
	if err := s.registrar.CancelAllTriggers(ctx); err != nil {
		return registrarError("cancel triggers", err)
	}
	return nil
}

func buildTrigger(req ReminderRequest) (notify.Trigger, error) {
	repeat := req.Repeat
	if repeat == "" {
		repeat = model.RepeatNone
	}
	if !repeat.Valid() {
		return notify.Trigger{}, model.Invalidf("unknown repeat frequency %q", req.Repeat)
	}
	fireAt, err := timeutil.BuildTriggerInstant(req.Date, req.Time, req.AllDay, timeutil.ReminderAllDayHour)
	if err != nil {
		return notify.Trigger{}, err
	}
	return notify.Trigger{
		Title:  req.Title,
		Body:   reminderBody(req.Category, req.Description),
		FireAt: fireAt,
		Repeat: repeat,
		Exact:  true,
		Metadata: map[string]string{
			notify.MetaItemID:   req.ItemID,
			notify.MetaRepeat:   string(repeat),
			notify.MetaCategory: req.Category,
		},
	}, nil
}

func reminderBody(category, description string) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	if category == CategoryEvent {
		return "Event reminder"
	}
	return "Task reminder"
}

// registrarError classifies a registrar failure unless it already is one.
func registrarError(op string, err error) error {
	if model.HasCode(err, model.ErrCodeRegistrar) || model.HasCode(err, model.ErrCodeInvalid) {
		return err
	}
	return model.WrapError(model.ErrCodeRegistrar, op, err)
}
