package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"remindcal/internal/model"
)

// EventRepository handles CRUD and range queries for calendar events.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Insert(ctx context.Context, event model.CalendarEvent) error {
	if event.RepeatFrequency == "" {
		event.RepeatFrequency = model.RepeatNone
	}
	row := newEventRow(event)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return classify(err, fmt.Sprintf("insert event %q", event.ID))
	}
	return nil
}

// Update overwrites every mutable column, notification_id included once.
func (r *EventRepository) Update(ctx context.Context, event model.CalendarEvent) error {
	row := newEventRow(event)
	res := r.db.WithContext(ctx).Model(&eventRow{}).Where("id = ?", event.ID).Updates(map[string]any{
		"title":            row.Title,
		"description":      row.Description,
		"start_date":       row.StartDate,
		"start_time":       row.StartTime,
		"end_date":         row.EndDate,
		"end_time":         row.EndTime,
		"repeat_frequency": row.RepeatFrequency,
		"notification_id":  row.NotificationID,
		"updated_at":       row.UpdatedAt,
	})
	if res.Error != nil {
		return classify(res.Error, fmt.Sprintf("update event %q", event.ID))
	}
	if res.RowsAffected == 0 {
		return model.WrapError(model.ErrCodeNotFound, fmt.Sprintf("update event %q", event.ID), nil)
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&eventRow{}).Error; err != nil {
		return classify(err, fmt.Sprintf("delete event %q", id))
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.CalendarEvent, error) {
	var row eventRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, classify(err, fmt.Sprintf("find event %q", id))
	}
	event, err := toEvent(row)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) GetAll(ctx context.Context) ([]model.CalendarEvent, error) {
	var rows []eventRow
	if err := r.db.WithContext(ctx).Order("start_date ASC, start_time ASC").Find(&rows).Error; err != nil {
		return nil, classify(err, "list events")
	}
	return mapEvents(rows)
}

// GetByDateRange lists events overlapping [rangeStart, rangeEnd]. An event
// without an end date is open-ended here: it overlaps every range that ends
// on or after its start.
func (r *EventRepository) GetByDateRange(ctx context.Context, rangeStart, rangeEnd string) ([]model.CalendarEvent, error) {
	var rows []eventRow
	if err := r.db.WithContext(ctx).
		Where("start_date <= ? AND (end_date >= ? OR end_date IS NULL)", rangeEnd, rangeStart).
		Order("start_date ASC, start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, classify(err, fmt.Sprintf("list events %s..%s", rangeStart, rangeEnd))
	}
	return mapEvents(rows)
}

// DeleteExpired removes non-repeating events whose effective end is before
// date+clock. Here an absent end date/time falls back to the start values.
func (r *EventRepository) DeleteExpired(ctx context.Context, date, clock string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("repeat_frequency = ?", string(model.RepeatNone)).
		Where(`(COALESCE(end_date, start_date) < ?
			OR (COALESCE(end_date, start_date) = ?
				AND (COALESCE(end_time, start_time) IS NULL OR COALESCE(end_time, start_time) < ?)))`,
			date, date, clock).
		Delete(&eventRow{})
	if res.Error != nil {
		return 0, classify(res.Error, "delete expired events")
	}
	return res.RowsAffected, nil
}

func mapEvents(rows []eventRow) ([]model.CalendarEvent, error) {
	events := make([]model.CalendarEvent, 0, len(rows))
	for _, row := range rows {
		event, err := toEvent(row)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
