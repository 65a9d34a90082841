package repository

import (
	"fmt"

	"remindcal/internal/model"
)

// taskRow is the tasks table as stored. Optional columns are pointers so that
// absent values round-trip as NULL.
type taskRow struct {
	ID              string  `gorm:"column:id;primaryKey"`
	Title           string  `gorm:"column:title;not null"`
	Description     *string `gorm:"column:description"`
	StartDate       string  `gorm:"column:start_date;not null;index:idx_tasks_start,priority:1"`
	StartTime       *string `gorm:"column:start_time;index:idx_tasks_start,priority:2"`
	RepeatFrequency string  `gorm:"column:repeat_frequency;not null"`
	NotificationID  *string `gorm:"column:notification_id"`
	CreatedAt       string  `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt       string  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (taskRow) TableName() string { return "tasks" }

type eventRow struct {
	ID              string  `gorm:"column:id;primaryKey"`
	Title           string  `gorm:"column:title;not null"`
	Description     *string `gorm:"column:description"`
	StartDate       string  `gorm:"column:start_date;not null;index:idx_events_start,priority:1"`
	StartTime       *string `gorm:"column:start_time;index:idx_events_start,priority:2"`
	EndDate         *string `gorm:"column:end_date"`
	EndTime         *string `gorm:"column:end_time"`
	RepeatFrequency string  `gorm:"column:repeat_frequency;not null"`
	NotificationID  *string `gorm:"column:notification_id"`
	CreatedAt       string  `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt       string  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (eventRow) TableName() string { return "events" }

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func newTaskRow(t model.Task) taskRow {
	return taskRow{
		ID:              t.ID,
		Title:           t.Title,
		Description:     nullable(t.Description),
		StartDate:       t.StartDate,
		StartTime:       nullable(t.StartTime),
		RepeatFrequency: string(t.RepeatFrequency),
		NotificationID:  nullable(t.NotificationID),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func newEventRow(e model.CalendarEvent) eventRow {
	return eventRow{
		ID:              e.ID,
		Title:           e.Title,
		Description:     nullable(e.Description),
		StartDate:       e.StartDate,
		StartTime:       nullable(e.StartTime),
		EndDate:         nullable(e.EndDate),
		EndTime:         nullable(e.EndTime),
		RepeatFrequency: string(e.RepeatFrequency),
		NotificationID:  nullable(e.NotificationID),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// toTask validates a stored row at the boundary. A row missing any required
// column is reported as corruption rather than handed out half-filled.
func toTask(r taskRow) (model.Task, error) {
	repeat, err := checkRequired("tasks", r.ID, r.Title, r.StartDate, r.RepeatFrequency, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}
	return model.Task{
		ID:              r.ID,
		Title:           r.Title,
		Description:     deref(r.Description),
		StartDate:       r.StartDate,
		StartTime:       deref(r.StartTime),
		RepeatFrequency: repeat,
		NotificationID:  deref(r.NotificationID),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

func toEvent(r eventRow) (model.CalendarEvent, error) {
	repeat, err := checkRequired("events", r.ID, r.Title, r.StartDate, r.RepeatFrequency, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return model.CalendarEvent{}, err
	}
	return model.CalendarEvent{
		ID:              r.ID,
		Title:           r.Title,
		Description:     deref(r.Description),
		StartDate:       r.StartDate,
		StartTime:       deref(r.StartTime),
		EndDate:         deref(r.EndDate),
		EndTime:         deref(r.EndTime),
		RepeatFrequency: repeat,
		NotificationID:  deref(r.NotificationID),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

func checkRequired(table, id, title, startDate, repeat, createdAt, updatedAt string) (model.RepeatFrequency, error) {
	missing := ""
	switch {
	case id == "":
		missing = "id"
	case title == "":
		missing = "title"
	case startDate == "":
		missing = "start_date"
	case createdAt == "":
		missing = "created_at"
	case updatedAt == "":
		missing = "updated_at"
	}
	if missing != "" {
		return "", model.WrapError(model.ErrCodeStorageCorruption,
			fmt.Sprintf("%s row %q", table, id), fmt.Errorf("missing %s", missing))
	}
	freq := model.RepeatFrequency(repeat)
	if !freq.Valid() {
		return "", model.WrapError(model.ErrCodeStorageCorruption,
			fmt.Sprintf("%s row %q", table, id), fmt.Errorf("unknown repeat_frequency %q", repeat))
	}
	return freq, nil
}
