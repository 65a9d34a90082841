package model

import "encoding/json"

// ItemType discriminates CalendarItem.
type ItemType string

const (
	ItemTask  ItemType = "task"
	ItemEvent ItemType = "event"
)

// DefaultTimeOfDay orders items without a start time.
const DefaultTimeOfDay = "00:00"

// CalendarItem is either a Task or a CalendarEvent; exactly one pointer is set
// and Type says which.
type CalendarItem struct {
	Type  ItemType
	Task  *Task
	Event *CalendarEvent
}

func TaskItem(t Task) CalendarItem {
	return CalendarItem{Type: ItemTask, Task: &t}
}

func EventItem(e CalendarEvent) CalendarItem {
	return CalendarItem{Type: ItemEvent, Event: &e}
}

func (c CalendarItem) ID() string {
	if c.Type == ItemEvent {
		return c.Event.ID
	}
	return c.Task.ID
}

func (c CalendarItem) Title() string {
	if c.Type == ItemEvent {
		return c.Event.Title
	}
	return c.Task.Title
}

func (c CalendarItem) Description() string {
	if c.Type == ItemEvent {
		return c.Event.Description
	}
	return c.Task.Description
}

func (c CalendarItem) StartDate() string {
	if c.Type == ItemEvent {
		return c.Event.StartDate
	}
	return c.Task.StartDate
}

func (c CalendarItem) StartTime() string {
	if c.Type == ItemEvent {
		return c.Event.StartTime
	}
	return c.Task.StartTime
}

func (c CalendarItem) Repeat() RepeatFrequency {
	if c.Type == ItemEvent {
		return c.Event.RepeatFrequency
	}
	return c.Task.RepeatFrequency
}

// TimeOfDay is the sort key used when merging tasks and events.
func (c CalendarItem) TimeOfDay() string {
	if t := c.StartTime(); t != "" {
		return t
	}
	return DefaultTimeOfDay
}

func (c CalendarItem) NotificationIDs() []string {
	if c.Type == ItemEvent {
		return c.Event.NotificationIDs()
	}
	return c.Task.NotificationIDs()
}

// MarshalJSON flattens the wrapped item and adds its "type" tag.
func (c CalendarItem) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case ItemEvent:
		return json.Marshal(struct {
			Type ItemType `json:"type"`
			*CalendarEvent
		}{c.Type, c.Event})
	default:
		return json.Marshal(struct {
			Type ItemType `json:"type"`
			*Task
		}{ItemTask, c.Task})
	}
}
