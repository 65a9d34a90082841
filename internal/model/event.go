package model

// CalendarEvent may span several days. An absent EndDate means the event is
// logically single-day for cleanup purposes.
type CalendarEvent struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	StartDate       string          `json:"startDate"`
	StartTime       string          `json:"startTime,omitempty"`
	EndDate         string          `json:"endDate,omitempty"`
	EndTime         string          `json:"endTime,omitempty"`
	RepeatFrequency RepeatFrequency `json:"repeatFrequency"`
	NotificationID  string          `json:"notificationId,omitempty"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

func (e *CalendarEvent) AllDay() bool {
	return e != nil && e.StartTime == ""
}

// EffectiveEndDate is EndDate, falling back to StartDate.
func (e *CalendarEvent) EffectiveEndDate() string {
	if e.EndDate != "" {
		return e.EndDate
	}
	return e.StartDate
}

// EffectiveEndTime is EndTime, falling back to StartTime (which may be empty).
func (e *CalendarEvent) EffectiveEndTime() string {
	if e.EndTime != "" {
		return e.EndTime
	}
	return e.StartTime
}

func (e *CalendarEvent) NotificationIDs() []string {
	if e == nil {
		return nil
	}
	return SplitNotificationIDs(e.NotificationID)
}
