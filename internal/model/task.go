package model

import "strings"

// Task is a single-day obligation.
type Task struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	StartDate       string          `json:"startDate"`           // YYYY-MM-DD
	StartTime       string          `json:"startTime,omitempty"` // HH:MM, empty for all-day
	RepeatFrequency RepeatFrequency `json:"repeatFrequency"`
	NotificationID  string          `json:"notificationId,omitempty"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

func (t *Task) AllDay() bool {
	return t != nil && t.StartTime == ""
}

// NotificationIDs splits the stored trigger id list.
func (t *Task) NotificationIDs() []string {
	if t == nil {
		return nil
	}
	return SplitNotificationIDs(t.NotificationID)
}

// SplitNotificationIDs decodes the comma-joined notification_id column.
func SplitNotificationIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// JoinNotificationIDs is the inverse of SplitNotificationIDs.
func JoinNotificationIDs(ids []string) string {
	return strings.Join(ids, ",")
}
