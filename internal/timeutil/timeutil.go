// Package timeutil holds the pure date/time helpers used to turn a selected
// date, time and all-day flag into a trigger instant. All values are local
// wall-clock times; nothing here reads the system clock.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"remindcal/internal/model"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
	// ISOLayout matches the UTC timestamps stored in created_at/updated_at.
	ISOLayout = "2006-01-02T15:04:05.000Z"
)

const (
	// ReminderAllDayHour is when an all-day reminder fires.
	ReminderAllDayHour = 9
	// RangeStartAllDayHour is the start of an all-day selection.
	RangeStartAllDayHour = 0
)

// ParseDate parses YYYY-MM-DD in loc (time.Local when nil).
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, model.WrapError(model.ErrCodeInvalid, fmt.Sprintf("malformed date %q", value), err)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseClock parses HH:MM. Seconds are not accepted.
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, model.Invalidf("malformed time %q, expected HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, model.Invalidf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, model.Invalidf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

func FormatClock(t time.Time) string {
	return t.Format(ClockLayout)
}

// ISOTimestamp renders t in UTC with millisecond precision.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// BuildTriggerInstant merges a calendar date with either defaultHour:00 (all
// day) or the HH:MM clock. The default hour is a caller policy; see
// ReminderAllDayHour and RangeStartAllDayHour.
func BuildTriggerInstant(date time.Time, clock string, allDay bool, defaultHour int) (time.Time, error) {
	y, m, d := date.Date()
	if allDay {
		return time.Date(y, m, d, defaultHour, 0, 0, 0, date.Location()), nil
	}
	if strings.TrimSpace(clock) == "" {
		return time.Time{}, model.Invalidf("time is required when all-day is off")
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(y, m, d, hour, minute, 0, 0, date.Location()), nil
}

// IsPast compares an all-day instant with the start of now's day and any
// other instant with now itself.
func IsPast(instant time.Time, allDay bool, now time.Time) bool {
	if allDay {
		return instant.Before(StartOfDay(now))
	}
	return instant.Before(now)
}

// EachDay lists every calendar date from start to end inclusive, at midnight.
// It returns nil when end is before start.
func EachDay(start, end time.Time) []time.Time {
	first := StartOfDay(start)
	last := StartOfDay(end)
	if last.Before(first) {
		return nil
	}
	var days []time.Time
	for cur := first; !cur.After(last); cur = cur.AddDate(0, 0, 1) {
		days = append(days, cur)
	}
	return days
}

// CalendarGridDays returns the Monday-first, week-aligned run of days that
// covers month: from the Monday on or before the 1st through the Sunday on or
// after the last day.
func CalendarGridDays(month time.Time) []time.Time {
	y, m, _ := month.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, month.Location())
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -daysSinceMonday(first.Weekday()))
	end := last.AddDate(0, 0, 6-daysSinceMonday(last.Weekday()))
	return EachDay(start, end)
}

func daysSinceMonday(w time.Weekday) int {
	return (int(w) + 6) % 7
}
