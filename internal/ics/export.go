// Package ics renders stored items as an iCalendar feed.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"remindcal/internal/model"
	"remindcal/internal/notify"
	"remindcal/internal/timeutil"
)

const productID = "-//remindcal//remindcal//EN"

// Export builds one VEVENT per task and event. All-day items use DATE
// values with an exclusive end; repeating items carry an RRULE.
func Export(tasks []model.Task, events []model.CalendarEvent, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.Local
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, t := range tasks {
		start, err := timeutil.ParseDate(t.StartDate, loc)
		if err != nil {
			return nil, err
		}
		ev := cal.AddEvent(t.ID)
		describe(ev, t.Title, t.Description, t.CreatedAt, t.UpdatedAt)
		ev.AddProperty(ical.ComponentPropertyCategories, "TASK")

		if t.AllDay() {
			ev.SetAllDayStartAt(start)
			ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		} else {
			at, err := timeutil.BuildTriggerInstant(start, t.StartTime, false, timeutil.RangeStartAllDayHour)
			if err != nil {
				return nil, err
			}
			ev.SetStartAt(at)
			ev.SetEndAt(at)
		}
		repeat(ev, t.RepeatFrequency)
	}

	for _, e := range events {
		start, err := timeutil.ParseDate(e.StartDate, loc)
		if err != nil {
			return nil, err
		}
		end, err := timeutil.ParseDate(e.EffectiveEndDate(), loc)
		if err != nil {
			return nil, err
		}
		ev := cal.AddEvent(e.ID)
		describe(ev, e.Title, e.Description, e.CreatedAt, e.UpdatedAt)
		ev.AddProperty(ical.ComponentPropertyCategories, "EVENT")

		if e.AllDay() {
			ev.SetAllDayStartAt(start)
			ev.SetAllDayEndAt(end.AddDate(0, 0, 1))
		} else {
			startAt, err := timeutil.BuildTriggerInstant(start, e.StartTime, false, timeutil.RangeStartAllDayHour)
			if err != nil {
				return nil, err
			}
			endAt, err := timeutil.BuildTriggerInstant(end, e.EffectiveEndTime(), false, timeutil.RangeStartAllDayHour)
			if err != nil {
				return nil, err
			}
			if endAt.Before(startAt) {
				endAt = startAt
			}
			ev.SetStartAt(startAt)
			ev.SetEndAt(endAt)
		}
		repeat(ev, e.RepeatFrequency)
	}

	return []byte(cal.Serialize()), nil
}

func describe(ev *ical.VEvent, title, description, createdAt, updatedAt string) {
	ev.SetSummary(title)
	if description != "" {
		ev.SetDescription(description)
	}
	if created, err := time.Parse(timeutil.ISOLayout, createdAt); err == nil {
		ev.SetCreatedTime(created)
	}
	if updated, err := time.Parse(timeutil.ISOLayout, updatedAt); err == nil {
		ev.SetModifiedAt(updated)
		ev.SetDtStampTime(updated)
	}
}

func repeat(ev *ical.VEvent, freq model.RepeatFrequency) {
	if rule := notify.RRule(freq); rule != "" {
		ev.AddProperty(ical.ComponentPropertyRrule, rule)
	}
}
