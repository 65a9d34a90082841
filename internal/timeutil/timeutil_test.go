package timeutil

import (
	"errors"
	"testing"
	"time"

	"remindcal/internal/model"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := ParseDate(value, time.UTC)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return d
}

func TestBuildTriggerInstant(t *testing.T) {
	date := time.Date(2024, 6, 1, 17, 45, 12, 0, time.UTC)

	tests := []struct {
		name        string
		clock       string
		allDay      bool
		defaultHour int
		want        time.Time
	}{
		{"all day reminder hour", "", true, ReminderAllDayHour, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
		{"all day range start", "", true, RangeStartAllDayHour, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"all day ignores clock", "13:30", true, ReminderAllDayHour, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
		{"timed", "13:30", false, ReminderAllDayHour, time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildTriggerInstant(date, tt.clock, tt.allDay, tt.defaultHour)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildTriggerInstantRequiresClock(t *testing.T) {
	for _, clock := range []string{"", "9:00", "12:00:30", "25:00", "aa:bb"} {
		_, err := BuildTriggerInstant(time.Now(), clock, false, ReminderAllDayHour)
		if !errors.Is(err, model.ErrInvalidArgument) {
			t.Fatalf("clock %q: expected invalid argument, got %v", clock, err)
		}
	}
}

func TestIsPast(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if IsPast(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), true, now) {
		t.Fatal("all-day today must not be past")
	}
	if !IsPast(time.Date(2024, 5, 31, 9, 0, 0, 0, time.UTC), true, now) {
		t.Fatal("all-day yesterday must be past")
	}
	if !IsPast(time.Date(2024, 6, 1, 11, 59, 0, 0, time.UTC), false, now) {
		t.Fatal("timed instant before now must be past")
	}
	if IsPast(time.Date(2024, 6, 1, 12, 1, 0, 0, time.UTC), false, now) {
		t.Fatal("timed instant after now must not be past")
	}
}

func TestCalendarGridDays(t *testing.T) {
	for year := 2023; year <= 2025; year++ {
		for month := time.January; month <= time.December; month++ {
			ref := time.Date(year, month, 15, 10, 0, 0, 0, time.UTC)
			days := CalendarGridDays(ref)

			if len(days)%7 != 0 {
				t.Fatalf("%s: length %d not a multiple of 7", ref.Format("2006-01"), len(days))
			}
			if days[0].Weekday() != time.Monday {
				t.Fatalf("%s: starts on %s", ref.Format("2006-01"), days[0].Weekday())
			}
			if days[len(days)-1].Weekday() != time.Sunday {
				t.Fatalf("%s: ends on %s", ref.Format("2006-01"), days[len(days)-1].Weekday())
			}
			for i := 1; i < len(days); i++ {
				if !days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
					t.Fatalf("%s: gap between %v and %v", ref.Format("2006-01"), days[i-1], days[i])
				}
			}
			seen := map[string]bool{}
			for _, d := range days {
				seen[FormatDate(d)] = true
			}
			last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
			for d := 1; d <= last; d++ {
				key := FormatDate(time.Date(year, month, d, 0, 0, 0, 0, time.UTC))
				if !seen[key] {
					t.Fatalf("%s: missing %s", ref.Format("2006-01"), key)
				}
			}
		}
	}
}

func TestCalendarGridDaysJune2024(t *testing.T) {
	days := CalendarGridDays(mustDate(t, "2024-06-01"))
	if got := FormatDate(days[0]); got != "2024-05-27" {
		t.Fatalf("first day = %s", got)
	}
	if got := FormatDate(days[len(days)-1]); got != "2024-06-30" {
		t.Fatalf("last day = %s", got)
	}
	if len(days) != 35 {
		t.Fatalf("len = %d", len(days))
	}
}

func TestEachDay(t *testing.T) {
	days := EachDay(mustDate(t, "2024-06-01"), mustDate(t, "2024-06-03"))
	want := []string{"2024-06-01", "2024-06-02", "2024-06-03"}
	if len(days) != len(want) {
		t.Fatalf("got %d days", len(days))
	}
	for i := range want {
		if FormatDate(days[i]) != want[i] {
			t.Fatalf("day %d = %s, want %s", i, FormatDate(days[i]), want[i])
		}
	}
	if EachDay(mustDate(t, "2024-06-03"), mustDate(t, "2024-06-01")) != nil {
		t.Fatal("reversed range must be empty")
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, err := ParseDate("2024-13-01", time.UTC); !errors.Is(err, model.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestISOTimestamp(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	got := ISOTimestamp(time.Date(2024, 6, 1, 12, 0, 0, 123456789, loc))
	if got != "2024-06-01T09:00:00.123Z" {
		t.Fatalf("got %s", got)
	}
}
