package notify

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"remindcal/internal/model"
)

// triggerSchedule implements cron.Schedule. One-shot triggers yield their
// instant once and the zero time afterwards, which cron treats as never.
type triggerSchedule struct {
	at   time.Time
	rule *rrule.RRule
}

func newTriggerSchedule(at time.Time, repeat model.RepeatFrequency) (*triggerSchedule, error) {
	s := &triggerSchedule{at: at}

	var freq rrule.Frequency
	switch repeat {
	case model.RepeatDaily:
		freq = rrule.DAILY
	case model.RepeatWeekly:
		freq = rrule.WEEKLY
	case model.RepeatNone, "":
		return s, nil
	default:
		return nil, model.Invalidf("unsupported repeat %q", repeat)
	}

	rule, err := rrule.NewRRule(rrule.ROption{Freq: freq, Dtstart: at})
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}
	s.rule = rule
	return s, nil
}

func (s *triggerSchedule) Next(t time.Time) time.Time {
	if s.rule == nil {
		if s.at.After(t) {
			return s.at
		}
		return time.Time{}
	}
	return s.rule.After(t, false)
}

// RRule returns the RFC 5545 rule for a repeat frequency, or "" for none.
func RRule(repeat model.RepeatFrequency) string {
	opt := rrule.ROption{}
	switch repeat {
	case model.RepeatDaily:
		opt.Freq = rrule.DAILY
	case model.RepeatWeekly:
		opt.Freq = rrule.WEEKLY
	default:
		return ""
	}
	return opt.RRuleString()
}
