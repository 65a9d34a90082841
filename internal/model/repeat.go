package model

import "strings"

// RepeatFrequency is how often a reminder recurs. There is no end condition:
// a repeating item reminds forever and is never swept.
type RepeatFrequency string

const (
	RepeatNone   RepeatFrequency = "none"
	RepeatDaily  RepeatFrequency = "daily"
	RepeatWeekly RepeatFrequency = "weekly"
)

func (r RepeatFrequency) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly:
		return true
	}
	return false
}

// Repeats reports whether r is daily or weekly. "" counts as none.
func (r RepeatFrequency) Repeats() bool {
	return r == RepeatDaily || r == RepeatWeekly
}

// Label is the human wording used in lists and confirmations.
func (r RepeatFrequency) Label() string {
	switch r {
	case RepeatDaily:
		return "Every day"
	case RepeatWeekly:
		return "Every week"
	default:
		return "Does not repeat"
	}
}

// ParseRepeatFrequency accepts the stored values plus "" (treated as none).
func ParseRepeatFrequency(raw string) (RepeatFrequency, error) {
	value := RepeatFrequency(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return RepeatNone, nil
	}
	if !value.Valid() {
		return "", Invalidf("unknown repeat frequency %q", raw)
	}
	return value, nil
}
