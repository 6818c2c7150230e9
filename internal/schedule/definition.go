// Package schedule evaluates weekly-recurring event definitions.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday indices use a Monday-first convention: 0 = Monday, 6 = Sunday.
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DefaultDurationMinutes applies to single-time definitions that omit a duration.
const DefaultDurationMinutes = 60

// Definition describes an event that opens at fixed times on fixed weekdays.
type Definition struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Days            []int    `json:"days" yaml:"days"`         // 0 = Monday, 6 = Sunday
	Openings        []string `json:"openings" yaml:"openings"` // Format: "15:04"
	DurationMinutes int      `json:"duration_minutes" yaml:"duration_minutes"`
	Image           string   `json:"image,omitempty" yaml:"image,omitempty"`
}

// RunsOn reports whether the definition recurs on the given weekday index.
func (d Definition) RunsOn(weekday int) bool {
	for _, day := range d.Days {
		if day == weekday {
			return true
		}
	}
	return false
}

// Duration returns how long each opening stays open.
func (d Definition) Duration() time.Duration {
	if d.DurationMinutes < 0 {
		return 0
	}
	return time.Duration(d.DurationMinutes) * time.Minute
}

// Times parses the openings, skipping entries that are not valid "HH:MM" values.
// Invalid entries are returned separately so callers can report them.
func (d Definition) Times() (valid []TimeOfDay, invalid []string) {
	for _, raw := range d.Openings {
		t, err := ParseTimeOfDay(raw)
		if err != nil {
			invalid = append(invalid, raw)
			continue
		}
		valid = append(valid, t)
	}
	return valid, invalid
}

// Problems lists configuration errors in the definition.
// A definition with problems is still evaluated; bad entries are skipped.
func (d Definition) Problems() []error {
	var problems []error
	if len(d.Days) == 0 {
		problems = append(problems, fmt.Errorf("event %q has no recurrence days", d.ID))
	}
	for _, day := range d.Days {
		if day < Monday || day > Sunday {
			problems = append(problems, fmt.Errorf("event %q has weekday %d outside 0-6", d.ID, day))
		}
	}
	if len(d.Openings) == 0 {
		problems = append(problems, fmt.Errorf("event %q has no opening times", d.ID))
	}
	_, invalid := d.Times()
	for _, raw := range invalid {
		problems = append(problems, fmt.Errorf("event %q has invalid opening time %q", d.ID, raw))
	}
	if d.DurationMinutes < 0 {
		problems = append(problems, fmt.Errorf("event %q has negative duration %d", d.ID, d.DurationMinutes))
	}
	return problems
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a 24-hour "HH:MM" string.
// Hours must be in [0,23] and minutes in [0,59].
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q: %w", s, err)
	}

	if hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q: hour out of range", s)
	}
	if minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q: minute out of range", s)
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// String formats the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant at this time of day, dayOffset days after ref's date,
// in ref's location.
func (t TimeOfDay) On(ref time.Time, dayOffset int) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day()+dayOffset, t.Hour, t.Minute, 0, 0, ref.Location())
}

// Weekday converts a time's weekday to the Monday-first index.
func Weekday(t time.Time) int {
	return FromTimeWeekday(t.Weekday())
}

// FromTimeWeekday converts a time.Weekday to the Monday-first index.
func FromTimeWeekday(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// ToTimeWeekday converts a Monday-first index back to a time.Weekday.
func ToTimeWeekday(day int) time.Weekday {
	return time.Weekday((day + 1) % 7)
}
