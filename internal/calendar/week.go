// Package calendar expands recurring event definitions into concrete
// occurrences and iCalendar feeds.
package calendar

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/aion-timer/backend/internal/schedule"
)

var rruleWeekdays = [7]rrule.Weekday{
	schedule.Monday:    rrule.MO,
	schedule.Tuesday:   rrule.TU,
	schedule.Wednesday: rrule.WE,
	schedule.Thursday:  rrule.TH,
	schedule.Friday:    rrule.FR,
	schedule.Saturday:  rrule.SA,
	schedule.Sunday:    rrule.SU,
}

// Occurrence is one concrete opening of an event.
type Occurrence struct {
	EventID string    `json:"event_id"`
	Name    string    `json:"name"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Day groups the occurrences of one calendar day.
type Day struct {
	Weekday     int          `json:"weekday"`
	Name        string       `json:"name"`
	Date        string       `json:"date"`
	Occurrences []Occurrence `json:"occurrences"`
}

// WeekStart returns midnight of the Monday on or before t, in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()-schedule.Weekday(local), 0, 0, 0, 0, loc)
}

// Week lists every opening of defs during the Monday-to-Sunday week that
// contains ref. Malformed days and openings are skipped.
func Week(defs []schedule.Definition, ref time.Time, loc *time.Location) []Day {
	start := WeekStart(ref, loc)
	end := start.AddDate(0, 0, 7)

	days := make([]Day, 7)
	for i := range days {
		date := start.AddDate(0, 0, i)
		days[i] = Day{
			Weekday:     i,
			Name:        schedule.ToTimeWeekday(i).String(),
			Date:        date.Format("2006-01-02"),
			Occurrences: []Occurrence{},
		}
	}

	for _, def := range defs {
		for _, wr := range rules(def, start) {
			for _, at := range wr.rule.Between(start, end, true) {
				if !at.Before(end) {
					continue
				}
				at = at.In(loc)
				idx := schedule.Weekday(at)
				days[idx].Occurrences = append(days[idx].Occurrences, Occurrence{
					EventID: def.ID,
					Name:    def.Name,
					Start:   at,
					End:     at.Add(def.Duration()),
				})
			}
		}
	}

	for i := range days {
		occ := days[i].Occurrences
		sort.SliceStable(occ, func(a, b int) bool {
			if !occ[a].Start.Equal(occ[b].Start) {
				return occ[a].Start.Before(occ[b].Start)
			}
			return occ[a].Name < occ[b].Name
		})
	}
	return days
}

type weeklyRule struct {
	opening schedule.TimeOfDay
	rule    *rrule.RRule
}

// rules builds one weekly rule per valid opening. Openings need their own
// rule because BYHOUR and BYMINUTE combine as a cross product.
func rules(def schedule.Definition, dtstart time.Time) []weeklyRule {
	weekdays := byWeekday(def.Days)
	if len(weekdays) == 0 {
		return nil
	}

	times, _ := def.Times()
	out := make([]weeklyRule, 0, len(times))
	for _, t := range times {
		r, err := rrule.NewRRule(rrule.ROption{
			Freq:      rrule.WEEKLY,
			Dtstart:   dtstart,
			Byweekday: weekdays,
			Byhour:    []int{t.Hour},
			Byminute:  []int{t.Minute},
			Bysecond:  []int{0},
		})
		if err != nil {
			continue
		}
		out = append(out, weeklyRule{opening: t, rule: r})
	}
	return out
}

// byDayNames returns the RFC 5545 BYDAY codes for days.
func byDayNames(days []int) []string {
	wds := byWeekday(days)
	out := make([]string, len(wds))
	for i, wd := range wds {
		out[i] = wd.String()
	}
	return out
}

func byWeekday(days []int) []rrule.Weekday {
	seen := make(map[int]bool, len(days))
	var out []rrule.Weekday
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, rruleWeekdays[d])
	}
	return out
}
