package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/aion-timer/backend/internal/schedule"
)

// ProductID identifies the feed producer.
const ProductID = "-//Aion Timer//Event Schedule//EN"

// Export renders defs as an iCalendar feed with one weekly recurring VEVENT
// per (event, opening). Each series starts at its first opening in the week
// containing now, so the feed is stable for a whole week.
func Export(defs []schedule.Definition, now time.Time, loc *time.Location) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetName("Aion Classic Events")

	weekStart := WeekStart(now, loc)

	for _, def := range defs {
		byDay := strings.Join(byDayNames(def.Days), ",")
		if byDay == "" {
			continue
		}

		for _, wr := range rules(def, weekStart) {
			first := wr.rule.After(weekStart, true)
			if first.IsZero() {
				continue
			}

			uid := fmt.Sprintf("%s-%02d%02d@aion-timer", def.ID, wr.opening.Hour, wr.opening.Minute)
			event := cal.AddEvent(uid)
			event.SetSummary(def.Name)
			event.SetDtStampTime(now)
			event.SetStartAt(first)
			event.SetEndAt(first.Add(def.Duration()))
			event.AddRrule("FREQ=WEEKLY;BYDAY=" + byDay)
		}
	}

	return cal.Serialize()
}
