package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aion-timer/backend/internal/schedule"
)

var testLoc = time.FixedZone("TEST", -3*60*60)

var defs = []schedule.Definition{
	{ID: "siege", Name: "Siege", Days: []int{schedule.Saturday}, Openings: []string{"17:00"}, DurationMinutes: 60},
	{
		ID: "dredgion", Name: "Dredgion", Days: []int{schedule.Monday, schedule.Saturday},
		Openings: []string{"12:00", "18:30"}, DurationMinutes: 120,
	},
	{ID: "midnight", Name: "Midnight", Days: []int{schedule.Monday}, Openings: []string{"00:00"}},
	{ID: "broken", Name: "Broken", Days: []int{8}, Openings: []string{"nope"}},
}

func TestWeekStart(t *testing.T) {
	wed := time.Date(2024, 1, 3, 10, 0, 0, 0, testLoc)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, testLoc), WeekStart(wed, testLoc))

	sun := time.Date(2024, 1, 7, 23, 59, 0, 0, testLoc)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, testLoc), WeekStart(sun, testLoc))
}

func TestWeek(t *testing.T) {
	days := Week(defs, time.Date(2024, 1, 3, 10, 0, 0, 0, testLoc), testLoc)
	require.Len(t, days, 7)

	monday := days[schedule.Monday]
	assert.Equal(t, "2024-01-01", monday.Date)
	assert.Equal(t, "Monday", monday.Name)
	assert.Equal(t, "Sunday", days[schedule.Sunday].Name)
	require.Len(t, monday.Occurrences, 3)
	assert.Equal(t, "midnight", monday.Occurrences[0].EventID)
	assert.Equal(t, "dredgion", monday.Occurrences[1].EventID)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, testLoc), monday.Occurrences[1].Start)
	assert.Equal(t, time.Date(2024, 1, 1, 14, 0, 0, 0, testLoc), monday.Occurrences[1].End)

	saturday := days[schedule.Saturday]
	assert.Equal(t, "2024-01-06", saturday.Date)
	var names []string
	for _, o := range saturday.Occurrences {
		names = append(names, o.Name+"@"+o.Start.Format("15:04"))
	}
	// 12:00 and 18:30 only; no 12:30 or 18:00 cross product.
	assert.Equal(t, []string{"Dredgion@12:00", "Siege@17:00", "Dredgion@18:30"}, names)

	assert.Empty(t, days[schedule.Tuesday].Occurrences)
	assert.NotNil(t, days[schedule.Tuesday].Occurrences)
}

func TestExport(t *testing.T) {
	now := time.Date(2024, 1, 3, 10, 0, 0, 0, testLoc)
	out := Export(defs, now, testLoc)

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "PRODID:"+ProductID)
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "UID:siege-1700@aion-timer")
	assert.Contains(t, out, "SUMMARY:Siege")
	assert.Contains(t, out, "DTSTART:20240106T200000Z")
	assert.Contains(t, out, "DTEND:20240106T210000Z")
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;BYDAY=SA")
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;BYDAY=MO,SA")
	assert.NotContains(t, out, "Broken")

	// siege + two dredgion openings + midnight
	assert.Equal(t, 4, strings.Count(out, "BEGIN:VEVENT"))
}
