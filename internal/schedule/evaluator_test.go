package schedule

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("TEST", -3*60*60)

// 2024-01-01 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, testLoc)
}

func newTestEvaluator() *Evaluator {
	return NewEvaluatorWithLocation(testLoc)
}

func siege() Definition {
	return Definition{ID: "5", Name: "Gelkmaros / Inggison siege", Days: []int{Saturday}, Openings: []string{"17:00"}, DurationMinutes: 60}
}

func dredgion() Definition {
	return Definition{
		ID:              "1",
		Name:            "Dredgion",
		Days:            []int{0, 1, 2, 3, 4, 5, 6},
		Openings:        []string{"07:00", "12:00", "18:00"},
		DurationMinutes: 120,
	}
}

func TestEvaluate_SiegeBeforeAndDuringOpening(t *testing.T) {
	e := newTestEvaluator()

	before := e.Evaluate(siege(), at(6, 16, 30))
	assert.False(t, before.IsOpen)
	require.NotNil(t, before.NextTransition)
	assert.True(t, before.NextTransition.Equal(at(6, 17, 0)))
	assert.Equal(t, 30*time.Minute, before.Remaining)
	assert.Equal(t, PrioritySoon, before.Priority)

	during := e.Evaluate(siege(), at(6, 17, 30))
	assert.True(t, during.IsOpen)
	require.NotNil(t, during.NextTransition)
	assert.True(t, during.NextTransition.Equal(at(6, 18, 0)))
	assert.Equal(t, PriorityOpen, during.Priority)
}

func TestEvaluate_OpenAtExactOpeningInstant(t *testing.T) {
	e := newTestEvaluator()

	for day := Monday; day <= Sunday; day++ {
		def := Definition{ID: "x", Days: []int{day}, Openings: []string{"09:15"}, DurationMinutes: 45}
		opening := at(1+day, 9, 15)

		status := e.Evaluate(def, opening)
		assert.True(t, status.IsOpen, "weekday %d", day)
		require.NotNil(t, status.NextTransition)
		assert.True(t, status.NextTransition.Equal(opening.Add(45*time.Minute)), "weekday %d", day)
	}
}

func TestEvaluate_ClosesAtEndOfWindow(t *testing.T) {
	e := newTestEvaluator()

	status := e.Evaluate(siege(), at(6, 18, 0))
	assert.False(t, status.IsOpen)
	require.NotNil(t, status.NextTransition)
	assert.True(t, status.NextTransition.Equal(at(13, 17, 0)), "next week's Saturday")
	assert.Equal(t, PriorityLater, status.Priority)
}

func TestEvaluate_WeekWrapSundayFromMonday(t *testing.T) {
	e := newTestEvaluator()
	def := Definition{ID: "sun", Days: []int{Sunday}, Openings: []string{"20:00"}, DurationMinutes: 60}

	for _, now := range []time.Time{at(1, 0, 0), at(1, 12, 34), at(1, 23, 59)} {
		status := e.Evaluate(def, now)
		assert.False(t, status.IsOpen)
		require.NotNil(t, status.NextTransition)
		assert.True(t, status.NextTransition.Equal(at(7, 20, 0)), "from %s", now)
		assert.Equal(t, 6, int(status.NextTransition.Sub(at(1, 20, 0)).Hours()/24))
	}
}

func TestEvaluate_SingleDayAfterTodaysWindowResolvesToNextWeek(t *testing.T) {
	e := newTestEvaluator()

	// Saturday 6 January, after the 17:00-18:00 siege has closed.
	st := e.Evaluate(siege(), at(6, 18, 30))
	assert.False(t, st.IsOpen)
	require.True(t, st.Resolved())
	assert.True(t, st.NextTransition.Equal(at(13, 17, 0)))
	assert.Equal(t, 7*24*time.Hour-90*time.Minute, st.Remaining)

	// Exactly one week ahead when evaluated at the closing-day opening minute.
	next, ok := e.NextOpening(siege(), at(6, 17, 0))
	require.True(t, ok)
	assert.Equal(t, 7*24*time.Hour, next.Sub(at(6, 17, 0)))
}

func TestEvaluate_MultipleOpenings(t *testing.T) {
	e := newTestEvaluator()

	beforeNoon := e.Evaluate(dredgion(), at(3, 11, 59))
	assert.False(t, beforeNoon.IsOpen)
	require.NotNil(t, beforeNoon.NextTransition)
	assert.True(t, beforeNoon.NextTransition.Equal(at(3, 12, 0)))
	assert.Equal(t, time.Minute, beforeNoon.Remaining)

	afterNoon := e.Evaluate(dredgion(), at(3, 12, 30))
	assert.True(t, afterNoon.IsOpen)
	require.NotNil(t, afterNoon.NextTransition)
	assert.True(t, afterNoon.NextTransition.Equal(at(3, 14, 0)))

	lateNight := e.Evaluate(dredgion(), at(3, 22, 0))
	assert.False(t, lateNight.IsOpen)
	require.NotNil(t, lateNight.NextTransition)
	assert.True(t, lateNight.NextTransition.Equal(at(4, 7, 0)))
}

func TestEvaluate_OverlappingOpeningsFirstMatchWins(t *testing.T) {
	e := newTestEvaluator()
	def := Definition{ID: "o", Days: []int{Monday}, Openings: []string{"10:00", "10:30"}, DurationMinutes: 120}

	status := e.Evaluate(def, at(1, 10, 45))
	assert.True(t, status.IsOpen)
	assert.True(t, status.NextTransition.Equal(at(1, 12, 0)))
}

func TestEvaluate_SkipsMalformedOpenings(t *testing.T) {
	e := newTestEvaluator()
	def := Definition{ID: "m", Days: []int{Monday}, Openings: []string{"25:00", "ab:cd", "14:00", "7"}, DurationMinutes: 60}

	status := e.Evaluate(def, at(1, 13, 0))
	assert.False(t, status.IsOpen)
	require.NotNil(t, status.NextTransition)
	assert.True(t, status.NextTransition.Equal(at(1, 14, 0)))
}

func TestEvaluate_UnresolvedDefinitions(t *testing.T) {
	e := newTestEvaluator()

	tests := []struct {
		name string
		def  Definition
	}{
		{"no days", Definition{ID: "a", Openings: []string{"10:00"}, DurationMinutes: 60}},
		{"days out of range", Definition{ID: "b", Days: []int{7, -1}, Openings: []string{"10:00"}}},
		{"no openings", Definition{ID: "c", Days: []int{Monday}}},
		{"only bad openings", Definition{ID: "d", Days: []int{Monday}, Openings: []string{"24:00", "12:60"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := e.Evaluate(tt.def, at(1, 9, 0))
			assert.False(t, status.IsOpen)
			assert.Nil(t, status.NextTransition)
			assert.Equal(t, PriorityUnresolved, status.Priority)
		})
	}
}

func TestEvaluate_ZeroDurationNeverOpen(t *testing.T) {
	e := newTestEvaluator()
	def := Definition{ID: "z", Days: []int{Monday}, Openings: []string{"10:00"}}

	status := e.Evaluate(def, at(1, 10, 0))
	assert.False(t, status.IsOpen)
	require.NotNil(t, status.NextTransition)
	assert.True(t, status.NextTransition.Equal(at(8, 10, 0)))
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	e := newTestEvaluator()
	now := at(4, 13, 27)

	first := e.Evaluate(dredgion(), now)
	second := e.Evaluate(dredgion(), now)
	assert.Equal(t, first.IsOpen, second.IsOpen)
	assert.Equal(t, first.Priority, second.Priority)
	assert.Equal(t, first.Remaining, second.Remaining)
	assert.True(t, first.NextTransition.Equal(*second.NextTransition))
}

func TestEvaluate_NeverOpenAndAboutToOpenAtOnce(t *testing.T) {
	e := newTestEvaluator()
	def := dredgion()

	for minute := 0; minute < 7*24*60; minute += 7 {
		now := at(1, 0, 0).Add(time.Duration(minute) * time.Minute)
		status := e.Evaluate(def, now)
		require.NotNil(t, status.NextTransition)
		require.True(t, status.NextTransition.After(now), "transition must be in the future at %s", now)

		if status.IsOpen {
			assert.Equal(t, PriorityOpen, status.Priority)
		} else {
			assert.NotEqual(t, PriorityOpen, status.Priority)
		}
	}
}

func TestEvaluate_UsesEvaluatorLocation(t *testing.T) {
	e := newTestEvaluator()

	// 20:00 UTC on Saturday is 17:00 in the evaluator's zone.
	status := e.Evaluate(siege(), time.Date(2024, time.January, 6, 20, 10, 0, 0, time.UTC))
	assert.True(t, status.IsOpen)
	assert.True(t, status.NextTransition.Equal(at(6, 18, 0)))
}

func TestNextOpening_IgnoresCurrentWindow(t *testing.T) {
	e := newTestEvaluator()

	next, ok := e.NextOpening(dredgion(), at(2, 12, 30))
	require.True(t, ok)
	assert.True(t, next.Equal(at(2, 18, 0)))
}

func TestLess_Ordering(t *testing.T) {
	e := newTestEvaluator()
	now := at(6, 16, 45)

	defs := []Definition{
		{ID: "unresolved", Days: nil, Openings: []string{"10:00"}},
		{ID: "later", Days: []int{Sunday}, Openings: []string{"13:00"}, DurationMinutes: 60},
		siege(),
		{ID: "open", Days: []int{Saturday}, Openings: []string{"16:00"}, DurationMinutes: 120},
	}
	statuses := e.EvaluateAll(defs, now)

	order := []int{0, 1, 2, 3}
	sort.SliceStable(order, func(i, j int) bool { return Less(statuses[order[i]], statuses[order[j]]) })

	var ids []string
	for _, idx := range order {
		ids = append(ids, defs[idx].ID)
	}
	assert.Equal(t, []string{"open", "5", "later", "unresolved"}, ids)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", TimeOfDay{0, 0}, false},
		{"07:05", TimeOfDay{7, 5}, false},
		{"23:59", TimeOfDay{23, 59}, false},
		{" 9:30 ", TimeOfDay{9, 30}, false},
		{"24:00", TimeOfDay{}, true},
		{"12:60", TimeOfDay{}, true},
		{"-1:00", TimeOfDay{}, true},
		{"1200", TimeOfDay{}, true},
		{"12:00:00", TimeOfDay{}, true},
		{"", TimeOfDay{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWeekdayConversions(t *testing.T) {
	assert.Equal(t, Monday, Weekday(at(1, 12, 0)))
	assert.Equal(t, Saturday, Weekday(at(6, 12, 0)))
	assert.Equal(t, Sunday, Weekday(at(7, 12, 0)))

	for day := Monday; day <= Sunday; day++ {
		assert.Equal(t, day, FromTimeWeekday(ToTimeWeekday(day)))
	}
	assert.Equal(t, time.Sunday, ToTimeWeekday(Sunday))
}

func TestDefinitionProblems(t *testing.T) {
	assert.Empty(t, dredgion().Problems())

	def := Definition{ID: "bad", Days: []int{9}, Openings: []string{"99:00"}, DurationMinutes: -5}
	assert.Len(t, def.Problems(), 3)
}
