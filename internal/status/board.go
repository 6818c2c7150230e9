// Package status projects the event catalog into the live board shown to users.
package status

import (
	"fmt"
	"sort"
	"time"

	"github.com/aion-timer/backend/internal/schedule"
)

// Board labels.
const (
	LabelOpen   = "Open"
	LabelClosed = "Closed"
)

// EventSource lists the definitions shown on the board.
type EventSource interface {
	All() []schedule.Definition
	Get(id string) (schedule.Definition, bool)
}

// EventView is one row of the board at a given instant.
type EventView struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Image           string     `json:"image,omitempty"`
	Days            []int      `json:"days"`
	Openings        []string   `json:"openings"`
	DurationMinutes int        `json:"duration_minutes"`
	IsOpen          bool       `json:"is_open"`
	Label           string     `json:"label"`
	NextTransition  *time.Time `json:"next_transition,omitempty"`
	// NextTime is the HH:MM of NextTransition in the board's zone.
	NextTime string `json:"next_time,omitempty"`
	// NextOpening is the next start after the current one, set for open
	// events only; for closed events it equals NextTransition.
	NextOpening      *time.Time `json:"next_opening,omitempty"`
	SecondsRemaining int64  `json:"seconds_remaining"`
	Countdown        string `json:"countdown,omitempty"`
	Summary          string `json:"summary,omitempty"`
	DisplayPriority  int    `json:"display_priority"`

	status schedule.Status
}

// Board evaluates every event against a single evaluator.
type Board struct {
	evaluator *schedule.Evaluator
	events    EventSource
}

// NewBoard creates a board.
func NewBoard(evaluator *schedule.Evaluator, events EventSource) *Board {
	return &Board{evaluator: evaluator, events: events}
}

// Snapshot evaluates all events at now, open events first, then by time to
// the next transition. Every call recomputes from scratch.
func (b *Board) Snapshot(now time.Time) []EventView {
	defs := b.events.All()
	statuses := b.evaluator.EvaluateAll(defs, now)
	views := make([]EventView, len(defs))
	for i, def := range defs {
		views[i] = b.view(def, statuses[i], now)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return schedule.Less(views[i].status, views[j].status)
	})
	return views
}

// View evaluates a single event.
func (b *Board) View(id string, now time.Time) (EventView, bool) {
	def, ok := b.events.Get(id)
	if !ok {
		return EventView{}, false
	}
	return b.view(def, b.evaluator.Evaluate(def, now), now), true
}

func (b *Board) view(def schedule.Definition, st schedule.Status, now time.Time) EventView {
	v := EventView{
		ID:              def.ID,
		Name:            def.Name,
		Image:           def.Image,
		Days:            def.Days,
		Openings:        def.Openings,
		DurationMinutes: def.DurationMinutes,
		IsOpen:          st.IsOpen,
		Label:           LabelClosed,
		DisplayPriority: st.Priority,
		status:          st,
	}
	if st.IsOpen {
		v.Label = LabelOpen
	}

	if st.Resolved() {
		next := *st.NextTransition
		v.NextTransition = &next
		v.NextTime = next.Format("15:04")
		v.SecondsRemaining = int64(st.Remaining / time.Second)
		v.Countdown = FormatCountdown(st.Remaining)
		v.Summary = summary(st.IsOpen, st.Remaining)
	}
	if st.IsOpen {
		if opens, ok := b.evaluator.NextOpening(def, now); ok {
			v.NextOpening = &opens
		}
	} else if st.Resolved() {
		v.NextOpening = v.NextTransition
	}
	return v
}

// FormatCountdown renders d as H:MM:SS, or M:SS under an hour. Partial
// seconds are dropped.
func FormatCountdown(d time.Duration) string {
	h, m, s := split(d)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func summary(open bool, d time.Duration) string {
	verb := "Opens in"
	if open {
		verb = "Closes in"
	}
	h, m, s := split(d)
	if h > 0 {
		return fmt.Sprintf("%s %dh %dm", verb, h, m)
	}
	return fmt.Sprintf("%s %dm %ds", verb, m, s)
}

func split(d time.Duration) (h, m, s int64) {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	return total / 3600, (total % 3600) / 60, total % 60
}
