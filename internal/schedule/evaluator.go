package schedule

import (
	"time"
)

// Display priorities, lowest sorts first.
const (
	PriorityOpen       = 1
	PrioritySoon       = 2
	PriorityLater      = 3
	PriorityUnresolved = 4
)

// SoonThreshold is how close an opening must be to count as "opening soon".
const SoonThreshold = time.Hour

// lookaheadDays is the furthest day offset searched for the next opening.
// Offset 7 is the same weekday next week, so an event whose only
// occurrence today has already passed still resolves.
const lookaheadDays = 7

// Status is the derived open/closed state of a definition at an instant.
type Status struct {
	IsOpen bool `json:"is_open"`
	// NextTransition is the close time when open and the next open time when closed.
	// It is nil only when nothing resolves within the lookahead.
	NextTransition *time.Time    `json:"next_transition,omitempty"`
	Remaining      time.Duration `json:"remaining"`
	Priority       int           `json:"display_priority"`
}

// Resolved reports whether a next transition was found.
func (s Status) Resolved() bool {
	return s.NextTransition != nil
}

// Evaluator computes event statuses in a single configured location.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	location *time.Location
}

// NewEvaluator creates an evaluator using the local time zone.
func NewEvaluator() *Evaluator {
	return &Evaluator{location: time.Local}
}

// NewEvaluatorWithLocation creates an evaluator with a specific time zone.
func NewEvaluatorWithLocation(loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{location: loc}
}

// Location returns the evaluator's time zone.
func (e *Evaluator) Location() *time.Location {
	return e.location
}

// Evaluate returns whether def is open at now and when it next changes state.
// Malformed openings are skipped; a definition with nothing usable yields
// an unresolved status rather than an error.
func (e *Evaluator) Evaluate(def Definition, now time.Time) Status {
	local := now.In(e.location)
	today := Weekday(local)
	times, _ := def.Times()
	duration := def.Duration()

	// Open check: first matching window in opening order wins.
	if def.RunsOn(today) {
		for _, t := range times {
			openAt := t.On(local, 0)
			closeAt := openAt.Add(duration)
			if !local.Before(openAt) && local.Before(closeAt) {
				return Status{
					IsOpen:         true,
					NextTransition: &closeAt,
					Remaining:      closeAt.Sub(local),
					Priority:       PriorityOpen,
				}
			}
		}
	}

	next, ok := e.nextOpening(def, times, local, today)
	if !ok {
		return Status{Priority: PriorityUnresolved}
	}

	remaining := next.Sub(local)
	priority := PriorityLater
	if remaining < SoonThreshold {
		priority = PrioritySoon
	}

	return Status{
		NextTransition: &next,
		Remaining:      remaining,
		Priority:       priority,
	}
}

// NextOpening returns the next instant strictly after now at which def opens.
// Unlike Evaluate, it ignores whether def is currently open.
func (e *Evaluator) NextOpening(def Definition, now time.Time) (time.Time, bool) {
	local := now.In(e.location)
	times, _ := def.Times()
	return e.nextOpening(def, times, local, Weekday(local))
}

// nextOpening scans forward day by day and keeps the earliest candidate.
func (e *Evaluator) nextOpening(def Definition, times []TimeOfDay, local time.Time, today int) (time.Time, bool) {
	var next time.Time
	found := false

	for dayOffset := 0; dayOffset <= lookaheadDays; dayOffset++ {
		if !def.RunsOn((today + dayOffset) % 7) {
			continue
		}

		for _, t := range times {
			candidate := t.On(local, dayOffset)

			// Already passed today
			if dayOffset == 0 && !candidate.After(local) {
				continue
			}

			if !found || candidate.Before(next) {
				next = candidate
				found = true
			}
		}

		// Later offsets can only produce later candidates.
		if found {
			break
		}
	}

	return next, found
}

// EvaluateAll evaluates every definition at the same instant.
func (e *Evaluator) EvaluateAll(defs []Definition, now time.Time) []Status {
	statuses := make([]Status, len(defs))
	for i, def := range defs {
		statuses[i] = e.Evaluate(def, now)
	}
	return statuses
}

// Less orders statuses for display: open first, then by time to the next
// transition, then by priority. Unresolved statuses sort last.
func Less(a, b Status) bool {
	if a.IsOpen != b.IsOpen {
		return a.IsOpen
	}
	if a.Resolved() != b.Resolved() {
		return a.Resolved()
	}
	if a.Remaining != b.Remaining {
		return a.Remaining < b.Remaining
	}
	return a.Priority < b.Priority
}
