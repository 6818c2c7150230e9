package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/aion-timer/backend/internal/api/middleware"
	"github.com/aion-timer/backend/internal/calendar"
	"github.com/aion-timer/backend/internal/schedule"
)

// EventsResponse is the board at an instant.
type EventsResponse struct {
	At     time.Time `json:"at"`
	Events any       `json:"events"`
}

// atParam reads the optional ?at= RFC 3339 override.
func atParam(r *http.Request, clock Clock) (time.Time, bool) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		return clock(), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ListEvents returns every event's status, open events first.
func ListEvents(board Board, clock Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at, ok := atParam(r, clock)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Parameter 'at' must be an RFC 3339 timestamp")
			return
		}
		writeJSON(w, http.StatusOK, EventsResponse{At: at, Events: board.Snapshot(at)})
	}
}

// GetEvent returns one event's status.
func GetEvent(board Board, clock Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at, ok := atParam(r, clock)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Parameter 'at' must be an RFC 3339 timestamp")
			return
		}

		view, found := board.View(mux.Vars(r)["id"], at)
		if !found {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Event not found")
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// WeekSchedule returns the weekly timetable containing ?at= (default now).
func WeekSchedule(defs []schedule.Definition, loc *time.Location, clock Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at, ok := atParam(r, clock)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Parameter 'at' must be an RFC 3339 timestamp")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"week_start": calendar.WeekStart(at, loc),
			"days":       calendar.Week(defs, at, loc),
		})
	}
}

// CalendarFeed serves the events as an iCalendar subscription.
func CalendarFeed(defs []schedule.Definition, loc *time.Location, clock Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="aion-events.ics"`)
		w.Write([]byte(calendar.Export(defs, clock(), loc)))
	}
}
