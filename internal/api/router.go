// Package api provides HTTP routing for the REST API.
package api

import (
	"log/slog"
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/aion-timer/backend/internal/api/handlers"
	"github.com/aion-timer/backend/internal/api/middleware"
	"github.com/aion-timer/backend/internal/config"
	"github.com/aion-timer/backend/internal/observability"
	"github.com/aion-timer/backend/internal/schedule"
	"github.com/aion-timer/backend/internal/websocket"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Config      *config.Config
	Logger      *slog.Logger
	Location    *time.Location
	Clock       handlers.Clock
	DB          handlers.Pinger
	Definitions []schedule.Definition
	Board       handlers.Board
	Subscribers handlers.Subscribers
	Notifier    handlers.SubscriberNotifier
	Scans       interface {
		handlers.ScanTrigger
		handlers.NextRunner
	}
	Tester  handlers.TestSender
	Hub     *websocket.Hub
	Metrics *observability.Metrics
}

// NewRouter creates the HTTP handler with all API routes, wrapped in CORS and
// proxy header handling.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}

	r := mux.NewRouter()

	r.Use(middleware.Logging(logger))
	r.Use(middleware.ErrorRecovery(logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", handlers.HealthCheck(d.DB, len(d.Definitions), d.Scans)).Methods(http.MethodGet)

	// Event status
	api.HandleFunc("/events", handlers.ListEvents(d.Board, clock)).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}", handlers.GetEvent(d.Board, clock)).Methods(http.MethodGet)
	api.HandleFunc("/schedule", handlers.WeekSchedule(d.Definitions, d.Location, clock)).Methods(http.MethodGet)
	api.HandleFunc("/calendar.ics", handlers.CalendarFeed(d.Definitions, d.Location, clock)).Methods(http.MethodGet)

	// Subscriptions
	api.HandleFunc("/subscribers", handlers.ListSubscribers(d.Subscribers, logger)).Methods(http.MethodGet)
	api.HandleFunc("/subscribers", handlers.Subscribe(d.Subscribers, d.Notifier, logger)).Methods(http.MethodPost)
	api.HandleFunc("/subscribers/{id}", handlers.UpdateSubscriber(d.Subscribers, d.Notifier, logger)).Methods(http.MethodPatch)
	api.HandleFunc("/subscribers/{id}", handlers.DeleteSubscriber(d.Subscribers, d.Notifier, logger)).Methods(http.MethodDelete)

	// Reminder trigger, for external cron callers
	api.HandleFunc("/check-events", handlers.CheckEvents(d.Scans)).Methods(http.MethodGet, http.MethodPost)

	// Delivery diagnostics
	api.HandleFunc("/debug/send-test", handlers.SendTest(d.Tester, logger)).Methods(http.MethodPost)
	api.HandleFunc("/debug/env", handlers.DebugEnv(d.Config.Notify)).Methods(http.MethodGet)

	if d.Hub != nil {
		api.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub, d.Config.CORSOrigins, logger)).Methods(http.MethodGet)
	}

	if d.Config.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.Config.StaticDir)))
	}

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(d.Config.CORSOrigins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	return gorillahandlers.ProxyHeaders(cors(r))
}
