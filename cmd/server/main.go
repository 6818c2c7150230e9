// Package main is the entry point for the Aion Classic Timer server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aion-timer/backend/internal/api"
	"github.com/aion-timer/backend/internal/catalog"
	"github.com/aion-timer/backend/internal/config"
	"github.com/aion-timer/backend/internal/notify"
	"github.com/aion-timer/backend/internal/observability"
	"github.com/aion-timer/backend/internal/reminder"
	"github.com/aion-timer/backend/internal/schedule"
	"github.com/aion-timer/backend/internal/status"
	"github.com/aion-timer/backend/internal/storage"
	"github.com/aion-timer/backend/internal/subscriber"
	"github.com/aion-timer/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Health check mode for Docker HEALTHCHECK
	if cfg.HealthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting Aion Classic Timer", "version", version, "env", cfg.Environment)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	events, err := catalog.Load(cfg.EventsFile, logger)
	if err != nil {
		return fmt.Errorf("loading event catalog: %w", err)
	}
	logger.Info("event catalog loaded", "events", events.Len(), "timezone", loc.String())
	logger.Debug("event ids", "ids", events.IDs())

	db, err := storage.NewDB(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(context.Background(), db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database migrations complete", "driver", db.Driver())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	broadcaster := websocket.NewEventBroadcaster(hub, logger)

	metrics := observability.NewMetrics(prometheus.NewRegistry())

	evaluator := schedule.NewEvaluatorWithLocation(loc)
	subscriberRepo := storage.NewSubscriberRepository(db)
	subscriptions := subscriber.NewService(subscriberRepo, events, logger)
	sender := notify.New(cfg.Notify, logger)
	if cfg.IsProduction() && cfg.Notify.Provider == notify.ProviderLog {
		logger.Warn("log provider in production, reminders are simulated and never delivered")
	}

	scanner := reminder.NewScanner(evaluator, events, subscriberRepo, sender, reminder.Options{
		Lead:        time.Duration(cfg.Reminder.LeadMinutes) * time.Minute,
		Tolerance:   time.Duration(cfg.Reminder.ToleranceMinutes) * time.Minute,
		Concurrency: cfg.Reminder.Concurrency,
	}, logger)
	scans := reminder.NewScheduler(scanner, cfg.Reminder.Cron, broadcaster, metrics, logger)

	board := status.NewBoard(evaluator, events)
	ticker := status.NewTicker(board, cfg.StatusTick, broadcaster, metrics, logger)

	if err := scans.Start(); err != nil {
		return err
	}
	defer scans.Stop()

	if err := ticker.Start(); err != nil {
		return err
	}
	defer ticker.Stop()

	router := api.NewRouter(api.Deps{
		Config:      cfg,
		Logger:      logger,
		Location:    loc,
		DB:          db,
		Definitions: events.All(),
		Board:       board,
		Subscribers: subscriptions,
		Notifier:    broadcaster,
		Scans:       scans,
		Tester:      scanner,
		Hub:         hub,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
