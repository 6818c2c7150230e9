package status

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aion-timer/backend/internal/config"
	"github.com/aion-timer/backend/internal/observability"
)

// Publisher receives each freshly computed board.
type Publisher interface {
	BroadcastEventsStatus(at time.Time, events any)
}

// Ticker periodically recomputes the board and publishes it. It owns its
// schedule; callers must Stop it.
type Ticker struct {
	cron      *cron.Cron
	board     *Board
	interval  time.Duration
	publisher Publisher
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewTicker creates a ticker firing every interval. metrics may be nil.
func NewTicker(board *Board, interval time.Duration, publisher Publisher, metrics *observability.Metrics, logger *slog.Logger) *Ticker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ticker{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(config.CronLogger(logger)),
		)),
		board:     board,
		interval:  interval,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Start schedules the tick.
func (t *Ticker) Start() error {
	spec := "@every " + t.interval.String()
	if _, err := t.cron.AddFunc(spec, func() { t.Tick() }); err != nil {
		return fmt.Errorf("scheduling status tick %q: %w", spec, err)
	}
	t.cron.Start()
	t.logger.Info("status ticker started", "interval", t.interval)
	return nil
}

// Stop cancels the tick and waits for a running one to finish.
func (t *Ticker) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.logger.Info("status ticker stopped")
}

// Tick computes the board at the current instant and publishes it.
func (t *Ticker) Tick() []EventView {
	now := t.now()
	views := t.board.Snapshot(now)

	open := 0
	for _, v := range views {
		if v.IsOpen {
			open++
		}
	}
	t.metrics.SetEventsOpen(open)

	if t.publisher != nil {
		t.publisher.BroadcastEventsStatus(now.UTC(), views)
	}
	return views
}
