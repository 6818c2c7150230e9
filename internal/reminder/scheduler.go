package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aion-timer/backend/internal/config"
	"github.com/aion-timer/backend/internal/observability"
	"github.com/aion-timer/backend/internal/websocket"
)

// Broadcaster publishes scan outcomes to connected dashboards.
type Broadcaster interface {
	BroadcastScanCompleted(payload websocket.ScanCompletedPayload)
	BroadcastNotification(level, title, message string)
}


// Scheduler runs reminder scans on a cron schedule.
type Scheduler struct {
	cron        *cron.Cron
	spec        string
	scanner     *Scanner
	broadcaster Broadcaster
	metrics     *observability.Metrics
	logger      *slog.Logger
	now         func() time.Time
	entry       cron.EntryID

	// ctx is the parent of scheduled scans; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler that scans on spec, e.g. "@every 1m".
// broadcaster and metrics may be nil.
func NewScheduler(
	scanner *Scanner,
	spec string,
	broadcaster Broadcaster,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := config.CronLogger(logger)
	return &Scheduler{
		// A slow provider must not stack scans on top of each other.
		// Recover sits inside the skip guard so a panicking run still
		// releases it.
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
		spec:        spec,
		scanner:     scanner,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start registers the scan job and starts the cron runner.
func (s *Scheduler) Start() error {
	id, err := s.cron.AddFunc(s.spec, func() {
		s.RunNow(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling reminder scan %q: %w", s.spec, err)
	}
	s.entry = id

	s.cron.Start()
	s.logger.Info("reminder scheduler started", "schedule", s.spec)
	return nil
}

// Stop shuts down the scheduler. In-flight sends of a running scan are
// cancelled and the scan is waited for.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping reminder scheduler")
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("reminder scheduler stopped")
}

// NextRun returns the next scheduled scan, or nil before Start.
func (s *Scheduler) NextRun() *time.Time {
	if s.entry == 0 {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

// RunNow performs one scan immediately. It is also the manual trigger, so it
// may run concurrently with a scheduled scan.
func (s *Scheduler) RunNow(ctx context.Context) Report {
	began := time.Now()
	start := s.now()
	report := s.scanner.Scan(ctx, start)
	failed := report.Failed()

	s.metrics.ScanCompleted(time.Since(began), report.Success, report.NotificationsSent-failed, failed)

	if !report.Success {
		s.logger.Error("reminder scan failed", "error", report.Error)
	}

	if s.broadcaster != nil {
		msg := report.Message
		if !report.Success {
			msg = report.Error
		}
		s.broadcaster.BroadcastScanCompleted(websocket.ScanCompletedPayload{
			At:      start.UTC(),
			Success: report.Success,
			Sent:    report.NotificationsSent,
			Failed:  failed,
			Message: msg,
		})
		s.notifyProblems(report, failed)
	}

	return report
}

// notifyProblems raises a dashboard notification when a scan failed outright
// or some reminders were not delivered.
func (s *Scheduler) notifyProblems(report Report, failed int) {
	switch {
	case !report.Success:
		s.broadcaster.BroadcastNotification("error", "Reminder scan failed", report.Error)
	case failed > 0:
		s.broadcaster.BroadcastNotification("warning", "Reminders not delivered",
			fmt.Sprintf("%d of %d reminders failed.", failed, report.NotificationsSent))
	}
}
