// Package reminder finds events about to open and notifies their subscribers.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aion-timer/backend/internal/notify"
	"github.com/aion-timer/backend/internal/schedule"
	"github.com/aion-timer/backend/internal/storage/models"
	"github.com/aion-timer/backend/internal/subscriber"
)

// SubscriptionSource lists the subscribers a scan should consider.
type SubscriptionSource interface {
	ListActive(ctx context.Context) ([]models.SubscriberWithWatches, error)
}

// EventSource resolves event IDs to definitions.
type EventSource interface {
	Get(id string) (schedule.Definition, bool)
}

// Options tunes the reminder window and send fan-out.
type Options struct {
	// Lead is how long before an opening the reminder goes out.
	Lead time.Duration
	// Tolerance widens the window on both sides of Lead to absorb scan jitter.
	Tolerance time.Duration
	// Concurrency bounds in-flight sends.
	Concurrency int
}

// DefaultOptions reminds 30 minutes ahead with a one minute tolerance.
func DefaultOptions() Options {
	return Options{Lead: 30 * time.Minute, Tolerance: time.Minute, Concurrency: 4}
}

// Result is the outcome of one (subscriber, event) send attempt.
type Result struct {
	Subscriber string `json:"subscriber"`
	Event      string `json:"event"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	MessageID  string `json:"message_id,omitempty"`
	Simulated  bool   `json:"test_mode,omitempty"`
}

// Report summarises a scan. NotificationsSent counts attempts, failed ones
// included, so it always equals len(Results).
type Report struct {
	Success           bool     `json:"success"`
	Message           string   `json:"message,omitempty"`
	Error             string   `json:"error,omitempty"`
	NotificationsSent int      `json:"notificationsSent"`
	Results           []Result `json:"results"`
}

// Failed returns how many attempts did not succeed.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Success {
			n++
		}
	}
	return n
}

// Scanner runs reminder scans. It is safe for concurrent use; every Scan is
// independent.
type Scanner struct {
	evaluator *schedule.Evaluator
	events    EventSource
	subs      SubscriptionSource
	sender    notify.Sender
	opts      Options
	logger    *slog.Logger
}

// NewScanner creates a scanner.
func NewScanner(
	evaluator *schedule.Evaluator,
	events EventSource,
	subs SubscriptionSource,
	sender notify.Sender,
	opts Options,
	logger *slog.Logger,
) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Scanner{
		evaluator: evaluator,
		events:    events,
		subs:      subs,
		sender:    sender,
		opts:      opts,
		logger:    logger,
	}
}

type job struct {
	phone  string
	event  schedule.Definition
	opens  time.Time
	result *Result
}

// Scan checks every active subscription at now and sends a reminder for each
// watched event whose next opening falls inside the reminder window. A failed
// send is recorded and does not stop the others. Only a store failure or an
// internal fault fails the whole scan.
func (s *Scanner) Scan(ctx context.Context, now time.Time) (report Report) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reminder scan panicked", "panic", r, "stack", string(debug.Stack()))
			report = Report{
				Success: false,
				Error:   fmt.Sprintf("internal error: %v", r),
				Results: []Result{},
			}
		}
	}()

	subs, err := s.subs.ListActive(ctx)
	if err != nil {
		s.logger.Error("loading subscribers for reminder scan", "error", err)
		return Report{
			Success: false,
			Error:   fmt.Sprintf("loading subscribers: %v", err),
			Results: []Result{},
		}
	}

	if len(subs) == 0 {
		return Report{Success: true, Message: "No active subscribers found", Results: []Result{}}
	}

	jobs := s.dueReminders(subs, now)
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i := range jobs {
		j := &jobs[i]
		j.result = &results[i]
		g.Go(func() error {
			s.deliver(ctx, j)
			return nil
		})
	}
	_ = g.Wait()

	report = Report{
		Success:           true,
		NotificationsSent: len(results),
		Results:           results,
	}
	if len(results) > 0 {
		report.Message = fmt.Sprintf("Scan finished. %d notifications sent.", len(results))
	} else {
		report.Message = "Scan finished. No event is about to start."
	}

	s.logger.Info("reminder scan finished",
		"subscribers", len(subs),
		"attempts", report.NotificationsSent,
		"failed", report.Failed(),
	)
	return report
}

// dueEvent is the reminder verdict for one event within a scan.
type dueEvent struct {
	def   schedule.Definition
	opens time.Time
	ok    bool
}

// dueReminders evaluates each watched event once and pairs the due ones with
// their subscribers.
func (s *Scanner) dueReminders(subs []models.SubscriberWithWatches, now time.Time) []job {
	cache := make(map[string]dueEvent)

	var jobs []job
	for _, sub := range subs {
		for _, eventID := range sub.EventIDs {
			d, seen := cache[eventID]
			if !seen {
				d = s.check(eventID, now)
				cache[eventID] = d
			}
			if !d.ok {
				continue
			}
			jobs = append(jobs, job{phone: sub.PhoneNumber, event: d.def, opens: d.opens})
		}
	}
	return jobs
}

func (s *Scanner) check(eventID string, now time.Time) dueEvent {
	def, found := s.events.Get(eventID)
	if !found {
		s.logger.Warn("subscriber watches unknown event", "event_id", eventID)
		return dueEvent{}
	}

	// Reminders only precede an opening, never a closing.
	status := s.evaluator.Evaluate(def, now)
	if status.IsOpen || !status.Resolved() {
		return dueEvent{def: def}
	}

	if !s.inWindow(status.NextTransition.Sub(now)) {
		return dueEvent{def: def}
	}
	return dueEvent{def: def, opens: *status.NextTransition, ok: true}
}

// inWindow reports whether an opening until away is due a reminder. The band
// is inclusive at both ends.
func (s *Scanner) inWindow(until time.Duration) bool {
	minutes := until.Minutes()
	lead := s.opts.Lead.Minutes()
	tol := s.opts.Tolerance.Minutes()
	return minutes >= lead-tol && minutes <= lead+tol
}

func (s *Scanner) deliver(ctx context.Context, j *job) {
	*j.result = Result{Subscriber: j.phone, Event: j.event.Name}

	// A faulty sender fails this attempt only.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sender panicked", "subscriber", j.phone, "event", j.event.ID, "panic", r)
			j.result.Success = false
			j.result.Error = fmt.Sprintf("internal error: %v", r)
		}
	}()

	delivery, err := s.sender.Send(ctx, j.phone, ReminderMessage(j.event.Name, j.opens, s.opts.Lead))
	if err != nil {
		s.logger.Warn("reminder not delivered", "subscriber", j.phone, "event", j.event.ID, "error", err)
		j.result.Error = err.Error()
		return
	}

	j.result.Success = true
	j.result.MessageID = delivery.MessageID
	j.result.Simulated = delivery.Simulated
}

// SendTest sends a configuration test message to phone.
func (s *Scanner) SendTest(ctx context.Context, phone string) (notify.Delivery, error) {
	normalized, err := subscriber.NormalizePhone(phone)
	if err != nil {
		return notify.Delivery{}, err
	}
	return s.sender.Send(ctx, normalized, TestMessage)
}
