// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aion-timer/backend/internal/notify"
	"github.com/aion-timer/backend/internal/reminder"
	"github.com/aion-timer/backend/internal/status"
	"github.com/aion-timer/backend/internal/storage/models"
	"github.com/aion-timer/backend/internal/subscriber"
)

// Clock returns the current instant. Handlers take one so tests can pin time.
type Clock func() time.Time

// Board answers presentation queries.
type Board interface {
	Snapshot(now time.Time) []status.EventView
	View(id string, now time.Time) (status.EventView, bool)
}

// Subscribers manages subscriptions.
type Subscribers interface {
	Subscribe(ctx context.Context, req subscriber.Request) (*models.SubscriberWithWatches, error)
	List(ctx context.Context) ([]models.SubscriberWithWatches, error)
	SetActive(ctx context.Context, id string, active bool) error
	Remove(ctx context.Context, id string) error
}

// SubscriberNotifier is told about subscription changes.
type SubscriberNotifier interface {
	BroadcastSubscribersChanged(subscriberID, action string)
}

// ScanTrigger runs one reminder scan on demand.
type ScanTrigger interface {
	RunNow(ctx context.Context) reminder.Report
}

// TestSender sends a configuration test message.
type TestSender interface {
	SendTest(ctx context.Context, phone string) (notify.Delivery, error)
}

// OperationResponse is the envelope of operation-style endpoints.
type OperationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, OperationResponse{Success: false, Error: msg})
}
