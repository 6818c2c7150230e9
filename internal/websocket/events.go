package websocket

import (
	"log/slog"
	"time"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub    *Hub
	logger *slog.Logger
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub, logger *slog.Logger) *EventBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBroadcaster{hub: hub, logger: logger}
}

// BroadcastEventsStatus sends the current event board.
func (b *EventBroadcaster) BroadcastEventsStatus(at time.Time, events any) {
	b.broadcast(NewMessage(TypeEventsStatus, EventsStatusPayload{At: at, Events: events}))
}

// BroadcastScanCompleted sends the outcome of a reminder scan.
func (b *EventBroadcaster) BroadcastScanCompleted(payload ScanCompletedPayload) {
	b.broadcast(NewMessage(TypeReminderScanCompleted, payload))
}

// BroadcastSubscribersChanged tells dashboards to refresh the subscriber list.
func (b *EventBroadcaster) BroadcastSubscribersChanged(subscriberID, action string) {
	b.broadcast(NewMessage(TypeSubscribersChanged, SubscribersChangedPayload{
		SubscriberID: subscriberID,
		Action:       action,
	}))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	payload := NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}

	b.broadcast(NewMessage(TypeNotification, payload))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.logger.Error("encoding websocket message", "type", msg.Type, "error", err)
		return
	}

	b.hub.Broadcast(data)
}
