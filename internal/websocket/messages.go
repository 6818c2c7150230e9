package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeEventsStatus          MessageType = "events.status"
	TypeReminderScanCompleted MessageType = "reminder.scan_completed"
	TypeSubscribersChanged    MessageType = "subscribers.changed"
	TypeNotification          MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventsStatusPayload is the payload for events.status messages. Events holds
// the sorted board rows as produced by the status package.
type EventsStatusPayload struct {
	At     time.Time `json:"at"`
	Events any       `json:"events"`
}

// ScanCompletedPayload is the payload for reminder.scan_completed events.
type ScanCompletedPayload struct {
	At      time.Time `json:"at"`
	Success bool      `json:"success"`
	Sent    int       `json:"notifications_sent"`
	Failed  int       `json:"failed"`
	Message string    `json:"message"`
}

// SubscribersChangedPayload is the payload for subscribers.changed events.
type SubscribersChangedPayload struct {
	SubscriberID string `json:"subscriber_id"`
	Action       string `json:"action"` // subscribed, paused, resumed, removed
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
