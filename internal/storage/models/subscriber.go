// Package models contains the domain models for the application.
package models

import (
	"time"
)

// Subscriber is a phone number registered for event reminders.
type Subscriber struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	Name        *string   `json:"name,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SubscriberWithWatches is a subscriber together with the event IDs it
// wants reminders for.
type SubscriberWithWatches struct {
	Subscriber
	EventIDs []string `json:"event_ids"`
}

// Watches reports whether the subscriber asked for reminders of eventID.
func (s *SubscriberWithWatches) Watches(eventID string) bool {
	for _, id := range s.EventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}
