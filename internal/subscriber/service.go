package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aion-timer/backend/internal/storage/models"
)

var (
	ErrNoEvents     = errors.New("select at least one event to be notified about")
	ErrUnknownEvent = errors.New("unknown event selected")
)

// Store persists subscribers and their watched events.
type Store interface {
	Upsert(ctx context.Context, phone string, name *string, eventIDs []string) (*models.SubscriberWithWatches, error)
	List(ctx context.Context) ([]models.SubscriberWithWatches, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

// EventLookup tells whether an event ID exists in the catalog.
type EventLookup interface {
	Has(id string) bool
}

// Request is a subscription submitted by a user.
type Request struct {
	Name        string   `json:"name"`
	PhoneNumber string   `json:"phone_number"`
	EventIDs    []string `json:"event_ids"`
}

// Service validates and applies subscription changes.
type Service struct {
	store  Store
	events EventLookup
	logger *slog.Logger
}

// NewService creates a subscriber service.
func NewService(store Store, events EventLookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, events: events, logger: logger}
}

// Subscribe registers or refreshes a subscription. Resubmitting the same phone
// reactivates the subscriber and replaces its watched events.
func (s *Service) Subscribe(ctx context.Context, req Request) (*models.SubscriberWithWatches, error) {
	phone, err := NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	eventIDs, err := s.validateEvents(req.EventIDs)
	if err != nil {
		return nil, err
	}

	var name *string
	if n := strings.TrimSpace(req.Name); n != "" {
		name = &n
	}

	sub, err := s.store.Upsert(ctx, phone, name, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("saving subscription: %w", err)
	}

	s.logger.Info("subscription saved", "subscriber_id", sub.ID, "events", len(sub.EventIDs))
	return sub, nil
}

func (s *Service) validateEvents(ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	var out []string
	var unknown []string

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if !s.events.Has(id) {
			unknown = append(unknown, id)
			continue
		}
		out = append(out, id)
	}

	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, strings.Join(unknown, ", "))
	}
	if len(out) == 0 {
		return nil, ErrNoEvents
	}
	return out, nil
}

// List returns all subscribers with their watched events.
func (s *Service) List(ctx context.Context) ([]models.SubscriberWithWatches, error) {
	return s.store.List(ctx)
}

// SetActive pauses or resumes a subscriber.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.Info("subscriber status changed", "subscriber_id", id, "active", active)
	return nil
}

// Remove deletes a subscriber and its watched events.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("subscriber removed", "subscriber_id", id)
	return nil
}

// IsValidation reports whether err is a user input problem rather than a
// storage failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPhone) ||
		errors.Is(err, ErrPhoneTooLong) ||
		errors.Is(err, ErrNoEvents) ||
		errors.Is(err, ErrUnknownEvent)
}
