package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aion-timer/backend/internal/storage/models"
)

const subscriberColumns = `s.id, s.phone_number, s.name, s.active, s.created_at, s.updated_at`

// SubscriberRepository provides data access for subscribers and their watched events.
type SubscriberRepository struct {
	BaseRepository
}

// NewSubscriberRepository creates a new subscriber repository.
func NewSubscriberRepository(db *DB) *SubscriberRepository {
	return &SubscriberRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Upsert registers phone for eventIDs. An existing subscriber with the same
// phone number is reactivated and its watched events are replaced, so the
// stored set always equals the latest submission.
func (r *SubscriberRepository) Upsert(ctx context.Context, phone string, name *string, eventIDs []string) (*models.SubscriberWithWatches, error) {
	now := r.Now()
	var id string

	err := r.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.q(`
			INSERT INTO subscribers (id, phone_number, name, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (phone_number) DO UPDATE SET
				name = COALESCE(excluded.name, subscribers.name),
				active = excluded.active,
				updated_at = excluded.updated_at
		`), GenerateID(), phone, name, true, now, now)
		if err != nil {
			return fmt.Errorf("upserting subscriber: %w", err)
		}

		if err := tx.QueryRowContext(ctx, r.q(
			`SELECT id FROM subscribers WHERE phone_number = ?`,
		), phone).Scan(&id); err != nil {
			return fmt.Errorf("reading subscriber id: %w", err)
		}

		return r.replaceWatches(ctx, tx, id, eventIDs)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *SubscriberRepository) replaceWatches(ctx context.Context, q Queryable, subscriberID string, eventIDs []string) error {
	if _, err := q.ExecContext(ctx, r.q(
		`DELETE FROM event_watches WHERE subscriber_id = ?`,
	), subscriberID); err != nil {
		return fmt.Errorf("clearing watched events: %w", err)
	}

	now := r.Now()
	for _, eventID := range eventIDs {
		if _, err := q.ExecContext(ctx, r.q(
			`INSERT INTO event_watches (subscriber_id, event_id, created_at) VALUES (?, ?, ?)`,
		), subscriberID, eventID, now); err != nil {
			return fmt.Errorf("inserting watched event %s: %w", eventID, err)
		}
	}

	return nil
}

// GetByID retrieves a subscriber and its watched events.
func (r *SubscriberRepository) GetByID(ctx context.Context, id string) (*models.SubscriberWithWatches, error) {
	list, err := r.listWithWatches(ctx, `WHERE s.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

// List retrieves every subscriber, active or not, with watched events.
func (r *SubscriberRepository) List(ctx context.Context) ([]models.SubscriberWithWatches, error) {
	return r.listWithWatches(ctx, "")
}

// ListActive retrieves active subscribers with their watched events.
// This is the reminder scan's single read per pass.
func (r *SubscriberRepository) ListActive(ctx context.Context) ([]models.SubscriberWithWatches, error) {
	return r.listWithWatches(ctx, `WHERE s.active = ?`, true)
}

func (r *SubscriberRepository) listWithWatches(ctx context.Context, where string, args ...any) ([]models.SubscriberWithWatches, error) {
	rows, err := r.DB().QueryContext(ctx, r.q(`
		SELECT `+subscriberColumns+`, w.event_id
		FROM subscribers s
		LEFT JOIN event_watches w ON w.subscriber_id = s.id
		`+where+`
		ORDER BY s.created_at, s.id, w.event_id
	`), args...)
	if err != nil {
		return nil, fmt.Errorf("querying subscribers: %w", err)
	}
	defer rows.Close()

	var out []models.SubscriberWithWatches
	for rows.Next() {
		var s models.Subscriber
		var eventID sql.NullString
		if err := rows.Scan(
			&s.ID, &s.PhoneNumber, &s.Name, &s.Active,
			&s.CreatedAt, &s.UpdatedAt, &eventID,
		); err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}

		// Rows for one subscriber are adjacent because of the ORDER BY.
		if n := len(out); n == 0 || out[n-1].ID != s.ID {
			out = append(out, models.SubscriberWithWatches{Subscriber: s, EventIDs: []string{}})
		}
		if eventID.Valid {
			last := &out[len(out)-1]
			last.EventIDs = append(last.EventIDs, eventID.String)
		}
	}

	return out, rows.Err()
}

// SetActive pauses or resumes reminders for a subscriber.
func (r *SubscriberRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.DB().ExecContext(ctx, r.q(
		`UPDATE subscribers SET active = ?, updated_at = ? WHERE id = ?`,
	), active, r.Now(), id)
	if err != nil {
		return fmt.Errorf("updating subscriber: %w", err)
	}
	return expectAffected(result)
}

// Delete removes a subscriber. Watched events cascade.
func (r *SubscriberRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, r.q(`DELETE FROM subscribers WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting subscriber: %w", err)
	}
	return expectAffected(result)
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
