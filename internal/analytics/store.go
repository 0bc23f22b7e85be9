package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"frizerie/m/internal/database"
)

const eventColumns = `id, user_id, stylist_id, service_id, booking_id, event_type, properties, ip_address, user_agent, created_at, updated_at`

// Store persists and aggregates analytics events.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore constructs a Store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Track records an event and returns it as stored.
func (s *Store) Track(ctx context.Context, ev Event) (Event, error) {
	if !ev.EventType.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidEventType, ev.EventType)
	}
	ts := database.Timestamp(s.now())
	res, err := s.db.ExecContext(ctx, `INSERT INTO analytics_events
            (user_id, stylist_id, service_id, booking_id, event_type, properties, ip_address, user_agent, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.UserID, ev.StylistID, ev.ServiceID, ev.BookingID, string(ev.EventType), ev.Properties,
		ev.IPAddress, ev.UserAgent, ts, ts)
	if err != nil {
		return Event{}, fmt.Errorf("track %s event: %w", ev.EventType, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Event{}, fmt.Errorf("track %s event: %w", ev.EventType, err)
	}
	return s.Event(ctx, id)
}

// Event fetches a single event by id.
func (s *Store) Event(ctx context.Context, id int64) (Event, error) {
	var ev Event
	err := s.db.GetContext(ctx, &ev, `SELECT `+eventColumns+` FROM analytics_events WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, fmt.Errorf("%w: %d", ErrEventNotFound, id)
	}
	if err != nil {
		return Event{}, fmt.Errorf("load event %d: %w", id, err)
	}
	return ev, nil
}

// Events lists events matching f, newest first.
func (s *Store) Events(ctx context.Context, f Filter) ([]Event, error) {
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit < 1 || f.Limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidPaging, MaxLimit)
	}
	if f.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidPaging)
	}
	if f.EventType != "" && !f.EventType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEventType, f.EventType)
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return nil, fmt.Errorf("%w: end_date before start_date", ErrInvalidRange)
	}

	var (
		args    []any
		clauses []string
	)
	if f.EventType != "" {
		clauses = append(clauses, "event_type = ?")
		args = append(args, string(f.EventType))
	}
	if f.UserID != nil {
		clauses = append(clauses, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.Start != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, database.Timestamp(*f.Start))
	}
	if f.End != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, database.Timestamp(*f.End))
	}

	query := `SELECT ` + eventColumns + ` FROM analytics_events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	events := []Event{}
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
