package analytics

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidEventType = errors.New("invalid event type")
	ErrInvalidRange     = errors.New("invalid time range")
	ErrInvalidPaging    = errors.New("invalid paging")
	ErrEventNotFound    = errors.New("event not found")
)

type EventType string

const (
	PageView         EventType = "page_view"
	BookingCreated   EventType = "booking_created"
	BookingCancelled EventType = "booking_cancelled"
	PaymentReceived  EventType = "payment_received"
	PaymentFailed    EventType = "payment_failed"
	UserLogin        EventType = "user_login"
	UserLogout       EventType = "user_logout"
	UserRegistered   EventType = "user_registered"
	ServiceViewed    EventType = "service_viewed"
	Error            EventType = "error"
)

var eventTypes = map[EventType]struct{}{
	PageView: {}, BookingCreated: {}, BookingCancelled: {}, PaymentReceived: {},
	PaymentFailed: {}, UserLogin: {}, UserLogout: {}, UserRegistered: {},
	ServiceViewed: {}, Error: {},
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	_, ok := eventTypes[t]
	return ok
}

// ParseEventType validates a raw event type name.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEventType, s)
	}
	return t, nil
}

// Properties is the free-form JSON payload attached to an event.
type Properties map[string]any

// Value implements driver.Valuer.
func (p Properties) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Properties) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported properties type %T", src)
	}
	if len(raw) == 0 {
		*p = nil
		return nil
	}
	out := Properties{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode properties: %w", err)
	}
	*p = out
	return nil
}

type Event struct {
	ID         int64      `db:"id" json:"id"`
	UserID     *int64     `db:"user_id" json:"user_id"`
	StylistID  *int64     `db:"stylist_id" json:"stylist_id"`
	ServiceID  *int64     `db:"service_id" json:"service_id"`
	BookingID  *string    `db:"booking_id" json:"booking_id"`
	EventType  EventType  `db:"event_type" json:"event_type"`
	Properties Properties `db:"properties" json:"properties"`
	IPAddress  *string    `db:"ip_address" json:"ip_address"`
	UserAgent  *string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Filter narrows an event listing. Zero values mean "no constraint", except
// Limit which defaults to DefaultLimit.
type Filter struct {
	EventType EventType
	UserID    *int64
	Start     *time.Time
	End       *time.Time
	Limit     int
	Offset    int
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// TimeRange is an inclusive window over created/booked timestamps.
type TimeRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// LastDays returns the window ending at now and spanning days days.
// days must be within 1..365.
func LastDays(now time.Time, days int) (TimeRange, error) {
	if days < 1 || days > 365 {
		return TimeRange{}, fmt.Errorf("%w: days must be between 1 and 365, got %d", ErrInvalidRange, days)
	}
	return TimeRange{Start: now.Add(-time.Duration(days) * 24 * time.Hour), End: now}, nil
}
