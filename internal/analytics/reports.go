package analytics

import (
	"context"
	"fmt"

	"frizerie/m/domain"
	"frizerie/m/internal/database"
)

type ServiceRevenue struct {
	Service string  `db:"service" json:"service"`
	Revenue float64 `db:"revenue" json:"revenue"`
}

type ServiceBookings struct {
	Service string `db:"service" json:"service"`
	Count   int64  `db:"count" json:"count"`
}

// Revenue covers completed and refunded payments created inside the range.
type Revenue struct {
	TotalRevenue      float64          `json:"total_revenue"`
	RevenueByPeriod   []DailyRevenue   `json:"revenue_by_period"`
	RevenueByService  []ServiceRevenue `json:"revenue_by_service"`
	AverageOrderValue float64          `json:"average_order_value"`
	RefundRate        float64          `json:"refund_rate"`
	TimeRange         TimeRange        `json:"time_range"`
}

// Bookings covers bookings scheduled inside the range.
type Bookings struct {
	TotalBookings     int64             `json:"total_bookings"`
	BookingsByPeriod  []DailyCount      `json:"bookings_by_period"`
	BookingsByService []ServiceBookings `json:"bookings_by_service"`
	CompletionRate    float64           `json:"completion_rate"`
	CancellationRate  float64           `json:"cancellation_rate"`
	TimeRange         TimeRange         `json:"time_range"`
}

// Users reports registrations inside the range and booking activity.
// TotalUsers counts all accounts regardless of the range.
type Users struct {
	TotalUsers              int64        `json:"total_users"`
	NewUsersByPeriod        []DailyCount `json:"new_users_by_period"`
	ActiveUsers             int64        `json:"active_users"`
	RetentionRate           float64      `json:"retention_rate"`
	AverageBookingFrequency float64      `json:"average_booking_frequency"`
	TimeRange               TimeRange    `json:"time_range"`
}

func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func checkRange(tr TimeRange) error {
	if tr.End.Before(tr.Start) {
		return fmt.Errorf("%w: end before start", ErrInvalidRange)
	}
	return nil
}

// Revenue aggregates payments. Refund rate is refunded over completed
// payments, as a percentage.
func (s *Store) Revenue(ctx context.Context, tr TimeRange) (Revenue, error) {
	if err := checkRange(tr); err != nil {
		return Revenue{}, err
	}
	out := Revenue{
		TimeRange:        tr,
		RevenueByPeriod:  []DailyRevenue{},
		RevenueByService: []ServiceRevenue{},
	}
	start, end := database.Timestamp(tr.Start), database.Timestamp(tr.End)

	var completed struct {
		Count int64   `db:"count"`
		Total float64 `db:"total"`
	}
	if err := s.db.GetContext(ctx, &completed, `SELECT COUNT(id) AS count, COALESCE(SUM(amount), 0.0) AS total
            FROM payments
            WHERE status = ? AND created_at BETWEEN ? AND ?`, domain.PaymentCompleted, start, end); err != nil {
		return Revenue{}, fmt.Errorf("sum revenue: %w", err)
	}
	out.TotalRevenue = completed.Total
	if completed.Count > 0 {
		out.AverageOrderValue = completed.Total / float64(completed.Count)
	}

	var refunds int64
	if err := s.db.GetContext(ctx, &refunds, `SELECT COUNT(id) FROM payments
            WHERE status = ? AND created_at BETWEEN ? AND ?`, domain.PaymentRefunded, start, end); err != nil {
		return Revenue{}, fmt.Errorf("count refunds: %w", err)
	}
	out.RefundRate = percent(refunds, completed.Count)

	if err := s.db.SelectContext(ctx, &out.RevenueByPeriod, `SELECT date(created_at) AS day, SUM(amount) AS revenue
            FROM payments
            WHERE status = ? AND created_at BETWEEN ? AND ?
            GROUP BY day
            ORDER BY day`, domain.PaymentCompleted, start, end); err != nil {
		return Revenue{}, fmt.Errorf("revenue by period: %w", err)
	}

	if err := s.db.SelectContext(ctx, &out.RevenueByService, `SELECT s.name AS service, SUM(p.amount) AS revenue
            FROM payments p
            JOIN bookings b ON b.id = p.booking_id
            JOIN services s ON s.id = b.service_id
            WHERE p.status = ? AND p.created_at BETWEEN ? AND ?
            GROUP BY s.name
            ORDER BY revenue DESC, s.name`, domain.PaymentCompleted, start, end); err != nil {
		return Revenue{}, fmt.Errorf("revenue by service: %w", err)
	}

	return out, nil
}

// Bookings aggregates bookings by their scheduled date.
func (s *Store) Bookings(ctx context.Context, tr TimeRange) (Bookings, error) {
	if err := checkRange(tr); err != nil {
		return Bookings{}, err
	}
	out := Bookings{
		TimeRange:         tr,
		BookingsByPeriod:  []DailyCount{},
		BookingsByService: []ServiceBookings{},
	}
	start, end := database.Timestamp(tr.Start), database.Timestamp(tr.End)

	var counts struct {
		Total     int64 `db:"total"`
		Completed int64 `db:"completed"`
		Cancelled int64 `db:"cancelled"`
	}
	if err := s.db.GetContext(ctx, &counts, `SELECT COUNT(id) AS total,
                COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed,
                COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS cancelled
            FROM bookings
            WHERE date BETWEEN ? AND ?`, domain.BookingCompleted, domain.BookingCancelled, start, end); err != nil {
		return Bookings{}, fmt.Errorf("count bookings: %w", err)
	}
	out.TotalBookings = counts.Total
	out.CompletionRate = percent(counts.Completed, counts.Total)
	out.CancellationRate = percent(counts.Cancelled, counts.Total)

	if err := s.db.SelectContext(ctx, &out.BookingsByPeriod, `SELECT date(date) AS day, COUNT(id) AS count
            FROM bookings
            WHERE date BETWEEN ? AND ?
            GROUP BY day
            ORDER BY day`, start, end); err != nil {
		return Bookings{}, fmt.Errorf("bookings by period: %w", err)
	}

	if err := s.db.SelectContext(ctx, &out.BookingsByService, `SELECT s.name AS service, COUNT(b.id) AS count
            FROM bookings b
            JOIN services s ON s.id = b.service_id
            WHERE b.date BETWEEN ? AND ?
            GROUP BY s.name
            ORDER BY count DESC, s.name`, start, end); err != nil {
		return Bookings{}, fmt.Errorf("bookings by service: %w", err)
	}

	return out, nil
}

// Users reports growth and activity. A user is active when they have a
// booking scheduled inside the range.
func (s *Store) Users(ctx context.Context, tr TimeRange) (Users, error) {
	if err := checkRange(tr); err != nil {
		return Users{}, err
	}
	out := Users{TimeRange: tr, NewUsersByPeriod: []DailyCount{}}
	start, end := database.Timestamp(tr.Start), database.Timestamp(tr.End)

	if err := s.db.GetContext(ctx, &out.TotalUsers, `SELECT COUNT(*) FROM users`); err != nil {
		return Users{}, fmt.Errorf("count users: %w", err)
	}

	if err := s.db.SelectContext(ctx, &out.NewUsersByPeriod, `SELECT date(created_at) AS day, COUNT(id) AS count
            FROM users
            WHERE created_at BETWEEN ? AND ?
            GROUP BY day
            ORDER BY day`, start, end); err != nil {
		return Users{}, fmt.Errorf("new users by period: %w", err)
	}

	var activity struct {
		Active   int64 `db:"active"`
		Bookings int64 `db:"bookings"`
	}
	if err := s.db.GetContext(ctx, &activity, `SELECT COUNT(DISTINCT user_id) AS active, COUNT(id) AS bookings
            FROM bookings
            WHERE date BETWEEN ? AND ?`, start, end); err != nil {
		return Users{}, fmt.Errorf("active users: %w", err)
	}
	out.ActiveUsers = activity.Active
	out.RetentionRate = percent(activity.Active, out.TotalUsers)
	if activity.Active > 0 {
		out.AverageBookingFrequency = float64(activity.Bookings) / float64(activity.Active)
	}

	return out, nil
}
