package analytics

import (
	"context"
	"fmt"

	"frizerie/m/domain"
	"frizerie/m/internal/database"
)

const popularServicesLimit = 5

type ServiceCount struct {
	Name  string `db:"name" json:"name"`
	Count int64  `db:"count" json:"count"`
}

type DailyRevenue struct {
	Date    string  `db:"day" json:"date"`
	Revenue float64 `db:"revenue" json:"revenue"`
}

type DailyCount struct {
	Date  string `db:"day" json:"date"`
	Count int64  `db:"count" json:"count"`
}

// Summary is the overall business snapshot returned by the summary endpoint.
// Totals cover all time; the per-period series cover the requested range.
type Summary struct {
	TotalUsers            int64          `json:"total_users"`
	TotalBookings         int64          `json:"total_bookings"`
	TotalRevenue          float64        `json:"total_revenue"`
	AverageBookingValue   float64        `json:"average_booking_value"`
	BookingCompletionRate float64        `json:"booking_completion_rate"`
	PopularServices       []ServiceCount `json:"popular_services"`
	RevenueByPeriod       []DailyRevenue `json:"revenue_by_period"`
	BookingsByPeriod      []DailyCount   `json:"bookings_by_period"`
	UserGrowth            []DailyCount   `json:"user_growth"`
	TimeRange             TimeRange      `json:"time_range"`
}

// Summary aggregates users, bookings and payments.
func (s *Store) Summary(ctx context.Context, tr TimeRange) (Summary, error) {
	if err := checkRange(tr); err != nil {
		return Summary{}, err
	}
	out := Summary{
		TimeRange:        tr,
		PopularServices:  []ServiceCount{},
		RevenueByPeriod:  []DailyRevenue{},
		BookingsByPeriod: []DailyCount{},
		UserGrowth:       []DailyCount{},
	}
	start, end := database.Timestamp(tr.Start), database.Timestamp(tr.End)

	if err := s.db.GetContext(ctx, &out.TotalUsers, `SELECT COUNT(*) FROM users`); err != nil {
		return Summary{}, fmt.Errorf("count users: %w", err)
	}
	if err := s.db.GetContext(ctx, &out.TotalBookings, `SELECT COUNT(*) FROM bookings`); err != nil {
		return Summary{}, fmt.Errorf("count bookings: %w", err)
	}
	if err := s.db.GetContext(ctx, &out.TotalRevenue,
		`SELECT COALESCE(SUM(amount), 0.0) FROM payments WHERE status = ?`, domain.PaymentCompleted); err != nil {
		return Summary{}, fmt.Errorf("sum revenue: %w", err)
	}

	var completed int64
	if err := s.db.GetContext(ctx, &completed,
		`SELECT COUNT(*) FROM bookings WHERE status = ?`, domain.BookingCompleted); err != nil {
		return Summary{}, fmt.Errorf("count completed bookings: %w", err)
	}
	if out.TotalBookings > 0 {
		out.AverageBookingValue = out.TotalRevenue / float64(out.TotalBookings)
		out.BookingCompletionRate = float64(completed) / float64(out.TotalBookings) * 100
	}

	if err := s.db.SelectContext(ctx, &out.PopularServices, `SELECT s.name AS name, COUNT(b.id) AS count
            FROM services s
            JOIN bookings b ON b.service_id = s.id
            GROUP BY s.name
            ORDER BY count DESC, s.name
            LIMIT ?`, popularServicesLimit); err != nil {
		return Summary{}, fmt.Errorf("popular services: %w", err)
	}

	if err := s.db.SelectContext(ctx, &out.RevenueByPeriod, `SELECT date(created_at) AS day, SUM(amount) AS revenue
            FROM payments
            WHERE status = ? AND created_at BETWEEN ? AND ?
            GROUP BY day
            ORDER BY day`, domain.PaymentCompleted, start, end); err != nil {
		return Summary{}, fmt.Errorf("revenue by period: %w", err)
	}

	if err := s.db.SelectContext(ctx, &out.BookingsByPeriod, `SELECT date(date) AS day, COUNT(id) AS count
            FROM bookings
            WHERE date BETWEEN ? AND ?
            GROUP BY day
            ORDER BY day`, start, end); err != nil {
		return Summary{}, fmt.Errorf("bookings by period: %w", err)
	}

	if err := s.db.SelectContext(ctx, &out.UserGrowth, `SELECT date(created_at) AS day, COUNT(id) AS count
            FROM users
            WHERE created_at BETWEEN ? AND ?
            GROUP BY day
            ORDER BY day`, start, end); err != nil {
		return Summary{}, fmt.Errorf("user growth: %w", err)
	}

	return out, nil
}
