package domain

import "time"

// Roles a user can hold.
const (
	RoleCustomer = "customer"
	RoleStylist  = "stylist"
	RoleAdmin    = "admin"
)

type User struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Email         string    `json:"email" db:"email"`
	Password      string    `json:"-" db:"password"`
	Role          string    `json:"role" db:"role"`
	VIPLevel      string    `json:"vip_level" db:"vip_level"`
	LoyaltyPoints int64     `json:"loyalty_points" db:"loyalty_points"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user may use administrative endpoints.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
