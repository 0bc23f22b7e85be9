package seed

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"frizerie/m/domain"
)

// EnsureAdmin creates the configured administrator, or promotes an existing
// account with the same email. The password of an existing account is left
// untouched.
func EnsureAdmin(db *sqlx.DB, name, email, password string) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return 0, errors.New("admin email and password are required")
	}

	var existing domain.User
	err := db.Get(&existing, `SELECT id, role FROM users WHERE email = ?`, email)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			if _, err := db.Exec(`UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, domain.RoleAdmin, existing.ID); err != nil {
				return 0, fmt.Errorf("promote admin: %w", err)
			}
			log.Info().Int64("user_id", existing.ID).Msg("promoted existing user to admin")
		}
		return existing.ID, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("lookup admin: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash admin password: %w", err)
	}
	if name == "" {
		name = "Administrator"
	}
	res, err := db.Exec(`INSERT INTO users (name, email, password, role) VALUES (?, ?, ?, ?)`, name, email, string(hashed), domain.RoleAdmin)
	if err != nil {
		return 0, fmt.Errorf("create admin: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	log.Info().Int64("user_id", id).Str("email", email).Msg("seeded admin user")
	return id, nil
}
