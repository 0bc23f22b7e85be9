package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"frizerie/m/domain"
	"frizerie/m/internal/database"
	"frizerie/m/internal/migrations"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	return db
}

func TestEnsureAdminCreatesOnce(t *testing.T) {
	db := newTestDB(t)

	id, err := EnsureAdmin(db, "Boss", "Admin@Frizerie.test", "s3cret-pass")
	require.NoError(t, err)
	assert.NotZero(t, id)

	again, err := EnsureAdmin(db, "Boss", "admin@frizerie.test", "other-pass")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	var user domain.User
	require.NoError(t, db.Get(&user, `SELECT id, name, email, password, role FROM users WHERE id = ?`, id))
	assert.Equal(t, "admin@frizerie.test", user.Email)
	assert.True(t, user.IsAdmin())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("s3cret-pass")))
}

func TestEnsureAdminPromotesExistingUser(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Exec(`INSERT INTO users (name, email, password, role) VALUES ('Ana', 'ana@frizerie.test', 'x', 'customer')`)
	require.NoError(t, err)

	id, err := EnsureAdmin(db, "", "ana@frizerie.test", "whatever")
	require.NoError(t, err)

	var role string
	require.NoError(t, db.Get(&role, `SELECT role FROM users WHERE id = ?`, id))
	assert.Equal(t, domain.RoleAdmin, role)
}

func TestEnsureAdminRequiresCredentials(t *testing.T) {
	db := newTestDB(t)
	_, err := EnsureAdmin(db, "Boss", "", "pw")
	assert.Error(t, err)
}

func TestLoadServices(t *testing.T) {
	db := newTestDB(t)
	path := filepath.Join(t.TempDir(), "services.csv")
	content := "name,description,duration_minutes,price\n" +
		"Haircut,Classic cut,30,50\n" +
		"Beard Trim,,15,25.5\n" +
		"Broken,missing price,20\n" +
		"Bad Duration,x,zero,10\n" +
		"Haircut,duplicate,30,50\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	n, err := LoadServices(db, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var services []domain.Service
	require.NoError(t, db.Select(&services, `SELECT id, name, description, duration_minutes, price, created_at FROM services ORDER BY id`))
	require.Len(t, services, 2)
	assert.Equal(t, "Haircut", services[0].Name)
	require.NotNil(t, services[0].Description)
	assert.Equal(t, "Classic cut", *services[0].Description)
	assert.Nil(t, services[1].Description)
	assert.Equal(t, 25.5, services[1].Price)
	assert.False(t, services[0].CreatedAt.IsZero())
}

func TestLoadServicesMissingFile(t *testing.T) {
	db := newTestDB(t)
	_, err := LoadServices(db, filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
