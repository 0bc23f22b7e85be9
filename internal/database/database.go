package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Connect opens a SQLite database using the provided DSN.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// TimestampLayout matches the text SQLite writes for CURRENT_TIMESTAMP.
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp renders t in UTC using TimestampLayout so that stored values
// compare correctly against column defaults.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
