package seed

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// LoadServices ingests the CSV into the services table, ignoring duplicates.
// Expected columns: name, description, duration_minutes, price.
func LoadServices(db *sqlx.DB, csvPath string) (int, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		return 0, err
	}

	tx, err := db.Beginx()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO services (name, description, duration_minutes, price) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn().Err(err).Msg("unable to read service row")
			continue
		}
		if len(record) < 4 {
			continue
		}
		name := strings.TrimSpace(record[0])
		description := strings.TrimSpace(record[1])
		if name == "" {
			continue
		}
		duration, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil || duration <= 0 {
			log.Warn().Str("service", name).Msg("skipping service with invalid duration")
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil || price < 0 {
			log.Warn().Str("service", name).Msg("skipping service with invalid price")
			continue
		}

		res, err := stmt.Exec(name, nullIfEmpty(description), duration, price)
		if err != nil {
			log.Warn().Err(err).Str("service", name).Msg("unable to insert service")
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	log.Info().Int("rows", rows).Str("path", csvPath).Msg("seeded service catalog")
	return rows, nil
}

func nullIfEmpty(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}
