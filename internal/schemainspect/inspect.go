// Package schemainspect prints the column layout of a SQLite table.
package schemainspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
)

// ErrNoSuchTable is returned when PRAGMA table_info yields no columns.
var ErrNoSuchTable = errors.New("no such table")

// Column is one row of PRAGMA table_info.
type Column struct {
	CID        int            `db:"cid"`
	Name       string         `db:"name"`
	Type       string         `db:"type"`
	NotNull    int            `db:"notnull"`
	Default    sql.NullString `db:"dflt_value"`
	PrimaryKey int            `db:"pk"`
}

// DefaultString renders the default value the way the report prints it.
func (c Column) DefaultString() string {
	if !c.Default.Valid {
		return "NULL"
	}
	return c.Default.String
}

// TableInfo returns the columns of table in column-index order.
func TableInfo(ctx context.Context, db *sqlx.DB, table string) ([]Column, error) {
	var cols []Column
	query := fmt.Sprintf(`PRAGMA table_info(%s);`, quoteIdent(table))
	if err := db.SelectContext(ctx, &cols, query); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTable, table)
	}
	return cols, nil
}

// IsOperational reports whether err came from the database itself rather
// than from the caller or the process.
func IsOperational(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) || errors.Is(err, ErrNoSuchTable)
}

// Open opens path read-only so inspection never creates an empty file.
func Open(path string) (*sqlx.DB, error) {
	dsn, err := readOnlyDSN(path)
	if err != nil {
		return nil, err
	}
	return sqlx.Open("sqlite", dsn)
}

// readOnlyDSN builds a file: URI for path. The path is made absolute and
// percent-escaped so '#', '?' and '%' stay part of the file name.
func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro"}
	return u.String(), nil
}

// Report opens the database at path, prints the structure of table to w and
// closes the connection. Operational errors are printed as "Error: <msg>"
// and swallowed; anything else is returned.
func Report(ctx context.Context, w io.Writer, path, table string) error {
	db, err := Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	cols, err := TableInfo(ctx, db, table)
	if err != nil {
		if IsOperational(err) {
			_, werr := fmt.Fprintf(w, "Error: %s\n", err)
			return werr
		}
		return err
	}

	fmt.Fprintf(w, "\nCurrent %s table structure:\n", table)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, col := range cols {
		if _, err := fmt.Fprintf(w, "Column: %s, Type: %s, NotNull: %d, Default: %s\n",
			col.Name, col.Type, col.NotNull, col.DefaultString()); err != nil {
			return err
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
