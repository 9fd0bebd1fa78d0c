// Package engine opens database connections from URLs.
package engine

import (
	"context"
	"regexp"

	"github.com/jmoiron/sqlx"
	"github.com/xo/dburl"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type Table struct {
	Schema string `db:"table_schema"`
	Name   string `db:"table_name"`
}

func (t Table) DisplayName() string {
	str := t.Name
	if t.Schema != "" {
		str = t.Schema + "." + str
	}
	return str
}

// Open connects to the database named by a URL such as
// postgres://localhost/db or sqlite:path/to/file.db.
func Open(url string) (*sqlx.DB, error) {
	u, err := dburl.Parse(url)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(u.Driver, u.DSN)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Tables lists the user tables of the database.
func Tables(ctx context.Context, db *sqlx.DB) ([]Table, error) {
	tables := []Table{}

	var query string

	switch db.DriverName() {
	case "sqlite3":
		query = `SELECT '' AS table_schema, name AS table_name FROM sqlite_master WHERE type = 'table' AND name != 'sqlite_sequence' ORDER BY name`
	case "mysql":
		query = `SELECT table_schema AS table_schema, table_name AS table_name FROM information_schema.tables WHERE table_schema = DATABASE() OR (DATABASE() IS NULL AND table_schema NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')) ORDER BY table_schema, table_name`
	case "sqlserver":
		query = `SELECT table_schema, table_name FROM information_schema.tables WHERE table_type = 'BASE TABLE' ORDER BY table_schema, table_name`
	default:
		query = `SELECT table_schema, table_name FROM information_schema.tables WHERE table_schema NOT IN ('information_schema', 'pg_catalog') ORDER BY table_schema, table_name`
	}

	err := db.SelectContext(ctx, &tables, query)
	if err != nil {
		return nil, err
	}

	return tables, nil
}

var urlPassword = regexp.MustCompile(`((\/\/|%2F%2F)\S+(:|%3A))\S+(@|%40)`)

// Redact masks the password of a connection URL for display.
func Redact(url string) string {
	return urlPassword.ReplaceAllString(url, "${1}[redacted]${4}")
}
