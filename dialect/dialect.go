// Package dialect renders queries for the database behind an engine.
package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/redframe/redpanda/query"
)

var (
	ErrNoQuery  = errors.New("no query to resolve")
	ErrNoEngine = errors.New("no engine to resolve against")
)

var (
	Postgres  query.Dialect = postgres{}
	MySQL     query.Dialect = mysql{}
	SQLite    query.Dialect = sqlite{}
	SQLServer query.Dialect = sqlserver{}
)

// For returns the dialect of a database/sql driver name. Unknown drivers
// get the PostgreSQL dialect.
func For(driverName string) query.Dialect {
	switch driverName {
	case "mysql":
		return MySQL
	case "sqlite3", "sqlite":
		return SQLite
	case "sqlserver", "mssql":
		return SQLServer
	default:
		return Postgres
	}
}

// StatementAndParams renders q for the engine's dialect and returns the SQL
// text with its named parameters. The parameters are never nil.
func StatementAndParams(db *sqlx.DB, q query.Query) (string, query.Params, error) {
	if q == nil {
		return "", nil, ErrNoQuery
	}
	if db == nil {
		return "", nil, ErrNoEngine
	}

	statement, params, err := q.Render(For(db.DriverName()))
	if err != nil {
		return "", nil, err
	}
	if params == nil {
		params = query.Params{}
	}
	return statement, params, nil
}

type postgres struct{}

func (postgres) Name() string {
	return "postgres"
}

func (postgres) QuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func (postgres) Limit(statement string, limit int, offset int) string {
	if limit > 0 {
		statement += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		statement += fmt.Sprintf(" OFFSET %d", offset)
	}
	return statement
}

type mysql struct{}

func (mysql) Name() string {
	return "mysql"
}

func (mysql) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysql) Limit(statement string, limit int, offset int) string {
	if limit > 0 {
		statement += fmt.Sprintf(" LIMIT %d", limit)
	} else if offset > 0 {
		// MySQL has no OFFSET without LIMIT
		statement += " LIMIT 18446744073709551615"
	}
	if offset > 0 {
		statement += fmt.Sprintf(" OFFSET %d", offset)
	}
	return statement
}

type sqlite struct{}

func (sqlite) Name() string {
	return "sqlite3"
}

func (sqlite) QuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func (sqlite) Limit(statement string, limit int, offset int) string {
	if limit > 0 {
		statement += fmt.Sprintf(" LIMIT %d", limit)
	} else if offset > 0 {
		statement += " LIMIT -1"
	}
	if offset > 0 {
		statement += fmt.Sprintf(" OFFSET %d", offset)
	}
	return statement
}

type sqlserver struct{}

func (sqlserver) Name() string {
	return "sqlserver"
}

func (sqlserver) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// SQL Server uses TOP for a plain limit and OFFSET/FETCH (2012+) otherwise.
// OFFSET requires an ORDER BY.
func (sqlserver) Limit(statement string, limit int, offset int) string {
	if offset <= 0 {
		if limit > 0 {
			statement = strings.Replace(statement, "SELECT", fmt.Sprintf("SELECT TOP %d", limit), 1)
		}
		return statement
	}

	if !strings.Contains(strings.ToUpper(statement), "ORDER BY") {
		statement += " ORDER BY (SELECT NULL)"
	}
	statement += fmt.Sprintf(" OFFSET %d ROWS", offset)
	if limit > 0 {
		statement += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", limit)
	}
	return statement
}
