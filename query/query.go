// Package query describes SQL statements before they are rendered for a
// particular database.
//
// Statements use sqlx named parameters (:name). A literal colon, such as a
// PostgreSQL cast, is written as a double colon in the query text.
package query

import (
	"errors"
	"maps"
	"strings"
)

var (
	ErrEmptyQuery = errors.New("query is empty")
	ErrNoTable    = errors.New("query has no table")
)

// Params holds named query parameters.
type Params map[string]any

// Dialect renders the vendor-specific parts of a statement.
type Dialect interface {
	Name() string
	QuoteIdent(name string) string
	Limit(statement string, limit int, offset int) string
}

// Query is a statement that can be rendered for a dialect.
type Query interface {
	Render(d Dialect) (string, Params, error)
}

type raw struct {
	statement string
	params    Params
}

// Raw wraps literal SQL. The statement is rendered the same for every
// dialect.
func Raw(statement string, params Params) Query {
	return raw{statement: statement, params: maps.Clone(params)}
}

func (r raw) Render(Dialect) (string, Params, error) {
	if strings.TrimSpace(r.statement) == "" {
		return "", nil, ErrEmptyQuery
	}
	params := maps.Clone(r.params)
	if params == nil {
		params = Params{}
	}
	return r.statement, params, nil
}

func (r raw) String() string {
	return r.statement
}
