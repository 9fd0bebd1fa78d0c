package query

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

type order struct {
	column string
	desc   bool
}

// SelectQuery builds a SELECT statement. Every method returns a modified
// copy, so a SelectQuery can be shared and extended freely.
type SelectQuery struct {
	table      string
	columns    []string
	conditions []string
	params     Params
	orders     []order
	limit      int
	offset     int
}

func Select(table string) SelectQuery {
	return SelectQuery{table: table}
}

func (q SelectQuery) Columns(columns ...string) SelectQuery {
	q.columns = append(slices.Clone(q.columns), columns...)
	return q
}

// Where adds a condition joined with AND. The expression is used verbatim
// and may reference named parameters; a parameter given again by a later
// call replaces the earlier value.
func (q SelectQuery) Where(expr string, params Params) SelectQuery {
	q.conditions = append(slices.Clone(q.conditions), expr)
	merged := maps.Clone(q.params)
	if merged == nil {
		merged = Params{}
	}
	maps.Copy(merged, params)
	q.params = merged
	return q
}

func (q SelectQuery) OrderBy(column string, desc bool) SelectQuery {
	q.orders = append(slices.Clone(q.orders), order{column: column, desc: desc})
	return q
}

func (q SelectQuery) Limit(n int) SelectQuery {
	q.limit = n
	return q
}

func (q SelectQuery) Offset(n int) SelectQuery {
	q.offset = n
	return q
}

func (q SelectQuery) Table() string {
	return q.table
}

func (q SelectQuery) Render(d Dialect) (string, Params, error) {
	if q.table == "" {
		return "", nil, ErrNoTable
	}

	var parts []string

	if len(q.columns) == 0 {
		parts = append(parts, "SELECT *")
	} else {
		quoted := make([]string, len(q.columns))
		for i, col := range q.columns {
			quoted[i] = d.QuoteIdent(col)
		}
		parts = append(parts, "SELECT "+strings.Join(quoted, ", "))
	}

	parts = append(parts, "FROM "+quoteQualified(d, q.table))

	if len(q.conditions) > 0 {
		wrapped := make([]string, len(q.conditions))
		for i, cond := range q.conditions {
			wrapped[i] = "(" + cond + ")"
		}
		parts = append(parts, "WHERE "+strings.Join(wrapped, " AND "))
	}

	if len(q.orders) > 0 {
		orderParts := make([]string, len(q.orders))
		for i, o := range q.orders {
			direction := "ASC"
			if o.desc {
				direction = "DESC"
			}
			orderParts[i] = fmt.Sprintf("%s %s", d.QuoteIdent(o.column), direction)
		}
		parts = append(parts, "ORDER BY "+strings.Join(orderParts, ", "))
	}

	statement := d.Limit(strings.Join(parts, " "), q.limit, q.offset)

	params := maps.Clone(q.params)
	if params == nil {
		params = Params{}
	}
	return statement, params, nil
}

// schema-qualified names are quoted part by part
func quoteQualified(d Dialect, name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = d.QuoteIdent(part)
	}
	return strings.Join(parts, ".")
}
