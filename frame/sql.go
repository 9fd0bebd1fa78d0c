package frame

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	mapset "github.com/deckarep/golang-set"
	"github.com/jmoiron/sqlx"

	"github.com/redframe/redpanda/query"
)

// ReadSQL runs a statement with named parameters and loads the whole result
// into a frame. Options other than Columns are applied while loading.
func ReadSQL(ctx context.Context, db *sqlx.DB, statement string, opts ReadOptions) (*Frame, error) {
	bound, args, err := bind(db, statement, opts.Params)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryxContext(ctx, bound, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	// read everything first so untyped columns can be inferred from values
	values := make([][]any, len(cols))
	count := 0
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		for i, v := range row {
			values[i] = append(values[i], v)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	parseDates := mapset.NewSet()
	for _, name := range opts.ParseDates {
		parseDates.Add(name)
	}

	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		dtype := databaseType(col.DatabaseTypeName(), opts.CoerceFloat)
		if parseDates.Contains(col.Name()) {
			dtype = timestampType
		}
		if dtype == nil {
			dtype = inferType(values[i])
		}
		fields[i] = arrow.Field{Name: col.Name(), Type: dtype, Nullable: true}
		if values[i] == nil {
			values[i] = []any{}
		}
	}

	table, err := buildTable(memory.DefaultAllocator, fields, values, count, opts.metadata())
	if err != nil {
		return nil, err
	}
	f := New(table)

	if opts.IndexCol != "" {
		if !f.hasColumn(opts.IndexCol) {
			f.Release()
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, opts.IndexCol)
		}
		f.index = opts.IndexCol
	}

	return f, nil
}

// bind expands named parameters and slices for IN lists, then rewrites the
// placeholders for the driver. Every statement goes through the named
// parameter compiler, so a double colon reads the same with or without
// params.
func bind(db *sqlx.DB, statement string, params query.Params) (string, []any, error) {
	if params == nil {
		params = query.Params{}
	}

	named, args, err := sqlx.Named(statement, map[string]any(params))
	if err != nil {
		return "", nil, err
	}
	if len(args) == 0 {
		return named, nil, nil
	}
	expanded, args, err := sqlx.In(named, args...)
	if err != nil {
		return "", nil, err
	}
	return db.Rebind(expanded), args, nil
}
