// Package redpanda loads the results of a query into an Arrow-backed frame
// and turns frame rows back into mapped structs.
//
// An Adapter holds an entity type, an engine, a query and the options for
// the loader:
//
//	type User struct {
//		ID   int64  `db:"id"`
//		Name string `db:"name"`
//	}
//
//	a := redpanda.New[User](db, query.Raw("SELECT id, name FROM users WHERE id > :min", query.Params{"min": 10}), frame.ReadOptions{})
//	f, err := a.Frame(ctx, frame.Head(100))
//	...
//	for user, err := range a.Parse(f) {
//		...
//	}
package redpanda

import (
	"context"
	"iter"
	"reflect"

	"github.com/jmoiron/sqlx"

	"github.com/redframe/redpanda/dialect"
	"github.com/redframe/redpanda/frame"
	"github.com/redframe/redpanda/internal/fields"
	"github.com/redframe/redpanda/query"
)

// Adapter runs one query into frames and parses frames into T. It holds no
// mutable state; calls are independent of each other.
type Adapter[T any] struct {
	db      *sqlx.DB
	query   query.Query
	options frame.ReadOptions
	fields  []fields.Field
}

// New returns an adapter for the query. Nothing is executed until Frame.
func New[T any](db *sqlx.DB, q query.Query, opts frame.ReadOptions) *Adapter[T] {
	return &Adapter[T]{
		db:      db,
		query:   q,
		options: opts,
		fields:  fields.Of(reflect.TypeFor[T]()),
	}
}

// Of returns an adapter selecting every mapped column of T from T's table.
func Of[T any](db *sqlx.DB, opts frame.ReadOptions) *Adapter[T] {
	return New[T](db, query.Model[T](), opts)
}

func (a *Adapter[T]) DB() *sqlx.DB {
	return a.db
}

func (a *Adapter[T]) Query() query.Query {
	return a.query
}

// Options returns a copy of the loader options.
func (a *Adapter[T]) Options() frame.ReadOptions {
	return a.options.Clone()
}

// Frame executes the query and returns the result after projecting it onto
// the Columns option and applying the transformations in order. Every call
// runs the query again. Errors are returned as the collaborator raised them.
func (a *Adapter[T]) Frame(ctx context.Context, transformations ...frame.Transformation) (*frame.Frame, error) {
	statement, params, err := dialect.StatementAndParams(a.db, a.query)
	if err != nil {
		return nil, err
	}

	opts := a.options.Merge(frame.ReadOptions{Params: params})

	f, err := frame.ReadSQL(ctx, a.db, statement, opts)
	if err != nil {
		return nil, err
	}

	if a.options.Columns != nil {
		selected, err := f.Select(a.options.Columns...)
		f.Release()
		if err != nil {
			return nil, err
		}
		f = selected
	}

	return frame.Pipe(f, transformations...)
}

// Parse yields one T per row of f, in row order. The sequence is lazy: a
// row is converted only when the consumer asks for it, and the first error
// ends the sequence. Ranging again starts over from the first row.
func (a *Adapter[T]) Parse(f *frame.Frame) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if f == nil || f.NumRows() == 0 {
			return
		}

		if err := a.checkFields(f); err != nil {
			var zero T
			yield(zero, err)
			return
		}

		for i, row := range f.Rows() {
			entity, err := a.construct(i, row)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(entity, nil) {
				return
			}
		}
	}
}

// ParseAll collects Parse into a slice, stopping at the first error.
func (a *Adapter[T]) ParseAll(f *frame.Frame) ([]T, error) {
	entities := []T{}
	for entity, err := range a.Parse(f) {
		if err != nil {
			return entities, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
