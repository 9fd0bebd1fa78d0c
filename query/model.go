package query

import (
	"reflect"

	"github.com/redframe/redpanda/internal/fields"
)

// Tabler is implemented by entity types that name their own table.
type Tabler interface {
	TableName() string
}

// Model returns a SELECT of every mapped column of T from T's table.
func Model[T any]() SelectQuery {
	t := reflect.TypeFor[T]()
	return Select(TableName[T]()).Columns(fields.Columns(t)...)
}

// TableName returns the table of T: its TableName method if it has one,
// the snake_cased type name otherwise.
func TableName[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	// a fresh *T has both value and pointer receiver methods
	if tabler, ok := reflect.New(t).Interface().(Tabler); ok {
		return tabler.TableName()
	}
	return fields.Snake(t.Name())
}
