package redpanda

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"

	"github.com/redframe/redpanda/frame"
	"github.com/redframe/redpanda/internal/fields"
)

var (
	// ErrMissingField is returned when a frame has no column for a field.
	ErrMissingField = errors.New("missing field")

	// ErrFieldType is returned when a value does not fit its field.
	ErrFieldType = errors.New("cannot assign value to field")

	// ErrUnsupportedEntity is returned for entity types that are neither
	// structs nor string-keyed maps.
	ErrUnsupportedEntity = errors.New("unsupported entity type")
)

// Validator is implemented by entities that check themselves once all
// fields are set. A failed validation ends Parse.
type Validator interface {
	Validate() error
}

var timeType = reflect.TypeFor[time.Time]()

func rowError(row int, err error) error {
	return fmt.Errorf("row %d: %w", row, err)
}

func (a *Adapter[T]) checkFields(f *frame.Frame) error {
	t := entityType[T]()
	switch t.Kind() {
	case reflect.Struct:
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return fmt.Errorf("%w: %s", ErrUnsupportedEntity, t)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedEntity, t)
	}

	columns := make(map[string]bool)
	for _, name := range f.Columns() {
		columns[name] = true
	}
	for _, field := range a.fields {
		if !columns[field.Column] {
			return rowError(0, fmt.Errorf("%w: %s.%s (column %q)", ErrMissingField, t.Name(), field.Name, field.Column))
		}
	}
	return nil
}

// construct builds the entity of row i. T may be a struct, a pointer to a
// struct, or a map keyed by column name. Mapping errors carry the row
// number; errors from Validate are returned as they are.
func (a *Adapter[T]) construct(i int, row frame.Row) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()

	target := reflect.New(entityType[T]()).Elem()
	if target.Kind() == reflect.Map {
		m := reflect.MakeMapWithSize(target.Type(), len(row))
		for name, value := range row {
			v, err := convert(target.Type().Elem(), value)
			if err != nil {
				return zero, rowError(i, fmt.Errorf("%s: %w", name, err))
			}
			m.SetMapIndex(reflect.ValueOf(name).Convert(target.Type().Key()), v)
		}
		target.Set(m)
	} else {
		for _, field := range a.fields {
			dst := fields.ByIndex(target, field.Index)
			if err := assign(dst, row[field.Column]); err != nil {
				return zero, rowError(i, fmt.Errorf("%s: %w", field.Name, err))
			}
		}
	}

	if v, ok := target.Addr().Interface().(Validator); ok {
		if err := v.Validate(); err != nil {
			return zero, err
		}
	}

	if t.Kind() == reflect.Pointer {
		return target.Addr().Interface().(T), nil
	}
	return target.Interface().(T), nil
}

func entityType[T any]() reflect.Type {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

func convert(t reflect.Type, value any) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	if err := assign(v, value); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

// assign stores a frame value in dst. Nulls leave the zero value, and
// sql.Scanner fields scan the value themselves.
func assign(dst reflect.Value, value any) error {
	if dst.CanAddr() {
		if scanner, ok := dst.Addr().Interface().(sql.Scanner); ok {
			if err := scanner.Scan(value); err != nil {
				return fmt.Errorf("%w: %v", ErrFieldType, err)
			}
			return nil
		}
	}

	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.Kind() == reflect.Pointer {
		ptr := reflect.New(dst.Type().Elem())
		if err := assign(ptr.Elem(), value); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	}

	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	var err error
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		if n, err = cast.ToInt64E(value); err == nil {
			if dst.OverflowInt(n) {
				return fmt.Errorf("%w: %d overflows %s", ErrFieldType, n, dst.Type())
			}
			dst.SetInt(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		if n, err = cast.ToUint64E(value); err == nil {
			if dst.OverflowUint(n) {
				return fmt.Errorf("%w: %d overflows %s", ErrFieldType, n, dst.Type())
			}
			dst.SetUint(n)
		}
	case reflect.Float32, reflect.Float64:
		var f float64
		if f, err = cast.ToFloat64E(value); err == nil {
			dst.SetFloat(f)
		}
	case reflect.Bool:
		var b bool
		if b, err = cast.ToBoolE(value); err == nil {
			dst.SetBool(b)
		}
	case reflect.String:
		var s string
		if b, ok := value.([]byte); ok {
			s = string(b)
		} else {
			s, err = cast.ToStringE(value)
		}
		if err == nil {
			dst.SetString(s)
		}
	case reflect.Interface:
		if src.Type().Implements(dst.Type()) {
			dst.Set(src)
			return nil
		}
		err = fmt.Errorf("%s does not implement %s", src.Type(), dst.Type())
	default:
		if dst.Type() == timeType {
			var t time.Time
			if t, err = cast.ToTimeE(value); err == nil {
				dst.Set(reflect.ValueOf(t))
			}
		} else if src.Type().ConvertibleTo(dst.Type()) {
			dst.Set(src.Convert(dst.Type()))
		} else {
			err = fmt.Errorf("%s into %s", src.Type(), dst.Type())
		}
	}

	if err != nil {
		return fmt.Errorf("%w: %v", ErrFieldType, err)
	}
	return nil
}
