package frame

import (
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/cast"
)

var timestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// databaseType maps a driver's column type name to an Arrow type. It returns
// nil when the name says nothing useful, and the values decide instead.
func databaseType(name string, coerceFloat bool) arrow.DataType {
	name = strings.ToUpper(strings.TrimSpace(name))
	if i := strings.Index(name, "("); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	name = strings.TrimPrefix(name, "UNSIGNED ")

	switch name {
	case "":
		return nil
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT",
		"INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL", "SMALLSERIAL":
		return arrow.PrimitiveTypes.Int64
	case "REAL", "FLOAT", "DOUBLE", "DOUBLE PRECISION", "FLOAT4", "FLOAT8":
		return arrow.PrimitiveTypes.Float64
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		if coerceFloat {
			return arrow.PrimitiveTypes.Float64
		}
		return arrow.BinaryTypes.String
	case "BOOL", "BOOLEAN", "BIT":
		return arrow.FixedWidthTypes.Boolean
	case "DATE", "DATETIME", "DATETIME2", "SMALLDATETIME", "DATETIMEOFFSET",
		"TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE", "TIMESTAMP WITHOUT TIME ZONE":
		return timestampType
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BYTEA", "BINARY", "VARBINARY", "IMAGE":
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// inferType picks a column type from the first non-null value.
func inferType(values []any) arrow.DataType {
	for _, v := range values {
		switch v.(type) {
		case nil:
			continue
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return arrow.PrimitiveTypes.Int64
		case float32, float64:
			return arrow.PrimitiveTypes.Float64
		case bool:
			return arrow.FixedWidthTypes.Boolean
		case time.Time:
			return timestampType
		default:
			return arrow.BinaryTypes.String
		}
	}
	return arrow.BinaryTypes.String
}

// buildTable builds a single-chunk table from column-major values.
func buildTable(mem memory.Allocator, fields []arrow.Field, values [][]any, rows int, md *arrow.Metadata) (arrow.Table, error) {
	schema := arrow.NewSchema(fields, md)

	columns := make([]arrow.Column, 0, len(fields))
	defer func() {
		for i := range columns {
			columns[i].Release()
		}
	}()

	for i, field := range fields {
		arr, err := buildArray(mem, field.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", field.Name, err)
		}
		chunked := arrow.NewChunked(field.Type, []arrow.Array{arr})
		arr.Release()
		columns = append(columns, *arrow.NewColumn(field, chunked))
		chunked.Release()
	}

	return array.NewTable(schema, columns, int64(rows)), nil
}

func buildArray(mem memory.Allocator, dtype arrow.DataType, values []any) (arrow.Array, error) {
	builder := array.NewBuilder(mem, dtype)
	defer builder.Release()

	builder.Reserve(len(values))
	for row, v := range values {
		if err := appendValue(builder, v); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
	}
	return builder.NewArray(), nil
}

// appendValue converts v to the builder's type. Drivers hand back text
// protocols as []byte, so bytes are read as strings for every non-binary
// column.
func appendValue(builder array.Builder, v any) error {
	if v == nil {
		builder.AppendNull()
		return nil
	}

	switch b := builder.(type) {
	case *array.Int64Builder:
		n, err := cast.ToInt64E(text(v))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		b.Append(n)
	case *array.Float64Builder:
		f, err := cast.ToFloat64E(text(v))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		b.Append(f)
	case *array.BooleanBuilder:
		// BIT(1) arrives as a single raw byte
		if bit, ok := v.([]byte); ok && len(bit) == 1 && bit[0] <= 1 {
			b.Append(bit[0] == 1)
			return nil
		}
		bl, err := cast.ToBoolE(text(v))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		b.Append(bl)
	case *array.StringBuilder:
		s, err := toString(v)
		if err != nil {
			return err
		}
		b.Append(s)
	case *array.BinaryBuilder:
		switch bin := v.(type) {
		case []byte:
			b.Append(bin)
		case string:
			b.Append([]byte(bin))
		default:
			s, err := toString(v)
			if err != nil {
				return err
			}
			b.Append([]byte(s))
		}
	case *array.TimestampBuilder:
		t, err := cast.ToTimeE(text(v))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		ts, err := arrow.TimestampFromTime(t.UTC(), b.Type().(*arrow.TimestampType).Unit)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		b.Append(ts)
	case *array.Date32Builder:
		t, err := cast.ToTimeE(text(v))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		b.Append(arrow.Date32FromTime(t))
	default:
		s, err := toString(v)
		if err != nil {
			return err
		}
		return builder.AppendValueFromString(s)
	}
	return nil
}

func text(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case []byte:
		return string(s), nil
	case time.Time:
		return s.Format(time.RFC3339Nano), nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v), nil
	}
	return s, nil
}

// arrayValue returns the Go value at position i. Integers widen to int64,
// floats to float64, and temporal types become time.Time.
func arrayValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}

	switch a := arr.(type) {
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return uint64(a.Value(i))
	case *array.Uint16:
		return uint64(a.Value(i))
	case *array.Uint32:
		return uint64(a.Value(i))
	case *array.Uint64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Binary:
		return append([]byte(nil), a.Value(i)...)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Date64:
		return a.Value(i).ToTime()
	case *array.Decimal128:
		scale := a.DataType().(*arrow.Decimal128Type).Scale
		return a.Value(i).ToString(scale)
	default:
		return arr.ValueStr(i)
	}
}

// chunkedValue returns the value at row across the chunks of a column.
func chunkedValue(chunked *arrow.Chunked, row int) any {
	for _, chunk := range chunked.Chunks() {
		if row < chunk.Len() {
			return arrayValue(chunk, row)
		}
		row -= chunk.Len()
	}
	return nil
}
