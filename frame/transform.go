package frame

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	mapset "github.com/deckarep/golang-set"
)

// Transformation maps one frame to another. It must not modify its input.
type Transformation func(*Frame) (*Frame, error)

// Pipe threads f through the transformations from left to right and
// returns the first error unchanged.
func Pipe(f *Frame, transformations ...Transformation) (*Frame, error) {
	for _, transform := range transformations {
		next, err := transform(f)
		if err != nil {
			return nil, err
		}
		f = next
	}
	return f, nil
}

// Head keeps the first n rows.
func Head(n int) Transformation {
	return func(f *Frame) (*Frame, error) {
		end := min(max(int64(n), 0), f.table.NumRows())
		return f.slice(0, end), nil
	}
}

// Rename renames columns, the index column included. Names that are not
// in the frame are ignored.
func Rename(names map[string]string) Transformation {
	return func(f *Frame) (*Frame, error) {
		schema := f.table.Schema()
		fields := make([]arrow.Field, schema.NumFields())
		columns := make([]arrow.Column, schema.NumFields())
		defer func() {
			for i := range columns {
				columns[i].Release()
			}
		}()

		for i, field := range schema.Fields() {
			if name, ok := names[field.Name]; ok {
				field.Name = name
			}
			fields[i] = field
			columns[i] = *arrow.NewColumn(field, f.table.Column(i).Data())
		}

		index := f.index
		if name, ok := names[index]; ok && index != "" {
			index = name
		}

		md := schema.Metadata()
		table := array.NewTable(arrow.NewSchema(fields, &md), columns, f.table.NumRows())
		return &Frame{table: table, index: index}, nil
	}
}

// Drop removes data columns.
func Drop(columns ...string) Transformation {
	return func(f *Frame) (*Frame, error) {
		if err := f.requireColumns(columns); err != nil {
			return nil, err
		}
		dropped := mapset.NewSet()
		for _, name := range columns {
			dropped.Add(name)
		}

		positions := []int{}
		for i, field := range f.table.Schema().Fields() {
			if field.Name != f.index && dropped.Contains(field.Name) {
				continue
			}
			positions = append(positions, i)
		}
		return f.project(positions, f.index), nil
	}
}

// SetIndex makes a data column the index column.
func SetIndex(column string) Transformation {
	return func(f *Frame) (*Frame, error) {
		if !f.hasColumn(column) {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
		}
		return f.retained(column), nil
	}
}

// ResetIndex turns the index column back into a data column.
func ResetIndex() Transformation {
	return func(f *Frame) (*Frame, error) {
		return f.retained(""), nil
	}
}

// Filter keeps the rows for which keep returns true.
func Filter(keep func(Row) bool) Transformation {
	return func(f *Frame) (*Frame, error) {
		rows := []int{}
		for i, row := range f.Rows() {
			if keep(row) {
				rows = append(rows, i)
			}
		}
		return f.take(rows)
	}
}

// slice returns rows [i, j) without copying column data.
func (f *Frame) slice(i, j int64) *Frame {
	schema := f.table.Schema()
	columns := make([]arrow.Column, schema.NumFields())
	defer func() {
		for c := range columns {
			columns[c].Release()
		}
	}()

	for c, field := range schema.Fields() {
		chunks := []arrow.Array{}
		offset := int64(0)
		for _, chunk := range f.table.Column(c).Data().Chunks() {
			length := int64(chunk.Len())
			lo := max(i-offset, 0)
			hi := min(j-offset, length)
			if lo < hi {
				chunks = append(chunks, array.NewSlice(chunk, lo, hi))
			}
			offset += length
		}

		chunked := arrow.NewChunked(field.Type, chunks)
		for _, chunk := range chunks {
			chunk.Release()
		}
		columns[c] = *arrow.NewColumn(field, chunked)
		chunked.Release()
	}

	table := array.NewTable(schema, columns, j-i)
	return &Frame{table: table, index: f.index}
}

// take copies the given rows, in the given order, into a new frame.
func (f *Frame) take(rows []int) (*Frame, error) {
	schema := f.table.Schema()
	values := make([][]any, schema.NumFields())
	for c := range values {
		data := f.table.Column(c).Data()
		values[c] = make([]any, len(rows))
		for r, row := range rows {
			values[c][r] = chunkedValue(data, row)
		}
	}

	md := schema.Metadata()
	table, err := buildTable(memory.DefaultAllocator, schema.Fields(), values, len(rows), &md)
	if err != nil {
		return nil, err
	}
	return &Frame{table: table, index: f.index}, nil
}
