// Package frame holds query results in memory as Arrow tables with named,
// ordered columns and an optional index column.
package frame

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	mapset "github.com/deckarep/golang-set"
)

// Row maps column names to the values of one row.
type Row map[string]any

// Frame is an immutable table. Operations that reshape it return a new
// Frame sharing the underlying column data.
type Frame struct {
	table arrow.Table
	index string
}

// New wraps an Arrow table. The frame takes over the caller's reference.
func New(table arrow.Table) *Frame {
	return &Frame{table: table}
}

// FromRecords builds a frame from row-major values, inferring one Arrow
// type per column from its first non-null value.
func FromRecords(columns []string, rows [][]any) (*Frame, error) {
	values := make([][]any, len(columns))
	for i := range values {
		values[i] = make([]any, 0, len(rows))
	}
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d columns", ErrRowLength, r, len(row), len(columns))
		}
		for c, v := range row {
			values[c] = append(values[c], v)
		}
	}

	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		fields[i] = arrow.Field{Name: name, Type: inferType(values[i]), Nullable: true}
	}

	table, err := buildTable(memory.DefaultAllocator, fields, values, len(rows), nil)
	if err != nil {
		return nil, err
	}
	return New(table), nil
}

// Table returns the underlying table, index column included.
func (f *Frame) Table() arrow.Table {
	return f.table
}

// Release drops the frame's reference to its table.
func (f *Frame) Release() {
	if f.table != nil {
		f.table.Release()
	}
}

func (f *Frame) NumRows() int {
	return int(f.table.NumRows())
}

func (f *Frame) NumCols() int {
	return len(f.Columns())
}

// Columns returns the data column names in order. The index column is not
// a data column.
func (f *Frame) Columns() []string {
	fields := f.table.Schema().Fields()
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		if f.index != "" && field.Name == f.index {
			continue
		}
		names = append(names, field.Name)
	}
	return names
}

// IndexName returns the name of the index column, or "" for a positional
// index.
func (f *Frame) IndexName() string {
	return f.index
}

// Index returns the index label of every row. Without an index column the
// labels are the row positions.
func (f *Frame) Index() []any {
	labels := make([]any, f.NumRows())
	pos := f.position(f.index)
	for i := range labels {
		if pos < 0 {
			labels[i] = int64(i)
		} else {
			labels[i] = chunkedValue(f.table.Column(pos).Data(), i)
		}
	}
	return labels
}

// Metadata returns the schema metadata as a map.
func (f *Frame) Metadata() map[string]string {
	md := f.table.Schema().Metadata()
	result := make(map[string]string, md.Len())
	for i, key := range md.Keys() {
		result[key] = md.Values()[i]
	}
	return result
}

// Value returns a single cell.
func (f *Frame) Value(row int, column string) (any, error) {
	if row < 0 || row >= f.NumRows() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	pos := f.dataPosition(column)
	if pos < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	return chunkedValue(f.table.Column(pos).Data(), row), nil
}

// Row returns the data columns of one row.
func (f *Frame) Row(i int) (Row, error) {
	if i < 0 || i >= f.NumRows() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRow, i)
	}
	return f.row(i, f.columnPositions()), nil
}

// Rows iterates the rows in order. Each range over the sequence starts
// again from the first row.
func (f *Frame) Rows() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		positions := f.columnPositions()
		for i := 0; i < f.NumRows(); i++ {
			if !yield(i, f.row(i, positions)) {
				return
			}
		}
	}
}

// Column returns all values of a data column.
func (f *Frame) Column(name string) ([]any, error) {
	pos := f.dataPosition(name)
	if pos < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	data := f.table.Column(pos).Data()
	values := make([]any, f.NumRows())
	for i := range values {
		values[i] = chunkedValue(data, i)
	}
	return values, nil
}

// Select returns a frame with exactly the given data columns in the given
// order, plus the index column. Every missing column is named in the error.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	if err := f.requireColumns(columns); err != nil {
		return nil, err
	}

	positions := make([]int, 0, len(columns)+1)
	if f.index != "" {
		positions = append(positions, f.position(f.index))
	}
	for _, name := range columns {
		positions = append(positions, f.dataPosition(name))
	}
	return f.project(positions, f.index), nil
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%d rows, columns: %s)", f.NumRows(), strings.Join(f.Columns(), ", "))
}

func (f *Frame) requireColumns(columns []string) error {
	available := mapset.NewSet()
	for _, name := range f.Columns() {
		available.Add(name)
	}
	requested := mapset.NewSet()
	for _, name := range columns {
		requested.Add(name)
	}

	missing := requested.Difference(available)
	if missing.Cardinality() == 0 {
		return nil
	}

	names := make([]string, 0, missing.Cardinality())
	for _, name := range missing.ToSlice() {
		names = append(names, name.(string))
	}
	sort.Strings(names)
	return fmt.Errorf("%w: %s", ErrColumnNotFound, strings.Join(names, ", "))
}

// project builds a table from columns at the given schema positions.
func (f *Frame) project(positions []int, index string) *Frame {
	schema := f.table.Schema()
	fields := make([]arrow.Field, len(positions))
	columns := make([]arrow.Column, len(positions))
	for i, pos := range positions {
		fields[i] = schema.Field(pos)
		columns[i] = *f.table.Column(pos)
	}

	md := schema.Metadata()
	table := array.NewTable(arrow.NewSchema(fields, &md), columns, f.table.NumRows())
	return &Frame{table: table, index: index}
}

func (f *Frame) row(i int, positions map[string]int) Row {
	row := make(Row, len(positions))
	for name, pos := range positions {
		row[name] = chunkedValue(f.table.Column(pos).Data(), i)
	}
	return row
}

func (f *Frame) columnPositions() map[string]int {
	columns := f.Columns()
	positions := make(map[string]int, len(columns))
	for _, name := range columns {
		positions[name] = f.dataPosition(name)
	}
	return positions
}

// position returns the schema position of any column, index included.
func (f *Frame) position(name string) int {
	if name == "" {
		return -1
	}
	indices := f.table.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return -1
	}
	return indices[0]
}

// dataPosition returns the schema position of a data column.
func (f *Frame) dataPosition(name string) int {
	if name == f.index {
		return -1
	}
	return f.position(name)
}

// retained returns a frame over the same table with another index.
func (f *Frame) retained(index string) *Frame {
	f.table.Retain()
	return &Frame{table: f.table, index: index}
}

func (f *Frame) hasColumn(name string) bool {
	return slices.Contains(f.Columns(), name)
}
