package format

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/redframe/redpanda/frame"
)

var ErrSingleFrame = errors.New("parquet output holds a single frame")

// Formatter defines the interface used to deliver frames to the end user.
type Formatter interface {
	// AddFrame is called once for every loaded frame.
	//
	// This function should be safe for concurrent use.
	AddFrame(name string, f *frame.Frame) error

	// Flush is called when the formatter should finish outputing any data it
	// may have buffered.
	Flush() error
}

// FormatterFactory
type FormatterFactory func(io.Writer) Formatter

// Formatters holds available formatters
var Formatters = map[string]FormatterFactory{
	"text":    NewTextFormatter,
	"json":    NewJSONFormatter,
	"csv":     NewCSVFormatter,
	"parquet": NewParquetFormatter,
}

// Names returns the formatter names in order.
func Names() []string {
	names := make([]string, 0, len(Formatters))
	for name := range Formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TextFormatter prints each frame as a table.
type TextFormatter struct {
	sync.Mutex
	io.Writer
}

func NewTextFormatter(out io.Writer) Formatter {
	return &TextFormatter{
		Writer: out,
	}
}

func (f *TextFormatter) AddFrame(name string, fr *frame.Frame) error {
	f.Lock()
	defer f.Unlock()

	yellow := color.New(color.FgYellow).SprintFunc()
	description := fmt.Sprintf("%s, %s", Pluralize(fr.NumRows(), "row"), Pluralize(fr.NumCols(), "column"))
	fmt.Fprintf(f.Writer, "%s %s\n", yellow(name+":"), description)

	header := header(fr)
	if len(header) == 0 {
		fmt.Fprintln(f.Writer, "")
		return nil
	}

	data := pterm.TableData{header}
	for _, record := range records(fr) {
		line := make([]string, len(header))
		for i, column := range header {
			if record[column] == nil {
				line[i] = "NULL"
			} else {
				line[i] = cell(record[column])
			}
		}
		data = append(data, line)
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(f.Writer, table)
	fmt.Fprintln(f.Writer, "")
	return nil
}

func (f *TextFormatter) Flush() error { return nil }

// JSONFormatter prints the result as a JSON array.
type JSONFormatter struct {
	sync.Mutex

	entries []interface{}
	encoder *json.Encoder
}

func NewJSONFormatter(out io.Writer) Formatter {
	return &JSONFormatter{
		entries: make([]interface{}, 0),
		encoder: json.NewEncoder(out),
	}
}

type JSONEntry struct {
	Name    string           `json:"name"`
	Index   string           `json:"index,omitempty"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

func (f *JSONFormatter) AddFrame(name string, fr *frame.Frame) error {
	f.Lock()
	defer f.Unlock()

	f.entries = append(f.entries, JSONEntry{
		Name:    name,
		Index:   fr.IndexName(),
		Columns: fr.Columns(),
		Rows:    records(fr),
	})
	return nil
}

func (f *JSONFormatter) Flush() error {
	return f.encoder.Encode(&f.entries)
}

// CSVFormatter writes a header line and the rows of every frame. Frames
// are separated by an empty line.
type CSVFormatter struct {
	sync.Mutex

	out    io.Writer
	writer *csv.Writer
	count  int
}

func NewCSVFormatter(out io.Writer) Formatter {
	return &CSVFormatter{
		out:    out,
		writer: csv.NewWriter(out),
	}
}

func (f *CSVFormatter) AddFrame(name string, fr *frame.Frame) error {
	f.Lock()
	defer f.Unlock()

	if f.count > 0 {
		f.writer.Flush()
		fmt.Fprintln(f.out, "")
	}
	f.count++

	header := header(fr)
	if err := f.writer.Write(header); err != nil {
		return err
	}
	for _, record := range records(fr) {
		line := make([]string, len(header))
		for i, column := range header {
			line[i] = stringify(record[column])
		}
		if err := f.writer.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (f *CSVFormatter) Flush() error {
	f.writer.Flush()
	return f.writer.Error()
}

// ParquetFormatter writes one frame as a Snappy-compressed Parquet file.
type ParquetFormatter struct {
	sync.Mutex

	out   io.Writer
	table arrow.Table
}

func NewParquetFormatter(out io.Writer) Formatter {
	return &ParquetFormatter{
		out: out,
	}
}

func (f *ParquetFormatter) AddFrame(name string, fr *frame.Frame) error {
	f.Lock()
	defer f.Unlock()

	if f.table != nil {
		return ErrSingleFrame
	}
	f.table = fr.Table()
	f.table.Retain()
	return nil
}

func (f *ParquetFormatter) Flush() error {
	f.Lock()
	defer f.Unlock()

	if f.table == nil {
		return nil
	}
	defer f.table.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(f.table.Schema(), f.out, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if err := writer.WriteTable(f.table, max(f.table.NumRows(), 1)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	return writer.Close()
}

// header lists the index column, if any, followed by the data columns.
func header(fr *frame.Frame) []string {
	columns := fr.Columns()
	if fr.IndexName() == "" {
		return columns
	}
	return append([]string{fr.IndexName()}, columns...)
}

// records returns every row with the index value under the index name.
func records(fr *frame.Frame) []map[string]any {
	index := fr.Index()
	result := make([]map[string]any, 0, fr.NumRows())
	for i, row := range fr.Rows() {
		record := map[string]any(row)
		if fr.IndexName() != "" {
			record[fr.IndexName()] = index[i]
		}
		result = append(result, record)
	}
	return result
}

func cell(v any) string {
	return space.ReplaceAllString(strings.TrimSpace(stringify(v)), " ")
}
