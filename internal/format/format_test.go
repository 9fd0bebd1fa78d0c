package format

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redframe/redpanda/frame"
)

func TestText(t *testing.T) {
	color.NoColor = true
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var out bytes.Buffer
	formatter := NewTextFormatter(&out)
	require.NoError(t, formatter.AddFrame("users", users(t)))
	require.NoError(t, formatter.Flush())

	assert.Contains(t, out.String(), "users: 2 rows, 2 columns")
	assert.Contains(t, out.String(), "id")
	assert.Contains(t, out.String(), "x")
	assert.Contains(t, out.String(), "NULL")
}

func TestJSON(t *testing.T) {
	f, err := frame.SetIndex("id")(users(t))
	require.NoError(t, err)

	var out bytes.Buffer
	formatter := NewJSONFormatter(&out)
	require.NoError(t, formatter.AddFrame("users", f))
	require.NoError(t, formatter.Flush())

	var entries []JSONEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "users", entries[0].Name)
	assert.Equal(t, "id", entries[0].Index)
	assert.Equal(t, []string{"name"}, entries[0].Columns)
	assert.Equal(t, []map[string]any{{"id": 1.0, "name": "x"}, {"id": 2.0, "name": nil}}, entries[0].Rows)
}

func TestJSONEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewJSONFormatter(&out).Flush())
	assert.Equal(t, "[]\n", out.String())
}

func TestCSV(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	f, err := frame.FromRecords([]string{"name", "created_at"}, [][]any{{"a, b", created}})
	require.NoError(t, err)

	var out bytes.Buffer
	formatter := NewCSVFormatter(&out)
	require.NoError(t, formatter.AddFrame("first", users(t)))
	require.NoError(t, formatter.AddFrame("second", f))
	require.NoError(t, formatter.Flush())

	assert.Equal(t, "id,name\n1,x\n2,\n\nname,created_at\n\"a, b\",2024-01-02T03:04:05Z\n", out.String())
}

func TestParquet(t *testing.T) {
	var out bytes.Buffer
	formatter := NewParquetFormatter(&out)
	require.NoError(t, formatter.AddFrame("users", users(t)))
	assert.ErrorIs(t, formatter.AddFrame("again", users(t)), ErrSingleFrame)
	require.NoError(t, formatter.Flush())

	pf, err := file.NewParquetReader(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	require.NoError(t, err)

	table, err := reader.ReadTable(context.Background())
	require.NoError(t, err)
	defer table.Release()

	assert.Equal(t, int64(2), table.NumRows())
	assert.Equal(t, "id", table.Schema().Field(0).Name)
	assert.Equal(t, "name", table.Schema().Field(1).Name)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "parquet", "text"}, Names())
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "1 row", Pluralize(1, "row"))
	assert.Equal(t, "0 rows", Pluralize(0, "row"))
	assert.Equal(t, "2 indices", Pluralize(2, "index"))
	assert.Equal(t, "3 matches", Pluralize(3, "match"))
}

// helpers

func users(t *testing.T) *frame.Frame {
	f, err := frame.FromRecords([]string{"id", "name"}, [][]any{{1, "x"}, {2, nil}})
	require.NoError(t, err)
	t.Cleanup(f.Release)
	return f
}
