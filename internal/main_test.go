package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redframe/redpanda/internal/config"
	"github.com/redframe/redpanda/internal/format"
	"github.com/redframe/redpanda/query"
)

func TestFrameText(t *testing.T) {
	urlStr := setupDb(t)

	stdout, stderr, err := run(FrameOptions{URL: urlStr, Queries: []string{"SELECT id, email FROM users ORDER BY id"}, Format: "text"})
	require.NoError(t, err)
	assert.Contains(t, stderr, "Loading 1 statement...")
	assert.Contains(t, stdout, "result: 2 rows, 2 columns")
	assert.Contains(t, stdout, "test@example.org")
}

func TestFrameJSON(t *testing.T) {
	urlStr := setupDb(t)

	opts := FrameOptions{
		URL:      urlStr,
		Queries:  []string{"SELECT id, email FROM users WHERE id >= :min ORDER BY id"},
		Params:   query.Params{"min": 2},
		IndexCol: "id",
		Format:   "json",
	}
	stdout, _, err := run(opts)
	require.NoError(t, err)

	var entries []format.JSONEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "result", entries[0].Name)
	assert.Equal(t, "id", entries[0].Index)
	assert.Equal(t, []string{"email"}, entries[0].Columns)
	assert.Equal(t, []map[string]any{{"id": 2.0, "email": "other@example.org"}}, entries[0].Rows)
}

func TestFrameParallel(t *testing.T) {
	urlStr := setupDb(t)

	opts := FrameOptions{
		URL:       urlStr,
		Queries:   []string{"SELECT email FROM users ORDER BY id", "SELECT COUNT(*) AS n FROM users"},
		Format:    "json",
		Processes: 2,
	}
	stdout, stderr, err := run(opts)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Loading 2 statements...")

	var entries []format.JSONEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "query1", entries[0].Name)
	assert.Equal(t, []string{"email"}, entries[0].Columns)
	assert.Equal(t, "query2", entries[1].Name)
	assert.Equal(t, []map[string]any{{"n": 2.0}}, entries[1].Rows)
}

func TestFrameHead(t *testing.T) {
	urlStr := setupDb(t)

	stdout, _, err := run(FrameOptions{URL: urlStr, Queries: []string{"SELECT id FROM users ORDER BY id"}, Head: 1, Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", stdout)
}

func TestFrameColumns(t *testing.T) {
	urlStr := setupDb(t)

	stdout, _, err := run(FrameOptions{URL: urlStr, Queries: []string{"SELECT id, email FROM users ORDER BY id"}, Columns: []string{"email"}, Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "email\ntest@example.org\nother@example.org\n", stdout)

	_, _, err = run(FrameOptions{URL: urlStr, Queries: []string{"SELECT id FROM users"}, Columns: []string{"email"}, Format: "csv"})
	assert.ErrorContains(t, err, "query 1: column not found: email")
}

func TestFrameOutput(t *testing.T) {
	urlStr := setupDb(t)
	fs := afero.NewMemMapFs()
	previous := config.AppFs
	config.AppFs = fs
	defer func() { config.AppFs = previous }()

	stdout, stderr, err := run(FrameOptions{URL: urlStr, Queries: []string{"SELECT id FROM users ORDER BY id"}, Format: "csv", Output: "users.csv"})
	require.NoError(t, err)
	assert.Equal(t, "", stdout)
	assert.Contains(t, stderr, "Wrote 1 frame to users.csv")

	data, err := afero.ReadFile(fs, "users.csv")
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n2\n", string(data))
}

func TestFrameVerbose(t *testing.T) {
	urlStr := setupDb(t)

	_, stderr, err := run(FrameOptions{URL: urlStr, Queries: []string{"SELECT id FROM users"}, Format: "csv", Verbose: true})
	require.NoError(t, err)
	assert.Contains(t, stderr, "msg=connected")
	assert.Contains(t, stderr, "msg=\"loaded frame\"")
}

func TestFrameErrors(t *testing.T) {
	urlStr := setupDb(t)

	_, _, err := run(FrameOptions{URL: urlStr, Queries: []string{"SELECT 1"}, Format: "bad"})
	assert.ErrorContains(t, err, "Invalid format: bad")
	assert.ErrorContains(t, err, "Valid formats are csv, json, parquet, text")

	_, _, err = run(FrameOptions{Queries: []string{"SELECT 1"}, Format: "text"})
	assert.ErrorIs(t, err, ErrNoURL)

	_, _, err = run(FrameOptions{URL: urlStr, Format: "text"})
	assert.ErrorIs(t, err, ErrNoQuery)

	_, _, err = run(FrameOptions{URL: urlStr, Queries: []string{"SELECT * FROM nope"}, Format: "text"})
	assert.ErrorContains(t, err, "no such table")

	_, _, err = run(FrameOptions{URL: urlStr, Queries: []string{"SELECT 1", "SELECT 2"}, Format: "parquet"})
	assert.ErrorIs(t, err, format.ErrSingleFrame)

	_, _, err = run(FrameOptions{URL: "hello://", Queries: []string{"SELECT 1"}, Format: "text"})
	assert.ErrorContains(t, err, "unknown database scheme")
}

func TestTables(t *testing.T) {
	urlStr := setupDb(t)

	var stdout, stderr bytes.Buffer
	err := Tables(context.Background(), urlStr, false, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "Found 1 table")
	assert.Equal(t, "users\n", stdout.String())
}

// helpers

func run(opts FrameOptions) (string, string, error) {
	color.NoColor = true
	var stdout, stderr bytes.Buffer
	err := Main(context.Background(), opts, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func setupDb(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "test.sqlite3")
	db, err := sqlx.Connect("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	db.MustExec("CREATE TABLE users (id integer PRIMARY KEY, email text)")
	db.MustExec("INSERT INTO users (id, email) VALUES (1, 'test@example.org'), (2, 'other@example.org')")
	return fmt.Sprintf("sqlite://%s", path)
}
