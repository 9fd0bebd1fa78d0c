package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	"github.com/redframe/redpanda"
	"github.com/redframe/redpanda/engine"
	"github.com/redframe/redpanda/frame"
	"github.com/redframe/redpanda/internal/config"
	"github.com/redframe/redpanda/internal/format"
	"github.com/redframe/redpanda/internal/s3"
	"github.com/redframe/redpanda/query"
)

var (
	ErrNoURL   = errors.New("no database url given (pass one or set DATABASE_URL)")
	ErrNoQuery = errors.New("no query given (use --query)")
)

type FrameOptions struct {
	URL         string
	Queries     []string
	Params      query.Params
	Columns     []string
	IndexCol    string
	ParseDates  []string
	CoerceFloat bool
	Head        int
	Format      string
	Output      string
	Processes   int
	Verbose     bool
}

// Main loads every query into a frame and writes the frames in the chosen
// format, to stdout unless an output path or s3:// URL is given.
func Main(ctx context.Context, opts FrameOptions, stdout io.Writer, stderr io.Writer) error {
	newFormatter, found := format.Formatters[opts.Format]
	if !found {
		return fmt.Errorf("Invalid format: %s\nValid formats are %s", opts.Format, strings.Join(format.Names(), ", "))
	}
	if opts.URL == "" {
		return ErrNoURL
	}
	if len(opts.Queries) == 0 {
		return ErrNoQuery
	}
	if color.NoColor {
		pterm.DisableStyling()
	}

	logger := newLogger(stderr, opts.Verbose)

	db, err := engine.Open(opts.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Debug("connected", "url", engine.Redact(opts.URL), "driver", db.DriverName())

	fmt.Fprintf(stderr, "Loading %s...\n\n", format.Pluralize(len(opts.Queries), "statement"))

	readOptions := frame.ReadOptions{
		Columns:     opts.Columns,
		IndexCol:    opts.IndexCol,
		ParseDates:  opts.ParseDates,
		CoerceFloat: opts.CoerceFloat,
	}

	var transformations []frame.Transformation
	if opts.Head > 0 {
		transformations = append(transformations, frame.Head(opts.Head))
	}

	frames := make([]*frame.Frame, len(opts.Queries))
	defer func() {
		for _, f := range frames {
			if f != nil {
				f.Release()
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Processes, 1))

	for i, statement := range opts.Queries {
		g.Go(func() error {
			start := time.Now()
			logger.Debug("loading frame", "query", i+1, "statement", statement)

			adapter := redpanda.New[frame.Row](db, query.Raw(statement, opts.Params), readOptions)
			f, err := adapter.Frame(gctx, transformations...)
			if err != nil {
				return fmt.Errorf("query %d: %w", i+1, err)
			}
			frames[i] = f

			logger.Debug("loaded frame", "query", i+1, "rows", f.NumRows(), "duration", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var buf bytes.Buffer
	out := stdout
	if opts.Output != "" {
		out = &buf
	}

	formatter := newFormatter(out)
	for i, f := range frames {
		if err := formatter.AddFrame(frameName(i, len(frames)), f); err != nil {
			return err
		}
	}
	if err := formatter.Flush(); err != nil {
		return err
	}

	if opts.Output != "" {
		if err := save(ctx, opts.Output, &buf); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Wrote %s to %s\n", format.Pluralize(len(frames), "frame"), opts.Output)
	}

	return nil
}

// Tables lists the tables of the database.
func Tables(ctx context.Context, urlStr string, verbose bool, stdout io.Writer, stderr io.Writer) error {
	if urlStr == "" {
		return ErrNoURL
	}

	logger := newLogger(stderr, verbose)

	db, err := engine.Open(urlStr)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Debug("connected", "url", engine.Redact(urlStr), "driver", db.DriverName())

	tables, err := engine.Tables(ctx, db)
	if err != nil {
		return err
	}

	if len(tables) == 0 {
		fmt.Fprintln(stderr, "Found no tables")
		return nil
	}

	fmt.Fprintf(stderr, "Found %s\n\n", format.Pluralize(len(tables), "table"))
	for _, table := range tables {
		fmt.Fprintln(stdout, table.DisplayName())
	}
	return nil
}

func save(ctx context.Context, output string, buf *bytes.Buffer) error {
	if s3.IsURL(output) {
		client, err := s3.NewClient(ctx)
		if err != nil {
			return err
		}
		return s3.Upload(ctx, client, output, buf)
	}

	file, err := config.AppFs.Create(output)
	if err != nil {
		return err
	}
	if _, err := buf.WriteTo(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func newLogger(stderr io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

func frameName(i int, count int) string {
	if count == 1 {
		return "result"
	}
	return fmt.Sprintf("query%d", i+1)
}
