package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redframe/redpanda/internal"
	"github.com/redframe/redpanda/internal/config"
	"github.com/redframe/redpanda/query"
)

// NewRootCmd returns the redpanda command with its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "redpanda",
		Short:        "Load query results into frames",
		Long:         "Run SQL queries against a database and print the results as frames",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("format", "text", "Export format")
	rootCmd.PersistentFlags().String("output", "", "Write to a file or an s3:// URL instead of stdout")
	rootCmd.PersistentFlags().Int("processes", 1, "Processes")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log debug information")

	rootCmd.AddCommand(newFrameCmd(), newTablesCmd())
	return rootCmd
}

func newFrameCmd() *cobra.Command {
	frameCmd := &cobra.Command{
		Use:   "frame [connection-uri]",
		Short: "Load the results of queries into frames",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Processes < 1 {
				return errors.New("Processes must be positive")
			}

			queries, err := cmd.Flags().GetStringArray("query")
			if err != nil {
				log.Fatal(err)
			}

			paramArgs, err := cmd.Flags().GetStringArray("param")
			if err != nil {
				log.Fatal(err)
			}
			params, err := parseParams(paramArgs)
			if err != nil {
				return err
			}

			var columns []string
			if cmd.Flags().Changed("columns") {
				columns, err = cmd.Flags().GetStringSlice("columns")
				if err != nil {
					log.Fatal(err)
				}
			}

			indexCol, err := cmd.Flags().GetString("index-col")
			if err != nil {
				log.Fatal(err)
			}

			parseDates, err := cmd.Flags().GetStringSlice("parse-dates")
			if err != nil {
				log.Fatal(err)
			}

			coerceFloat, err := cmd.Flags().GetBool("coerce-float")
			if err != nil {
				log.Fatal(err)
			}

			head, err := cmd.Flags().GetInt("head")
			if err != nil {
				log.Fatal(err)
			}
			if head < 0 {
				return errors.New("Head must not be negative")
			}

			opts := internal.FrameOptions{
				URL:         connectionURL(args, cfg),
				Queries:     queries,
				Params:      params,
				Columns:     columns,
				IndexCol:    indexCol,
				ParseDates:  parseDates,
				CoerceFloat: coerceFloat,
				Head:        head,
				Format:      cfg.Format,
				Output:      cfg.Output,
				Processes:   cfg.Processes,
				Verbose:     cfg.Verbose,
			}
			return internal.Main(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	frameCmd.Flags().StringArrayP("query", "q", nil, "SQL statement to load (repeatable)")
	frameCmd.Flags().StringArrayP("param", "p", nil, "Named parameter as name=value (repeatable)")
	frameCmd.Flags().StringSlice("columns", nil, "Columns to keep, in order")
	frameCmd.Flags().String("index-col", "", "Column to use as the index")
	frameCmd.Flags().StringSlice("parse-dates", nil, "Columns to parse as timestamps")
	frameCmd.Flags().Bool("coerce-float", false, "Load decimal columns as floats")
	frameCmd.Flags().Int("head", 0, "Keep only the first n rows")

	return frameCmd
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables [connection-uri]",
		Short: "List the tables of a database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return internal.Tables(cmd.Context(), connectionURL(args, cfg), cfg.Verbose, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func connectionURL(args []string, cfg *config.Config) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.DatabaseURL
}

func parseParams(args []string) (query.Params, error) {
	params := query.Params{}
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("Invalid param: %s\nParams are given as name=value", arg)
		}
		params[name] = value
	}
	return params, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := NewRootCmd()
	rootCmd.SilenceErrors = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
