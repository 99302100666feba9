package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/config"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/logger"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/manager"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/store"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/dashboard"
	"github.com/Karan96Kaushik/gen-grafana-ai/pkg/types"
)

// errInvalid makes the command exit non-zero after the report was printed.
var errInvalid = errors.New("dashboard has validation errors")

type options struct {
	configFile string
	dbPath     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "dashctl",
		Short: "Repair, validate and store Grafana dashboards",
		Long: `dashctl works on Grafana dashboard JSON files, including LLM output that
is not strictly valid JSON (code fences, comments, trailing commas, single
quotes, truncated brackets).

Pass "-" or no file to read from stdin.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", os.Getenv(config.EnvConfigFile), "YAML config file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "dashboard database path (default: store.path from config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	root.AddCommand(
		newParseCmd(),
		newValidateCmd(),
		newLayoutCmd(),
		newMergeCmd(),
		newImportCmd(opts),
		newListCmd(opts),
	)
	return root
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Recover and normalize a dashboard, printing the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, report, err := loadInput(cmd, args)
			if err != nil {
				return err
			}
			printReport(cmd.ErrOrStderr(), report)
			return writeJSON(cmd.OutOrStdout(), d)
		},
	}
}

func newValidateCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a dashboard; with --fix print the fixed dashboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			m, warnings, err := dashboard.Parse(text)
			if err != nil {
				return err
			}
			d := dashboard.FromMap(m)

			var report dashboard.Report
			if fix {
				report = dashboard.ValidateAndFix(d)
			} else {
				report = dashboard.Validate(d)
			}
			report.Warnings = append(warnings, report.Warnings...)

			if fix {
				printReport(cmd.ErrOrStderr(), report)
				if err := writeJSON(cmd.OutOrStdout(), d); err != nil {
					return err
				}
			} else if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.OK {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "apply automatic fixes and print the fixed dashboard")
	return cmd
}

func newLayoutCmd() *cobra.Command {
	var columns int
	cmd := &cobra.Command{
		Use:   "layout [file]",
		Short: "Arrange all panels into an equal-tile grid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if columns < 1 || columns > dashboard.GridColumns {
				return fmt.Errorf("--columns must be between 1 and %d", dashboard.GridColumns)
			}
			d, report, err := loadInput(cmd, args)
			if err != nil {
				return err
			}
			d.AutoLayout(columns)
			after := dashboard.ValidateAndFix(d)
			report.Warnings = append(report.Warnings, after.Warnings...)
			report.Errors, report.OK = after.Errors, after.OK
			printReport(cmd.ErrOrStderr(), report)
			return writeJSON(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().IntVar(&columns, "columns", dashboard.DefaultColumns, "panels per row")
	return cmd
}

func newMergeCmd() *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "merge <base> <other>",
		Short: "Merge two dashboards (append, replace or merge by title)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := dashboard.ParseMergeStrategy(strategy)
			if err != nil {
				return err
			}
			base, baseReport, err := dashboard.LoadFile(args[0])
			if err != nil {
				return err
			}
			other, otherReport, err := dashboard.LoadFile(args[1])
			if err != nil {
				return err
			}
			merged, warnings, err := dashboard.Merge(base, other, st)
			if err != nil {
				return err
			}
			report := dashboard.ValidateAndFix(merged)
			report.Warnings = append(append(append(baseReport.Warnings, otherReport.Warnings...), warnings...), report.Warnings...)
			printReport(cmd.ErrOrStderr(), report)
			return writeJSON(cmd.OutOrStdout(), merged)
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", string(dashboard.MergeAppend), "append, replace or merge")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var slug string
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Normalize dashboards and save them to the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if slug != "" && len(args) > 1 {
				return fmt.Errorf("--slug can only be used with a single file")
			}
			log, st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			mgr := manager.New(log, st, nil, manager.Options{})
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			var saved []types.DashboardSummary
			for _, path := range args {
				d, report, err := dashboard.LoadFile(path)
				if err != nil {
					return err
				}
				printReport(cmd.ErrOrStderr(), report)
				res, err := mgr.Save(ctx, d, slug)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				saved = append(saved, types.DashboardSummary{
					ID:      res.ID,
					Slug:    res.Slug,
					UID:     d.UID,
					Title:   d.Title,
					Tags:    d.Tags,
					Version: res.Version,
				})
			}
			return writeJSON(cmd.OutOrStdout(), saved)
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "storage key (default: derived from the title)")
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored dashboards, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			records, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]types.DashboardSummary, 0, len(records))
			for _, r := range records {
				out = append(out, types.DashboardSummary{
					ID:        r.ID,
					Slug:      r.Slug,
					UID:       r.UID,
					Title:     r.Title,
					Tags:      r.Tags,
					Version:   r.Version,
					UpdatedAt: r.Updated.UTC().Format(time.RFC3339),
				})
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func (o *options) openStore() (*zap.Logger, *store.Store, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewLogger(logger.LogLevel(o.logLevel))
	if err != nil {
		return nil, nil, err
	}
	path := cfg.Store.Path
	if o.dbPath != "" {
		path = o.dbPath
	}
	st, err := store.Open(log, path, cfg.Store.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	return log, st, nil
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read dashboard file: %w", err)
	}
	return string(data), nil
}

func loadInput(cmd *cobra.Command, args []string) (*dashboard.Dashboard, dashboard.Report, error) {
	text, err := readInput(cmd, args)
	if err != nil {
		return nil, dashboard.Report{}, err
	}
	return dashboard.LoadText(text)
}

func printReport(w io.Writer, r dashboard.Report) {
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

