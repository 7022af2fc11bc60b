package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/thrustmig/internal/ir"
	"github.com/roach88/thrustmig/internal/store"
)

// LatestRun selects the most recent run in --run.
const LatestRun = "latest"

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database    string
	RunID       string // run id or LatestRun; empty lists all runs
	Diagnostics bool   // only unsupported outcomes
}

// RunReport is the detail of one recorded run.
type RunReport struct {
	Run      ir.Run             `json:"run"`
	Rewrites []ir.RewriteRecord `json:"rewrites"`
	Features []ir.FeatureRecord `json:"features"`
}

// RunsReport lists every recorded run.
type RunsReport struct {
	Runs     []store.RunSummary   `json:"runs"`
	Features []store.FeatureTotal `json:"features"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Query the migration log",
		Long: `Read runs back from a migration log written by "thrustmig rewrite --db".

Without --run, lists every run with its outcome counts and how many runs
used each helper feature. With --run, shows the recorded outcomes and
feature first uses of one run ("latest" for the most recent).

Examples:
  thrustmig report --db ./mig.db
  thrustmig report --db ./mig.db --run latest
  thrustmig report --db ./mig.db --run 0192... --diagnostics --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite migration log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", `run id to show, or "latest"`)
	cmd.Flags().BoolVar(&opts.Diagnostics, "diagnostics", false, "show only unsupported outcomes")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.OpenExisting(opts.Database)
	if errors.Is(err, store.ErrNoLog) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.RunID == "" {
		return reportRuns(ctx, st, formatter)
	}
	return reportRun(ctx, st, opts, formatter)
}

func reportRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return databaseError(formatter, err)
	}
	totals, err := st.FeatureTotals(ctx)
	if err != nil {
		return databaseError(formatter, err)
	}

	if formatter.JSON() {
		return formatter.Success(RunsReport{Runs: runs, Features: totals})
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "Runs (%d):\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(w, "  %d  %s  %s  %d rewritten, %d unsupported, %d features\n",
			r.Seq, r.ID, r.Unit, r.Rewritten, r.Unsupported, r.Features)
	}
	if len(totals) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Features:")
		for _, t := range totals {
			fmt.Fprintf(w, "  %-22s %d run(s)\n", t.Feature, t.Runs)
		}
	}
	return nil
}

func reportRun(ctx context.Context, st *store.Store, opts *ReportOptions, formatter *OutputFormatter) error {
	var (
		run ir.Run
		err error
	)
	if opts.RunID == LatestRun {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, opts.RunID)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return databaseError(formatter, err)
	}

	report := RunReport{Run: run}
	if opts.Diagnostics {
		report.Rewrites, err = st.ReadDiagnostics(ctx, run.ID)
	} else {
		report.Rewrites, err = st.ReadRewrites(ctx, run.ID)
	}
	if err != nil {
		return databaseError(formatter, err)
	}
	if report.Features, err = st.ReadFeatures(ctx, run.ID); err != nil {
		return databaseError(formatter, err)
	}

	if formatter.JSON() {
		return formatter.Success(report)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (#%d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "  unit:   %s\n", run.Unit)
	fmt.Fprintf(w, "  rules:  %s\n", run.RulesHash)
	fmt.Fprintf(w, "  engine: %s\n", run.EngineVersion)
	fmt.Fprintln(w)

	if len(report.Rewrites) == 0 {
		fmt.Fprintln(w, "No outcomes recorded.")
	}
	for _, rec := range report.Rewrites {
		if rec.Kind == ir.OutcomeRewritten {
			fmt.Fprintf(w, "  [%d] ✓ %s  %s\n", rec.Seq, rec.Location, rec.Text)
			continue
		}
		fmt.Fprintf(w, "  [%d] ✗ %s  [%s] %s\n", rec.Seq, rec.Location, rec.DiagCode, rec.DiagMsg)
	}

	if len(report.Features) > 0 {
		names := make([]string, len(report.Features))
		for i, f := range report.Features {
			names[i] = string(f.Feature)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Features: %s\n", strings.Join(names, ", "))
	}
	return nil
}

func databaseError(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to read migration log", err)
}
