package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/thrustmig/internal/engine"
	"github.com/roach88/thrustmig/internal/ir"
	"github.com/roach88/thrustmig/internal/sites"
	"github.com/roach88/thrustmig/internal/store"
)

// RewriteOptions holds flags for the rewrite command.
type RewriteOptions struct {
	*RootOptions
	RulesDir        string
	Database        string
	Queue           string
	GuardStyle      string
	HelperNamespace string
	Unified         bool
	ExtDPLAPI       bool
	Jobs            int
	Strict          bool

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// SiteResult is the outcome of one call site as printed by rewrite.
type SiteResult struct {
	Callee     string         `json:"callee"`
	Location   string         `json:"location"`
	Kind       ir.OutcomeKind `json:"kind"`
	Text       string         `json:"text"`
	Features   []ir.Feature   `json:"features,omitempty"`
	Diagnostic *ir.Diagnostic `json:"diagnostic,omitempty"`
}

// UnitResult is the migration of one call-site file.
type UnitResult struct {
	Path        string               `json:"path"`
	RunID       string               `json:"run_id"`
	Unit        string               `json:"unit"`
	RulesHash   string               `json:"rules_hash"`
	Sites       []SiteResult         `json:"sites"`
	Features    []ir.Feature         `json:"features"`
	Skipped     []engine.SkippedSite `json:"skipped,omitempty"`
	Rewritten   int                  `json:"rewritten"`
	Unsupported int                  `json:"unsupported"`
}

// RewriteResult holds the rewrite command output.
type RewriteResult struct {
	Units       []UnitResult `json:"units"`
	Rewritten   int          `json:"rewritten"`
	Unsupported int          `json:"unsupported"`
	Skipped     int          `json:"skipped"`
}

// NewRewriteCommand creates the rewrite command.
func NewRewriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RewriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rewrite <sites.yaml>...",
		Short: "Rewrite the call sites of translation units",
		Long: `Rewrite Thrust call sites into oneDPL calls.

Each argument is a call-site file describing one translation unit. Units
are migrated concurrently (--jobs), each as its own run. With --db every
run is recorded in a SQLite migration log that "thrustmig report" reads.

--unified and --ext-dpl-api override the flags of every site when given
explicitly; otherwise the file and site flags apply.

Exit codes:
  0 - All units migrated
  1 - Unsupported call sites remain and --strict is set
  2 - Command error (unreadable rules or site files, database errors)

Examples:
  thrustmig rewrite kernel.yaml
  thrustmig rewrite --db ./mig.db --jobs 8 units/*.yaml
  thrustmig rewrite --guard-style statement --queue q_ct1 kernel.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesDir, "rules", "", "CUE rule table directory (default: built-in)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite migration log (optional)")
	cmd.Flags().StringVar(&opts.Queue, "queue", "", "device queue expression (default: <helper-namespace>get_in_order_queue())")
	cmd.Flags().StringVar(&opts.GuardStyle, "guard-style", "expression", "device pointer dispatch form (expression|statement)")
	cmd.Flags().StringVar(&opts.HelperNamespace, "helper-namespace", engine.DefaultHelperNamespace, "namespace prefix of helper functions")
	cmd.Flags().BoolVar(&opts.Unified, "unified", false, "treat every unit as using unified addressing")
	cmd.Flags().BoolVar(&opts.ExtDPLAPI, "ext-dpl-api", false, "enable rules that need the extended oneDPL API")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", runtime.NumCPU(), "units migrated concurrently")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 1 when any call site is unsupported")

	return cmd
}

func runRewrite(opts *RewriteOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Jobs < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--jobs must be at least 1, got %d", opts.Jobs))
	}

	engineOpts, err := opts.engineOptions()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid options", err)
	}

	reg, err := LoadRegistry(opts.RulesDir)
	if err != nil {
		code, message := loadErrorParts(err)
		_ = formatter.Error(code, message, nil)
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	eng := engine.New(reg, engineOpts...)

	files := make([]*sites.File, len(paths))
	for i, path := range paths {
		f, err := sites.Load(path)
		if err != nil {
			_ = formatter.Error(ErrCodeSiteFile, err.Error(), map[string]string{"path": path})
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", path), err)
		}
		opts.applyOverrides(cmd, f)
		files[i] = f
	}

	var rec engine.Recorder
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		rec = st
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports := make([]*engine.Report, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for i, f := range files {
		formatter.VerboseLog("Migrating %s (%d sites)", paths[i], len(f.Sites))
		g.Go(func() error {
			report, err := eng.Migrate(gctx, f.Unit, f.Sites, rec)
			if err != nil {
				return fmt.Errorf("%s: %w", paths[i], err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "migration failed", err)
	}

	result := buildRewriteResult(paths, reports)
	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printRewriteResult(formatter, result)
	}

	if opts.Strict && result.Unsupported > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d unsupported call site(s)", result.Unsupported))
	}
	return nil
}

func (opts *RewriteOptions) engineOptions() ([]engine.Option, error) {
	style, err := engine.ParseGuardStyle(opts.GuardStyle)
	if err != nil {
		return nil, err
	}

	engineOpts := []engine.Option{
		engine.WithGuardStyle(style),
		engine.WithHelperNamespace(opts.HelperNamespace),
	}
	if opts.Queue != "" {
		engineOpts = append(engineOpts, engine.WithQueueAccessor(engine.StaticQueue(opts.Queue)))
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	return engineOpts, nil
}

// applyOverrides sets the context flags given explicitly on the command
// line on every site of f.
func (opts *RewriteOptions) applyOverrides(cmd *cobra.Command, f *sites.File) {
	unified := cmd.Flags().Changed("unified")
	ext := cmd.Flags().Changed("ext-dpl-api")
	if !unified && !ext {
		return
	}
	for _, s := range f.Sites {
		if unified {
			s.Flags.UnifiedAddressing = opts.Unified
		}
		if ext {
			s.Flags.ExtDPLAPI = opts.ExtDPLAPI
		}
	}
}

func buildRewriteResult(paths []string, reports []*engine.Report) RewriteResult {
	result := RewriteResult{Units: make([]UnitResult, len(reports))}
	for i, r := range reports {
		unit := UnitResult{
			Path:        paths[i],
			RunID:       r.RunID,
			Unit:        r.Unit,
			RulesHash:   r.RulesHash,
			Sites:       make([]SiteResult, len(r.Outcomes)),
			Features:    r.Features,
			Skipped:     r.Skipped,
			Rewritten:   r.Rewritten,
			Unsupported: r.Unsupported,
		}
		if unit.Features == nil {
			unit.Features = []ir.Feature{}
		}
		for j, o := range r.Outcomes {
			unit.Sites[j] = SiteResult{
				Kind:       o.Kind,
				Text:       o.Text,
				Features:   o.Features,
				Diagnostic: o.Diagnostic,
			}
			if o.Site != nil {
				unit.Sites[j].Callee = o.Site.Callee
				unit.Sites[j].Location = o.Site.Range.Location()
			}
		}
		result.Units[i] = unit
		result.Rewritten += r.Rewritten
		result.Unsupported += r.Unsupported
		result.Skipped += len(r.Skipped)
	}
	return result
}

func printRewriteResult(formatter *OutputFormatter, result RewriteResult) {
	w := formatter.Writer
	for _, u := range result.Units {
		fmt.Fprintf(w, "%s (run %s)\n", u.Unit, u.RunID)
		for _, s := range u.Sites {
			if s.Kind == ir.OutcomeRewritten {
				fmt.Fprintf(w, "  ✓ %s  %s\n", s.Location, s.Text)
				continue
			}
			if s.Diagnostic != nil {
				fmt.Fprintf(w, "  ✗ %s  [%s] %s\n", s.Location, s.Diagnostic.Code, s.Diagnostic.Message)
				continue
			}
			fmt.Fprintf(w, "  ✗ %s  %s\n", s.Location, s.Callee)
		}
		for _, s := range u.Skipped {
			fmt.Fprintf(w, "  - %s  %s (no rules)\n", s.Location, s.Callee)
		}
		if len(u.Features) > 0 {
			names := make([]string, len(u.Features))
			for i, f := range u.Features {
				names[i] = string(f)
			}
			fmt.Fprintf(w, "  features: %s\n", strings.Join(names, ", "))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d unit(s): %d rewritten, %d unsupported, %d skipped\n",
		len(result.Units), result.Rewritten, result.Unsupported, result.Skipped)
}
