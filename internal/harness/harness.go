package harness

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/roach88/thrustmig/internal/engine"
	"github.com/roach88/thrustmig/internal/ir"
	"github.com/roach88/thrustmig/internal/sites"
	"github.com/roach88/thrustmig/internal/store"
	"github.com/roach88/thrustmig/internal/testutil"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// fixed run ID, so traces are reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Build the registry (built-in or the scenario's rules file)
// 3. Migrate the scenario's sites through the engine, recording to the store
// 4. Read the run back from the store into the trace
// 5. Check per-site expectations and assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	reg, err := loadRegistry(scenario.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	opts, err := engineOptions(scenario)
	if err != nil {
		return nil, err
	}
	eng := engine.New(reg, opts...)

	unit := scenario.Unit
	if unit == "" {
		unit = scenario.Name + ".cu"
	}
	callSites := buildSites(scenario, unit)

	report, err := eng.Migrate(ctx, unit, callSites, st)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	result := NewResult()
	result.RunID = report.RunID
	result.Features = append(result.Features, report.Features...)
	for _, s := range report.Skipped {
		result.Skipped = append(result.Skipped, s.Callee)
	}

	if err := readTrace(ctx, st, report.RunID, result); err != nil {
		return nil, err
	}

	checkExpectations(scenario, callSites, report, result)

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// loadRegistry returns the built-in registry, or one compiled from path.
func loadRegistry(path string) (*engine.Registry, error) {
	if path == "" {
		return engine.DefaultRegistry()
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return engine.LoadRegistry(string(src), path)
}

// engineOptions translates scenario options into engine options.
func engineOptions(scenario *Scenario) ([]engine.Option, error) {
	opts := []engine.Option{
		engine.WithRunIDGenerator(testutil.NewFixedRunID(scenario.RunID)),
	}

	o := scenario.Options
	if o.HelperNamespace != "" {
		opts = append(opts, engine.WithHelperNamespace(o.HelperNamespace))
	}
	if o.Queue != "" {
		opts = append(opts, engine.WithQueueAccessor(engine.StaticQueue(o.Queue)))
	}
	style, err := engine.ParseGuardStyle(o.GuardStyle)
	if err != nil {
		return nil, fmt.Errorf("options.guard_style: %w", err)
	}
	opts = append(opts, engine.WithGuardStyle(style))

	return opts, nil
}

// buildSites copies the scenario's sites, filling in a range for sites
// that give none (line i+1 of the unit) and merging scenario flags.
func buildSites(scenario *Scenario, unit string) []*ir.CallSite {
	out := make([]*ir.CallSite, len(scenario.Sites))
	for i, step := range scenario.Sites {
		site := step.CallSite
		if site.Range == (ir.SourceRange{}) {
			site.Range = ir.SourceRange{
				Offset: (i + 1) * 100,
				Length: len(site.Text),
				Line:   i + 1,
				Column: 1,
			}
		}
		if site.Range.File == "" {
			site.Range.File = unit
		}
		site.Flags = sites.MergeFlags(site.Flags, scenario.Flags)
		out[i] = &site
	}
	return out
}

// readTrace reads the run's rewrites and feature uses from the store and
// merges them into the trace by seq.
func readTrace(ctx context.Context, st *store.Store, runID string, result *Result) error {
	rewrites, err := st.ReadRewrites(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to read rewrites: %w", err)
	}
	features, err := st.ReadFeatures(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to read features: %w", err)
	}

	i, j := 0, 0
	for i < len(rewrites) || j < len(features) {
		if j >= len(features) || (i < len(rewrites) && rewrites[i].Seq < features[j].Seq) {
			result.AddRewriteTrace(rewrites[i])
			i++
			continue
		}
		result.AddFeatureTrace(features[j])
		j++
	}
	return nil
}

// checkExpectations compares each site's outcome with its expect clause.
func checkExpectations(scenario *Scenario, callSites []*ir.CallSite, report *engine.Report, result *Result) {
	bySite := make(map[*ir.CallSite]ir.Outcome, len(report.Outcomes))
	for _, o := range report.Outcomes {
		bySite[o.Site] = o
	}

	for i, step := range scenario.Sites {
		exp := step.Expect
		if exp == nil {
			continue
		}
		site := callSites[i]
		at := fmt.Sprintf("sites[%d] %s at %s", i, site.Callee, site.Range.Location())

		out, ok := bySite[site]
		if exp.Skipped {
			if ok {
				result.AddError(fmt.Sprintf("%s: expected skipped, got %s", at, out.Kind))
			}
			continue
		}
		if !ok {
			result.AddError(fmt.Sprintf("%s: expected %s, site was skipped", at, exp.Kind))
			continue
		}

		if string(out.Kind) != exp.Kind {
			result.AddError(fmt.Sprintf("%s: expected kind %s, got %s", at, exp.Kind, out.Kind))
		}
		if exp.Text != "" && out.Text != exp.Text {
			result.AddError(fmt.Sprintf("%s: text mismatch\n  Expected: %s\n  Actual: %s", at, exp.Text, out.Text))
		}
		if exp.Features != nil && !slices.Equal(out.Features, exp.Features) {
			result.AddError(fmt.Sprintf("%s: expected features %v, got %v", at, exp.Features, out.Features))
		}
		var code string
		if out.Diagnostic != nil {
			code = out.Diagnostic.Code
		}
		if exp.Diagnostic != "" && code != exp.Diagnostic {
			result.AddError(fmt.Sprintf("%s: expected diagnostic %s, got %q", at, exp.Diagnostic, code))
		}
	}
}
