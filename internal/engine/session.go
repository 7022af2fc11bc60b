package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/thrustmig/internal/ir"
)

// Recorder persists a migration run. Implemented by store.Store.
// Record calls for one run arrive from a single goroutine in sequence
// order.
type Recorder interface {
	WriteRun(ctx context.Context, run ir.Run) error
	RecordRewrite(ctx context.Context, rec ir.RewriteRecord) error
	RecordFeature(ctx context.Context, rec ir.FeatureRecord) error
}

// SkippedSite is a call site a run left alone because no rules exist for
// its callee.
type SkippedSite struct {
	Callee   string `json:"callee"`
	Location string `json:"location"`
}

// Report summarizes one migration run.
type Report struct {
	RunID       string        `json:"run_id"`
	Unit        string        `json:"unit"`
	RulesHash   string        `json:"rules_hash"`
	Outcomes    []ir.Outcome  `json:"outcomes"`
	Features    []ir.Feature  `json:"features"`
	Skipped     []SkippedSite `json:"skipped,omitempty"`
	Rewritten   int           `json:"rewritten"`
	Unsupported int           `json:"unsupported"`
}

// Migrate rewrites the call sites of one translation unit in order.
//
// The run owns a fresh feature set; Report.Features lists every feature
// any rewrite in the run requested, in first-use order. Sites whose callee
// has no rules are skipped and listed in Report.Skipped. When rec is
// non-nil the run, each outcome and each feature first-use are recorded,
// stamped by the run's logical clock.
//
// Migrate stops early only on context cancellation, an invalid site or a
// recorder error.
func (e *Engine) Migrate(ctx context.Context, unit string, sites []*ir.CallSite, rec Recorder) (*Report, error) {
	report := &Report{
		RunID:     e.runIDs.Generate(),
		Unit:      unit,
		RulesHash: e.registry.Hash(),
		Outcomes:  make([]ir.Outcome, 0, len(sites)),
	}

	slog.Info("migration run starting",
		"run", report.RunID,
		"unit", unit,
		"sites", len(sites),
	)

	if rec != nil {
		run := ir.Run{
			ID:            report.RunID,
			Unit:          unit,
			RulesHash:     report.RulesHash,
			EngineVersion: ir.EngineVersion,
		}
		if err := rec.WriteRun(ctx, run); err != nil {
			return nil, fmt.Errorf("write run %s: %w", report.RunID, err)
		}
	}

	clock := NewClock()
	features := ir.NewFeatureSet()

	for i, site := range sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome, err := e.Rewrite(site, features)
		if err != nil {
			if IsUnknownFunctionError(err) {
				slog.Debug("no rules for callee, skipping",
					"run", report.RunID,
					"callee", site.Callee,
					"at", site.Range.Location(),
				)
				report.Skipped = append(report.Skipped, SkippedSite{
					Callee:   site.Callee,
					Location: site.Range.Location(),
				})
				continue
			}
			return nil, fmt.Errorf("site %d: %w", i, err)
		}

		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Rewritten() {
			report.Rewritten++
		} else {
			report.Unsupported++
		}

		seq := clock.Next()
		if rec == nil {
			continue
		}

		siteID, err := ir.CallSiteID(site)
		if err != nil {
			return nil, fmt.Errorf("site %d: %w", i, err)
		}
		if err := rec.RecordRewrite(ctx, ir.NewRewriteRecord(report.RunID, siteID, seq, outcome)); err != nil {
			return nil, fmt.Errorf("record site %d: %w", i, err)
		}
		for _, f := range outcome.Features {
			if err := rec.RecordFeature(ctx, ir.FeatureRecord{
				RunID:   report.RunID,
				Feature: f,
				Seq:     clock.Next(),
			}); err != nil {
				return nil, fmt.Errorf("record feature %s: %w", f, err)
			}
		}
	}

	report.Features = features.List()

	slog.Info("migration run finished",
		"run", report.RunID,
		"unit", unit,
		"rewritten", report.Rewritten,
		"unsupported", report.Unsupported,
		"skipped", len(report.Skipped),
		"features", len(report.Features),
	)

	return report, nil
}
