package store

import (
	"context"
	"fmt"

	"github.com/roach88/thrustmig/internal/ir"
)

// WriteRun inserts a run record. The store assigns the run's Seq, one past
// the highest existing run. Duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run ir.Run) error {
	// An upsert on INSERT ... SELECT needs a WHERE clause to parse.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seq, unit, rules_hash, engine_version)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?
		FROM runs WHERE true
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Unit,
		run.RulesHash,
		run.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// RecordRewrite inserts the outcome of one call site.
// Uses ON CONFLICT DO NOTHING so recording the same site twice within a run
// keeps the first record.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) RecordRewrite(ctx context.Context, rec ir.RewriteRecord) error {
	featuresJSON, err := marshalFeatures(rec.Features)
	if err != nil {
		return fmt.Errorf("record rewrite: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rewrites
		(run_id, site_id, seq, callee, location, kind, text, features, diag_code, diag_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, site_id) DO NOTHING
	`,
		rec.RunID,
		rec.SiteID,
		rec.Seq,
		rec.Callee,
		rec.Location,
		string(rec.Kind),
		rec.Text,
		featuresJSON,
		rec.DiagCode,
		rec.DiagMsg,
	)
	if err != nil {
		return fmt.Errorf("record rewrite: %w", err)
	}
	return nil
}

// RecordFeature notes a feature used by a run. Only the first use per run
// is kept, so later calls for the same feature are no-ops.
func (s *Store) RecordFeature(ctx context.Context, rec ir.FeatureRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feature_usage (run_id, feature, seq)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, feature) DO NOTHING
	`,
		rec.RunID,
		string(rec.Feature),
		rec.Seq,
	)
	if err != nil {
		return fmt.Errorf("record feature: %w", err)
	}
	return nil
}
