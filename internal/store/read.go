package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/thrustmig/internal/ir"
)

// ErrRunNotFound is returned when a run ID (or the latest run) does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is a run with its outcome and feature counts.
type RunSummary struct {
	ir.Run
	Rewritten   int `json:"rewritten"`
	Unsupported int `json:"unsupported"`
	Features    int `json:"features"`
}

// FeatureTotal counts the runs that used a feature.
type FeatureTotal struct {
	Feature ir.Feature `json:"feature"`
	Runs    int        `json:"runs"`
}

// ReadRun returns a single run by ID.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, unit, rules_hash, engine_version
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		return ir.Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// LatestRun returns the run with the highest Seq.
func (s *Store) LatestRun(ctx context.Context) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, unit, rules_hash, engine_version
		FROM runs
		ORDER BY seq DESC
		LIMIT 1
	`)
	run, err := scanRun(row)
	if err != nil {
		return ir.Run{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns every run with its counts, oldest first.
//
// Returns an empty slice (not nil) for an empty store.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.seq, r.unit, r.rules_hash, r.engine_version,
			(SELECT COUNT(*) FROM rewrites w WHERE w.run_id = r.id AND w.kind = 'rewritten'),
			(SELECT COUNT(*) FROM rewrites w WHERE w.run_id = r.id AND w.kind = 'unsupported'),
			(SELECT COUNT(*) FROM feature_usage f WHERE f.run_id = r.id)
		FROM runs r
		ORDER BY r.seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{}
	for rows.Next() {
		var sum RunSummary
		if err := rows.Scan(
			&sum.ID, &sum.Seq, &sum.Unit, &sum.RulesHash, &sum.EngineVersion,
			&sum.Rewritten, &sum.Unsupported, &sum.Features,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return summaries, nil
}

// ReadRewrites returns every recorded outcome of a run.
// Results are ordered deterministically: ORDER BY seq ASC, site_id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the run recorded nothing.
func (s *Store) ReadRewrites(ctx context.Context, runID string) ([]ir.RewriteRecord, error) {
	return s.queryRewrites(ctx, `
		SELECT run_id, site_id, seq, callee, location, kind, text, features, diag_code, diag_message
		FROM rewrites
		WHERE run_id = ?
		ORDER BY seq ASC, site_id COLLATE BINARY ASC
	`, runID)
}

// ReadDiagnostics returns only the unsupported outcomes of a run, in the
// same order as ReadRewrites.
func (s *Store) ReadDiagnostics(ctx context.Context, runID string) ([]ir.RewriteRecord, error) {
	return s.queryRewrites(ctx, `
		SELECT run_id, site_id, seq, callee, location, kind, text, features, diag_code, diag_message
		FROM rewrites
		WHERE run_id = ? AND kind = 'unsupported'
		ORDER BY seq ASC, site_id COLLATE BINARY ASC
	`, runID)
}

func (s *Store) queryRewrites(ctx context.Context, query, runID string) ([]ir.RewriteRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query rewrites: %w", err)
	}
	defer rows.Close()

	records := []ir.RewriteRecord{}
	for rows.Next() {
		var (
			rec          ir.RewriteRecord
			kind         string
			featuresJSON string
		)
		if err := rows.Scan(
			&rec.RunID, &rec.SiteID, &rec.Seq, &rec.Callee, &rec.Location,
			&kind, &rec.Text, &featuresJSON, &rec.DiagCode, &rec.DiagMsg,
		); err != nil {
			return nil, fmt.Errorf("scan rewrite: %w", err)
		}
		rec.Kind = ir.OutcomeKind(kind)
		if rec.Features, err = unmarshalFeatures(featuresJSON); err != nil {
			return nil, fmt.Errorf("rewrite %s: %w", rec.SiteID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rewrites: %w", err)
	}
	return records, nil
}

// ReadFeatures returns the features a run used, in first-use order.
//
// Returns an empty slice (not nil) if the run used none.
func (s *Store) ReadFeatures(ctx context.Context, runID string) ([]ir.FeatureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, feature, seq
		FROM feature_usage
		WHERE run_id = ?
		ORDER BY seq ASC, feature COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	records := []ir.FeatureRecord{}
	for rows.Next() {
		var (
			rec     ir.FeatureRecord
			feature string
		)
		if err := rows.Scan(&rec.RunID, &feature, &rec.Seq); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		rec.Feature = ir.Feature(feature)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return records, nil
}

// FeatureTotals counts, for each feature, the runs that used it.
// Ordered by feature name.
func (s *Store) FeatureTotals(ctx context.Context) ([]FeatureTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT feature, COUNT(*)
		FROM feature_usage
		GROUP BY feature
		ORDER BY feature COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query feature totals: %w", err)
	}
	defer rows.Close()

	totals := []FeatureTotal{}
	for rows.Next() {
		var (
			t       FeatureTotal
			feature string
		)
		if err := rows.Scan(&feature, &t.Runs); err != nil {
			return nil, fmt.Errorf("scan feature total: %w", err)
		}
		t.Feature = ir.Feature(feature)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature totals: %w", err)
	}
	return totals, nil
}

// scanRun scans a single run row, mapping sql.ErrNoRows to ErrRunNotFound.
func scanRun(row *sql.Row) (ir.Run, error) {
	var run ir.Run
	err := row.Scan(&run.ID, &run.Seq, &run.Unit, &run.RulesHash, &run.EngineVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Run{}, ErrRunNotFound
	}
	if err != nil {
		return ir.Run{}, err
	}
	return run, nil
}
