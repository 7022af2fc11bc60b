package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"slices"
	"testing"

	"github.com/roach88/thrustmig/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run with fixed hash and version fields.
func createTestRun(t *testing.T, s *Store, id, unit string) {
	t.Helper()
	err := s.WriteRun(context.Background(), ir.Run{
		ID:            id,
		Unit:          unit,
		RulesHash:     "test-hash",
		EngineVersion: "0.1.0",
	})
	if err != nil {
		t.Fatalf("WriteRun(%s) failed: %v", id, err)
	}
}

// createTestRewrite builds a rewritten-outcome record.
func createTestRewrite(runID, siteID string, seq int64, features ...ir.Feature) ir.RewriteRecord {
	return ir.RewriteRecord{
		RunID:    runID,
		SiteID:   siteID,
		Seq:      seq,
		Callee:   "thrust::sort",
		Location: "kernel.cu:10:3",
		Kind:     ir.OutcomeRewritten,
		Text:     "oneapi::dpl::sort(oneapi::dpl::execution::seq, a, b)",
		Features: features,
	}
}

// createTestDiagnostic builds an unsupported-outcome record.
func createTestDiagnostic(runID, siteID string, seq int64) ir.RewriteRecord {
	return ir.RewriteRecord{
		RunID:    runID,
		SiteID:   siteID,
		Seq:      seq,
		Callee:   "thrust::sort",
		Location: "kernel.cu:20:3",
		Kind:     ir.OutcomeUnsupported,
		Text:     "thrust::sort(a, b, c, d, e)",
		DiagCode: ir.DiagOverloadUnsupported,
		DiagMsg:  "thrust::sort: no overload takes 5 arguments without an execution policy",
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(list []string, item string) bool {
	return slices.Contains(list, item)
}
