package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thrustmig/internal/ir"
	"github.com/roach88/thrustmig/internal/store"
)

func sampleResult() *Result {
	r := NewResult()
	r.RunID = "run-1"
	r.Features = []ir.Feature{ir.FeatureDPLUtils, ir.FeatureDeviceExt}
	r.Skipped = []string{"thrust::frobnicate"}
	r.AddRewriteTrace(ir.RewriteRecord{Seq: 1, Callee: "thrust::sort", Location: "a.cu:1:1", Kind: ir.OutcomeRewritten, Text: "x"})
	r.AddFeatureTrace(ir.FeatureRecord{Seq: 2, Feature: ir.FeatureDPLUtils})
	r.AddFeatureTrace(ir.FeatureRecord{Seq: 3, Feature: ir.FeatureDeviceExt})
	r.AddRewriteTrace(ir.RewriteRecord{Seq: 4, Callee: "thrust::sort", Location: "a.cu:2:1", Kind: ir.OutcomeUnsupported, DiagCode: ir.DiagOverloadUnsupported})
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertFeatureOrder, Features: []ir.Feature{ir.FeatureDPLUtils, ir.FeatureDeviceExt}},
		{Type: AssertOutcomeCount, Kind: "rewritten", Count: 1},
		{Type: AssertOutcomeCount, Kind: "unsupported", Count: 1},
		{Type: AssertDiagnosticCount, Code: ir.DiagOverloadUnsupported, Count: 1},
		{Type: AssertDiagnosticCount, Code: ir.DiagExtAPIRequired, Count: 0},
		{Type: AssertSkippedCount, Count: 1},
	}, nil)
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      []string
	}{
		{
			name:      "feature order",
			assertion: Assertion{Type: AssertFeatureOrder, Features: []ir.Feature{ir.FeatureDeviceExt, ir.FeatureDPLUtils}},
			want:      []string{"Assertion failed: feature_order", "Actual: features [dpl_utils device_ext]"},
		},
		{
			name:      "outcome count",
			assertion: Assertion{Type: AssertOutcomeCount, Kind: "rewritten", Count: 3},
			want:      []string{"Expected: 3 rewritten outcomes", "Actual: 1 rewritten outcomes"},
		},
		{
			name:      "diagnostic count",
			assertion: Assertion{Type: AssertDiagnosticCount, Code: ir.DiagExtAPIRequired, Count: 1},
			want:      []string{"Actual: 0 EXT_API_REQUIRED diagnostics"},
		},
		{
			name:      "skipped count",
			assertion: Assertion{Type: AssertSkippedCount, Count: 0},
			want:      []string{"Actual: 1 skipped sites [thrust::frobnicate]"},
		},
		{
			name:      "unknown type",
			assertion: Assertion{Type: "final_state"},
			want:      []string{`unknown assertion type "final_state"`},
		},
		{
			name:      "recorded features without store",
			assertion: Assertion{Type: AssertRecordedFeatures, Features: []ir.Feature{}},
			want:      []string{"recorded_features requires database context"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion}, nil)
			require.Len(t, errs, 1)
			for _, w := range tt.want {
				assert.Contains(t, errs[0], w)
			}
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := assertOutcomeCount(sampleResult(), Assertion{Type: AssertOutcomeCount, Kind: "rewritten", Count: 0})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "Full trace:")
	assert.Contains(t, msg, "[1] rewritten thrust::sort at a.cu:1:1")
	assert.Contains(t, msg, "[3] feature device_ext")
	assert.Contains(t, msg, "[4] unsupported thrust::sort at a.cu:2:1")
}

func TestAssertRecordedFeatures(t *testing.T) {
	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.WriteRun(ctx, ir.Run{ID: "run-1", Unit: "a.cu", RulesHash: "h", EngineVersion: "v"}))
	require.NoError(t, st.RecordFeature(ctx, ir.FeatureRecord{RunID: "run-1", Feature: ir.FeatureDeviceExt, Seq: 3}))
	require.NoError(t, st.RecordFeature(ctx, ir.FeatureRecord{RunID: "run-1", Feature: ir.FeatureDPLUtils, Seq: 2}))

	actx := &AssertionContext{Store: st, Ctx: ctx}
	result := sampleResult()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertRecordedFeatures, Features: []ir.Feature{ir.FeatureDPLUtils, ir.FeatureDeviceExt}},
	}, actx)
	assert.Empty(t, errs)

	errs = EvaluateAssertions(result, []Assertion{
		{Type: AssertRecordedFeatures, Features: []ir.Feature{ir.FeatureDeviceExt}},
	}, actx)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "recorded features [dpl_utils device_ext]")
}
