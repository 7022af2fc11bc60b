package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/thrustmig/internal/ir"
	"github.com/roach88/thrustmig/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			switch event.Type {
			case EventRewrite:
				fmt.Fprintf(&buf, "  [%d] %s %s at %s\n", event.Seq, event.Kind, event.Callee, event.Location)
			case EventFeature:
				fmt.Fprintf(&buf, "  [%d] feature %s\n", event.Seq, event.Feature)
			}
		}
	}

	return buf.String()
}

// assertFeatureOrder checks the run's features, in first-use order.
func assertFeatureOrder(result *Result, assertion Assertion) error {
	if slices.Equal(result.Features, assertion.Features) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFeatureOrder,
		Expected: fmt.Sprintf("features %v", assertion.Features),
		Actual:   fmt.Sprintf("features %v", result.Features),
		Trace:    result.Trace,
	}
}

// assertOutcomeCount checks the number of outcomes of a kind.
func assertOutcomeCount(result *Result, assertion Assertion) error {
	count := 0
	for _, event := range result.Rewrites() {
		if event.Kind == assertion.Kind {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutcomeCount,
		Expected: fmt.Sprintf("%d %s outcomes", assertion.Count, assertion.Kind),
		Actual:   fmt.Sprintf("%d %s outcomes", count, assertion.Kind),
		Trace:    result.Trace,
	}
}

// assertDiagnosticCount checks the number of diagnostics with a code.
func assertDiagnosticCount(result *Result, assertion Assertion) error {
	count := 0
	for _, event := range result.Rewrites() {
		if event.Diagnostic == assertion.Code {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertDiagnosticCount,
		Expected: fmt.Sprintf("%d %s diagnostics", assertion.Count, assertion.Code),
		Actual:   fmt.Sprintf("%d %s diagnostics", count, assertion.Code),
		Trace:    result.Trace,
	}
}

// assertSkippedCount checks the number of sites skipped for having no rules.
func assertSkippedCount(result *Result, assertion Assertion) error {
	if len(result.Skipped) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertSkippedCount,
		Expected: fmt.Sprintf("%d skipped sites", assertion.Count),
		Actual:   fmt.Sprintf("%d skipped sites %v", len(result.Skipped), result.Skipped),
		Trace:    result.Trace,
	}
}

// assertRecordedFeatures reads the run's feature usage back from the store
// and checks it against the expected first-use order.
func assertRecordedFeatures(ctx context.Context, st *store.Store, runID string, assertion Assertion) error {
	records, err := st.ReadFeatures(ctx, runID)
	if err != nil {
		return &AssertionError{
			Type:     AssertRecordedFeatures,
			Expected: fmt.Sprintf("features of run %s", runID),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	recorded := make([]ir.Feature, len(records))
	for i, r := range records {
		recorded[i] = r.Feature
	}
	if slices.Equal(recorded, assertion.Features) {
		return nil
	}
	return &AssertionError{
		Type:     AssertRecordedFeatures,
		Expected: fmt.Sprintf("recorded features %v", assertion.Features),
		Actual:   fmt.Sprintf("recorded features %v", recorded),
	}
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for recorded_features assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFeatureOrder:
			err = assertFeatureOrder(result, assertion)
		case AssertOutcomeCount:
			err = assertOutcomeCount(result, assertion)
		case AssertDiagnosticCount:
			err = assertDiagnosticCount(result, assertion)
		case AssertSkippedCount:
			err = assertSkippedCount(result, assertion)
		case AssertRecordedFeatures:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: recorded_features requires database context", i)
			} else {
				err = assertRecordedFeatures(actx.Ctx, actx.Store, result.RunID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
