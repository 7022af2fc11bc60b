package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/thrustmig/internal/ir"
)

// TraceSnapshot captures the recorded trace of a scenario execution.
// Serialized with canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunID        string       `json:"run_id"`
	Features     []ir.Feature `json:"features"`
	Skipped      []string     `json:"skipped,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// NewTraceSnapshot builds the snapshot of a result.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		RunID:        result.RunID,
		Features:     result.Features,
		Skipped:      result.Skipped,
		Trace:        result.Trace,
	}
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Empty optional fields are omitted.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		for key, val := range map[string]string{
			"callee":     event.Callee,
			"location":   event.Location,
			"kind":       event.Kind,
			"text":       event.Text,
			"diagnostic": event.Diagnostic,
			"feature":    string(event.Feature),
		} {
			if val != "" {
				eventMap[key] = val
			}
		}
		if len(event.Features) > 0 {
			eventMap["features"] = featureStrings(event.Features)
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"run_id":        s.RunID,
		"features":      featureStrings(s.Features),
		"trace":         traceList,
	}
	if len(s.Skipped) > 0 {
		result["skipped"] = s.Skipped
	}
	return result
}

// MarshalCanonical renders the snapshot as canonical JSON followed by a
// newline.
func (s *TraceSnapshot) MarshalCanonical() ([]byte, error) {
	data, err := ir.MarshalCanonical(s.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func featureStrings(features []ir.Feature) []string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i] = string(f)
	}
	return out
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass and Errors.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewTraceSnapshot(scenarioName, result)
	traceJSON, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
