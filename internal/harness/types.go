package harness

import "github.com/roach88/thrustmig/internal/ir"

// Trace event types.
const (
	EventRewrite = "rewrite"
	EventFeature = "feature"
)

// TraceEvent is one record of a migration run as read back from the store.
// Rewrite events carry the outcome; feature events carry the first use of
// a helper feature.
type TraceEvent struct {
	Type       string       `json:"type"`
	Seq        int64        `json:"seq"`
	Callee     string       `json:"callee,omitempty"`
	Location   string       `json:"location,omitempty"`
	Kind       string       `json:"kind,omitempty"`
	Text       string       `json:"text,omitempty"`
	Diagnostic string       `json:"diagnostic,omitempty"`
	Feature    ir.Feature   `json:"feature,omitempty"`
	Features   []ir.Feature `json:"features,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// RunID is the migration run the scenario produced.
	RunID string `json:"run_id"`

	// Trace contains the recorded rewrites and feature uses, by seq.
	Trace []TraceEvent `json:"trace"`

	// Features lists the run's features in first-use order.
	Features []ir.Feature `json:"features"`

	// Skipped lists callees that had no rules.
	Skipped []string `json:"skipped,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Features: []ir.Feature{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRewriteTrace adds a recorded outcome to the trace.
func (r *Result) AddRewriteTrace(rec ir.RewriteRecord) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventRewrite,
		Seq:        rec.Seq,
		Callee:     rec.Callee,
		Location:   rec.Location,
		Kind:       string(rec.Kind),
		Text:       rec.Text,
		Diagnostic: rec.DiagCode,
		Features:   rec.Features,
	})
}

// AddFeatureTrace adds a recorded feature use to the trace.
func (r *Result) AddFeatureTrace(rec ir.FeatureRecord) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventFeature,
		Seq:     rec.Seq,
		Feature: rec.Feature,
	})
}

// Rewrites returns the rewrite events of the trace.
func (r *Result) Rewrites() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EventRewrite {
			out = append(out, e)
		}
	}
	return out
}
