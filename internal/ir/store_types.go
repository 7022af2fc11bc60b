package ir

// NOTE: These are store-layer records of a migration run, not part of the
// call-site or rule model. Ordering within a run uses the run's logical
// sequence numbers.

// Run describes one migration run over a translation unit.
type Run struct {
	ID            string `json:"id"`         // UUIDv7
	Unit          string `json:"unit"`       // translation unit label, usually a file path
	RulesHash     string `json:"rules_hash"` // RulesHash of the registry used
	EngineVersion string `json:"engine_version"`

	// Seq orders runs within a store. Assigned by the store on first write.
	Seq int64 `json:"seq,omitempty"`
}

// RewriteRecord is the persisted outcome of one call site within a run.
type RewriteRecord struct {
	RunID    string      `json:"run_id"`
	SiteID   string      `json:"site_id"` // CallSiteID (content-addressed)
	Seq      int64       `json:"seq"`     // logical clock within the run
	Callee   string      `json:"callee"`
	Location string      `json:"location"`
	Kind     OutcomeKind `json:"kind"`
	Text     string      `json:"text"`
	Features []Feature   `json:"features,omitempty"`
	DiagCode string      `json:"diag_code,omitempty"`
	DiagMsg  string      `json:"diag_message,omitempty"`
}

// FeatureRecord is the first use of a helper feature within a run.
type FeatureRecord struct {
	RunID   string  `json:"run_id"`
	Feature Feature `json:"feature"`
	Seq     int64   `json:"seq"` // logical clock of the first use
}

// NewRewriteRecord flattens an outcome into its persisted form.
func NewRewriteRecord(runID, siteID string, seq int64, o Outcome) RewriteRecord {
	rec := RewriteRecord{
		RunID:  runID,
		SiteID: siteID,
		Seq:    seq,
		Kind:   o.Kind,
		Text:   o.Text,
	}
	if len(o.Features) > 0 {
		rec.Features = append([]Feature(nil), o.Features...)
	}
	if o.Site != nil {
		rec.Callee = o.Site.Callee
		rec.Location = o.Site.Range.Location()
	}
	if o.Diagnostic != nil {
		rec.DiagCode = o.Diagnostic.Code
		rec.DiagMsg = o.Diagnostic.Message
	}
	return rec
}
