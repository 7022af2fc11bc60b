package ir

// OutcomeKind distinguishes a rewrite from a pass-through.
type OutcomeKind string

const (
	OutcomeRewritten   OutcomeKind = "rewritten"
	OutcomeUnsupported OutcomeKind = "unsupported"
)

// Diagnostic codes attached to unsupported outcomes.
const (
	// DiagOverloadUnsupported: no rule matches the call's argument count and
	// policy presence.
	DiagOverloadUnsupported = "OVERLOAD_UNSUPPORTED"

	// DiagExtAPIRequired: the matching rule targets the extended oneDPL API,
	// which is disabled for the translation unit.
	DiagExtAPIRequired = "EXT_API_REQUIRED"
)

// Diagnostic is a user-visible note attached at a call's location.
type Diagnostic struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Range   SourceRange `json:"range"`
}

// Outcome is the result of one rewrite attempt.
//
// For OutcomeRewritten, Text replaces the call's source range and Features
// lists the helper features the replacement needs. For OutcomeUnsupported,
// Text is the original call spelling and Diagnostic is set.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	Text       string      `json:"text"`
	Features   []Feature   `json:"features,omitempty"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
	Site       *CallSite   `json:"-"`
}

// Rewritten reports whether the outcome replaces the call.
func (o Outcome) Rewritten() bool {
	return o.Kind == OutcomeRewritten
}
