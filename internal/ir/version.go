package ir

// Version constants for the rule schema and engine.
const (
	// RuleSchemaVersion is the rule table schema version.
	RuleSchemaVersion = "1"

	// EngineVersion is the thrustmig engine version.
	EngineVersion = "0.1.0"
)
