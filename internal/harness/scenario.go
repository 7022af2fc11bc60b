package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/thrustmig/internal/engine"
	"github.com/roach88/thrustmig/internal/ir"
	"github.com/roach88/thrustmig/internal/sites"
)

// Scenario defines a conformance test scenario: a translation unit's call
// sites, the outcome each should produce, and assertions over the run the
// engine records.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID is an optional fixed run ID. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Unit labels the translation unit. Defaults to "<name>.cu".
	Unit string `yaml:"unit,omitempty"`

	// Flags apply to every site.
	Flags ir.Flags `yaml:"flags,omitempty"`

	// Options configure the engine.
	Options Options `yaml:"options,omitempty"`

	// Rules is an optional path to a CUE rule table. Relative paths resolve
	// against the scenario file. Empty means the built-in Thrust table.
	Rules string `yaml:"rules,omitempty"`

	// Sites are the call sites, migrated in order.
	Sites []SiteStep `yaml:"sites"`

	// Assertions validate the recorded run.
	// Supported types: feature_order, outcome_count, diagnostic_count,
	// recorded_features, skipped_count
	Assertions []Assertion `yaml:"assertions"`
}

// Options mirror the engine options a scenario may set.
type Options struct {
	// Queue replaces the default queue accessor expression.
	Queue string `yaml:"queue,omitempty"`

	// GuardStyle is "expression" (default) or "statement".
	GuardStyle string `yaml:"guard_style,omitempty"`

	// HelperNamespace replaces "dpct::".
	HelperNamespace string `yaml:"helper_namespace,omitempty"`
}

// SiteStep is one call site plus its expected outcome.
type SiteStep struct {
	ir.CallSite `yaml:",inline"`

	// Expect specifies the expected outcome.
	// If nil, no per-site validation is performed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of one site.
type ExpectClause struct {
	// Kind is "rewritten" or "unsupported". Ignored when Skipped is set.
	Kind string `yaml:"kind,omitempty"`

	// Text is the exact replacement (or pass-through) text. Empty skips
	// the check.
	Text string `yaml:"text,omitempty"`

	// Features are the features the outcome requests, in order. Nil skips
	// the check.
	Features []ir.Feature `yaml:"features,omitempty"`

	// Diagnostic is the expected diagnostic code of an unsupported outcome.
	Diagnostic string `yaml:"diagnostic,omitempty"`

	// Skipped expects the site to be skipped for having no rules.
	Skipped bool `yaml:"skipped,omitempty"`
}

// Assertion validates the recorded run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "feature_order": the run's features, in first-use order
	// - "outcome_count": number of outcomes of Kind
	// - "diagnostic_count": number of diagnostics with Code
	// - "recorded_features": features read back from the store, by seq
	// - "skipped_count": number of skipped sites
	Type string `yaml:"type"`

	// Features is the expected feature list (feature_order, recorded_features).
	Features []ir.Feature `yaml:"features,omitempty"`

	// Kind is the outcome kind (outcome_count).
	Kind string `yaml:"kind,omitempty"`

	// Code is the diagnostic code (diagnostic_count).
	Code string `yaml:"code,omitempty"`

	// Count is the expected number of occurrences.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFeatureOrder     = "feature_order"
	AssertOutcomeCount     = "outcome_count"
	AssertDiagnosticCount  = "diagnostic_count"
	AssertRecordedFeatures = "recorded_features"
	AssertSkippedCount     = "skipped_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative rules path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Rules != "" && !filepath.IsAbs(scenario.Rules) {
		scenario.Rules = filepath.Join(filepath.Dir(path), scenario.Rules)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Sites) == 0 {
		return fmt.Errorf("sites list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Rules != "" {
		if _, err := os.Stat(s.Rules); os.IsNotExist(err) {
			return fmt.Errorf("rules file not found: %s", s.Rules)
		}
	}

	if s.Options.GuardStyle != "" {
		if _, err := engine.ParseGuardStyle(s.Options.GuardStyle); err != nil {
			return fmt.Errorf("options.guard_style: %w", err)
		}
	}

	callSites := make([]*ir.CallSite, len(s.Sites))
	for i := range s.Sites {
		callSites[i] = &s.Sites[i].CallSite
		if err := validateExpect(i, s.Sites[i].Expect); err != nil {
			return err
		}
	}
	if err := sites.Validate(callSites); err != nil {
		return err
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateExpect validates a site's expect clause, if present.
func validateExpect(index int, e *ExpectClause) error {
	if e == nil || e.Skipped {
		return nil
	}
	switch ir.OutcomeKind(e.Kind) {
	case ir.OutcomeRewritten:
		if e.Diagnostic != "" {
			return fmt.Errorf("sites[%d].expect: diagnostic is only valid for unsupported outcomes", index)
		}
	case ir.OutcomeUnsupported:
	case "":
		return fmt.Errorf("sites[%d].expect: kind is required", index)
	default:
		return fmt.Errorf("sites[%d].expect: unknown kind %q", index, e.Kind)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFeatureOrder, AssertRecordedFeatures:
		if a.Features == nil {
			return fmt.Errorf("assertions[%d]: features list is required for %s", index, a.Type)
		}
	case AssertOutcomeCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for outcome_count", index)
		}
	case AssertDiagnosticCount:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diagnostic_count", index)
		}
	case AssertSkippedCount:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	return nil
}
