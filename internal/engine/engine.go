package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/thrustmig/internal/ir"
)

// Engine rewrites Thrust call sites into oneDPL calls using the rules of a
// Registry.
//
// Thread-safety: an Engine holds no per-call state and may be shared by
// goroutines. Feature sets passed to Rewrite are mutex protected.
type Engine struct {
	registry   *Registry
	names      TypeNames
	helperNS   string
	queue      QueueAccessor
	guardStyle GuardStyle
	runIDs     RunIDGenerator

	classifier *Classifier
	policy     *PolicyMapper
	emitter    *Emitter
}

// Option configures an Engine.
type Option func(*Engine)

// WithQueueAccessor sets how the default device queue is rendered.
// Default: <helper namespace>get_in_order_queue().
func WithQueueAccessor(q QueueAccessor) Option {
	return func(e *Engine) {
		e.queue = q
	}
}

// WithGuardStyle sets how runtime device-pointer dispatch is rendered.
// Default: GuardExpression.
func WithGuardStyle(s GuardStyle) Option {
	return func(e *Engine) {
		e.guardStyle = s
	}
}

// WithHelperNamespace sets the namespace prefix of helper functions,
// including the trailing "::". Default: "dpct::".
func WithHelperNamespace(ns string) Option {
	return func(e *Engine) {
		e.helperNS = ns
	}
}

// WithTypeNames overrides the recognized library type spellings.
func WithTypeNames(names TypeNames) Option {
	return func(e *Engine) {
		e.names = names
	}
}

// WithRunIDGenerator sets the generator of migration run ids.
// Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// New creates an Engine over reg.
func New(reg *Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		names:    DefaultTypeNames(),
		helperNS: DefaultHelperNamespace,
		runIDs:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.queue == nil {
		e.queue = DefaultQueue(e.helperNS)
	}

	e.classifier = NewClassifier(e.names)
	e.policy = NewPolicyMapper(e.names, e.queue)
	e.emitter = NewEmitter(e.helperNS, e.guardStyle)
	return e
}

// Registry returns the engine's rule registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Classifier returns the engine's argument classifier.
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

// PolicyMapper returns the engine's policy mapper.
func (e *Engine) PolicyMapper() *PolicyMapper {
	return e.policy
}

// Rewrite evaluates one call site.
//
// A call with a matching rule yields a rewritten outcome; its features are
// added to features (which may be nil). A call whose shape no rule
// matches, or whose rule needs the extended oneDPL API while it is
// disabled, yields an unsupported outcome carrying the original call text
// and a diagnostic. Neither is an error.
//
// Errors: *RewriteError with ErrCodeUnknownFunction when no rules exist
// for the callee, ErrCodeInvalidSite for a nil site.
//
// Rewrite never mutates site, and evaluating the same site twice yields
// the same outcome.
func (e *Engine) Rewrite(site *ir.CallSite, features *ir.FeatureSet) (ir.Outcome, error) {
	if site == nil {
		return ir.Outcome{}, &RewriteError{Code: ErrCodeInvalidSite, Message: "nil call site"}
	}

	rule, tree, err := e.registry.Select(site)
	if err != nil {
		var re *RewriteError
		if errors.As(err, &re) && re.Code == ErrCodeOverloadUnsupported {
			slog.Warn("overload unsupported",
				"callee", site.Callee,
				"args", len(site.Args),
				"at", site.Range.Location(),
			)
			return unsupported(site, ir.DiagOverloadUnsupported, re.Message), nil
		}
		return ir.Outcome{}, err
	}

	if rule.ExtAPI && !site.Flags.ExtDPLAPI {
		slog.Warn("extended oneDPL API disabled",
			"callee", site.Callee,
			"target", rule.Target,
			"at", site.Range.Location(),
		)
		return unsupported(site, ir.DiagExtAPIRequired,
			fmt.Sprintf("%s requires the extended oneDPL API", rule.Target)), nil
	}

	env := &evalEnv{
		site:       site,
		rule:       rule,
		classifier: e.classifier,
		policy:     e.policy,
		emitter:    e.emitter,
		devicePtr:  e.names.DevicePointer,
	}
	text, used := evaluate(tree, env)
	features.Add(used...)

	slog.Debug("call rewritten",
		"callee", site.Callee,
		"target", rule.Target,
		"args", rule.ArgCount,
		"policy", rule.Policy.String(),
		"at", site.Range.Location(),
	)

	return ir.Outcome{
		Kind:     ir.OutcomeRewritten,
		Text:     text,
		Features: used,
		Site:     site,
	}, nil
}

// unsupported builds a pass-through outcome that keeps the original call.
func unsupported(site *ir.CallSite, code, message string) ir.Outcome {
	return ir.Outcome{
		Kind: ir.OutcomeUnsupported,
		Text: originalText(site),
		Diagnostic: &ir.Diagnostic{
			Code:    code,
			Message: fmt.Sprintf("%s: %s", site.Callee, message),
			Range:   site.Range,
		},
		Site: site,
	}
}

// originalText returns the source spelling of the call, reconstructing it
// from the callee and argument spellings when the descriptor has none.
func originalText(site *ir.CallSite) string {
	if site.Text != "" {
		return site.Text
	}
	args := make([]string, len(site.Args))
	for i, a := range site.Args {
		args[i] = a.Spelling()
	}
	return site.Callee + "(" + strings.Join(args, ", ") + ")"
}
