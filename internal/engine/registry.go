package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/thrustmig/internal/compiler"
	"github.com/roach88/thrustmig/internal/ir"
	"github.com/roach88/thrustmig/internal/rules"
)

// Function is the registry entry for one source function: its overload
// rules in registration order and a prebuilt decision tree per rule.
type Function struct {
	Name      string
	Overloads []ir.OverloadRule

	selector *Selector
	trees    []*Node // parallel to Overloads
}

// Select returns the rule matching a call's shape and its decision tree.
func (f *Function) Select(argCount int, policy ir.PolicyState) (ir.OverloadRule, *Node, bool) {
	i := f.selector.index(argCount, policy)
	if i < 0 {
		return ir.OverloadRule{}, nil, false
	}
	return f.Overloads[i], f.trees[i], true
}

// Tree returns the decision tree of the i-th overload.
func (f *Function) Tree(i int) *Node {
	return f.trees[i]
}

// Registry maps source function names to their rules.
//
// A Registry is immutable after NewRegistry returns and is safe for
// concurrent lookups without locking.
type Registry struct {
	funcs map[string]*Function
	order []string
	rules []ir.FunctionRules
	hash  string
}

// NewRegistry validates a rule table and builds selectors and decision
// trees for every overload. Validation errors are joined into one error.
func NewRegistry(funcs []ir.FunctionRules) (*Registry, error) {
	if verrs := compiler.Validate(funcs); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("invalid rule table: %w", errors.Join(errs...))
	}

	hash, err := ir.RulesHash(funcs)
	if err != nil {
		return nil, fmt.Errorf("hash rule table: %w", err)
	}

	r := &Registry{
		funcs: make(map[string]*Function, len(funcs)),
		order: make([]string, 0, len(funcs)),
		rules: make([]ir.FunctionRules, 0, len(funcs)),
		hash:  hash,
	}
	for _, fn := range funcs {
		overloads := append([]ir.OverloadRule(nil), fn.Overloads...)
		entry := &Function{
			Name:      fn.Name,
			Overloads: overloads,
			selector:  NewSelector(overloads),
			trees:     make([]*Node, len(overloads)),
		}
		for i, o := range overloads {
			entry.trees[i] = BuildTree(o)
		}
		r.funcs[fn.Name] = entry
		r.order = append(r.order, fn.Name)
		r.rules = append(r.rules, ir.FunctionRules{Name: fn.Name, Overloads: overloads})
	}
	return r, nil
}

// Lookup returns the entry for a qualified source function name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// Select resolves the rule and decision tree for a call site.
//
// Returns a *RewriteError with ErrCodeUnknownFunction when the callee has
// no rules, and ErrCodeOverloadUnsupported when no overload matches.
func (r *Registry) Select(site *ir.CallSite) (ir.OverloadRule, *Node, error) {
	fn, ok := r.Lookup(site.Callee)
	if !ok {
		return ir.OverloadRule{}, nil, NewUnknownFunctionError(site.Callee, site.Range.Location())
	}
	policy := HasLeadingPolicy(site)
	rule, tree, ok := fn.Select(len(site.Args), policy)
	if !ok {
		return ir.OverloadRule{}, nil, NewUnsupportedOverloadError(site.Callee, site.Range.Location(), len(site.Args), bool(policy))
	}
	return rule, tree, nil
}

// Functions returns the registered function names in registration order.
func (r *Registry) Functions() []string {
	return append([]string(nil), r.order...)
}

// Rules returns the rule table in registration order.
func (r *Registry) Rules() []ir.FunctionRules {
	out := make([]ir.FunctionRules, len(r.rules))
	for i, fn := range r.rules {
		out[i] = ir.FunctionRules{Name: fn.Name, Overloads: append([]ir.OverloadRule(nil), fn.Overloads...)}
	}
	return out
}

// Hash returns the content hash of the rule table.
func (r *Registry) Hash() string {
	return r.hash
}

// LoadRegistry compiles a CUE rule table read from filename and builds a
// registry over it.
func LoadRegistry(src, filename string) (*Registry, error) {
	funcs, err := compiler.CompileSource(src, filename)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", filename, err)
	}
	return NewRegistry(funcs)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// DefaultRegistry returns the registry of the built-in Thrust rule table.
// The table is compiled on first use; later calls return the same
// registry.
func DefaultRegistry() (*Registry, error) {
	defaultOnce.Do(func() {
		funcs, err := compiler.CompileSource(rules.Thrust, rules.Filename)
		if err != nil {
			defaultErr = fmt.Errorf("compile built-in rules: %w", err)
			return
		}
		defaultRegistry, defaultErr = NewRegistry(funcs)
	})
	return defaultRegistry, defaultErr
}

// MustDefaultRegistry is like DefaultRegistry but panics on error.
func MustDefaultRegistry() *Registry {
	r, err := DefaultRegistry()
	if err != nil {
		panic(err)
	}
	return r
}
