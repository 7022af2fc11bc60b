package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/thrustmig/internal/ir"
)

// overloadFields are the fields accepted in one overload entry.
var overloadFields = map[string]bool{
	"args":    true,
	"policy":  true,
	"ptrs":    true,
	"target":  true,
	"feature": true,
	"ext_api": true,
}

// CompileSource compiles a CUE rule table held in memory.
// filename is used only for error positions.
func CompileSource(src, filename string) ([]ir.FunctionRules, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return CompileRules(v)
}

// CompileRules parses the `function` table of a rule source into ordered
// FunctionRules. Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value should be the package root, e.g.:
//
//	v := cuecontext.New().CompileString(`function: "thrust::fill": overloads: [...]`)
//	funcs, err := CompileRules(v)
//
// Functions keep their declaration order; overloads keep list order.
func CompileRules(v cue.Value) ([]ir.FunctionRules, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	table := v.LookupPath(cue.ParsePath("function"))
	if !table.Exists() {
		return nil, &CompileError{
			Field:   "function",
			Message: "function table is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := table.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var funcs []ir.FunctionRules
	for iter.Next() {
		fn, err := CompileFunction(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, *fn)
	}
	return funcs, nil
}

// CompileFunction parses the overload list of one source function.
func CompileFunction(name string, v cue.Value) (*ir.FunctionRules, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	fn := &ir.FunctionRules{Name: name}

	listVal := v.LookupPath(cue.ParsePath("overloads"))
	if !listVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("function[%q].overloads", name),
			Message: "overloads are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		rule, err := parseOverload(fmt.Sprintf("function[%q].overloads[%d]", name, i), iter.Value())
		if err != nil {
			return nil, err
		}
		fn.Overloads = append(fn.Overloads, rule)
	}
	return fn, nil
}

// parseOverload reads one overload entry. Optional fields default the same
// way the #Overload schema does, so tables written without the schema
// compile identically.
func parseOverload(field string, v cue.Value) (ir.OverloadRule, error) {
	rule := ir.OverloadRule{Feature: ir.FeatureDPLUtils}

	if err := v.Err(); err != nil {
		return rule, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return rule, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("overload must be a struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	fields, err := v.Fields()
	if err != nil {
		return rule, formatCUEError(err)
	}
	for fields.Next() {
		label := fields.Selector().Unquoted()
		if !overloadFields[label] {
			return rule, &CompileError{
				Field:   field + "." + label,
				Message: "unknown overload field",
				Pos:     fields.Value().Pos(),
			}
		}
	}

	argsVal := lookupDefault(v, "args")
	if !argsVal.Exists() {
		return rule, &CompileError{
			Field:   field + ".args",
			Message: "args is required",
			Pos:     v.Pos(),
		}
	}
	args, err := argsVal.Int64()
	if err != nil {
		return rule, formatCUEError(err)
	}
	rule.ArgCount = int(args)

	if policyVal := lookupDefault(v, "policy"); policyVal.Exists() {
		policy, err := policyVal.Bool()
		if err != nil {
			return rule, formatCUEError(err)
		}
		rule.Policy = ir.PolicyState(policy)
	}

	if ptrsVal := lookupDefault(v, "ptrs"); ptrsVal.Exists() {
		ptrs, err := ptrsVal.Int64()
		if err != nil {
			return rule, formatCUEError(err)
		}
		rule.PtrCount = int(ptrs)
	}

	targetVal := lookupDefault(v, "target")
	if !targetVal.Exists() {
		return rule, &CompileError{
			Field:   field + ".target",
			Message: "target is required",
			Pos:     v.Pos(),
		}
	}
	rule.Target, err = targetVal.String()
	if err != nil {
		return rule, formatCUEError(err)
	}

	if featureVal := lookupDefault(v, "feature"); featureVal.Exists() {
		feature, err := featureVal.String()
		if err != nil {
			return rule, formatCUEError(err)
		}
		rule.Feature = ir.Feature(feature)
	}

	if extVal := lookupDefault(v, "ext_api"); extVal.Exists() {
		rule.ExtAPI, err = extVal.Bool()
		if err != nil {
			return rule, formatCUEError(err)
		}
	}

	return rule, nil
}

// lookupDefault looks up a field and resolves a schema default if present.
func lookupDefault(v cue.Value, path string) cue.Value {
	val := v.LookupPath(cue.ParsePath(path))
	if d, ok := val.Default(); ok {
		return d
	}
	return val
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
