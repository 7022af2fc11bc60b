package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/thrustmig/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrEmptyTable        = "E100" // no functions in the table
	ErrDuplicateKey      = "E101" // two overloads share (args, policy)
	ErrInvalidCount      = "E102" // negative counts or a policy overload with no args
	ErrPtrCountExceeds   = "E103" // ptrs exceeds forwarded argument count
	ErrEmptyTarget       = "E104" // target is required
	ErrEmptyFeature      = "E105" // feature is required
	ErrDuplicateFunction = "E106" // function registered twice
	ErrUnknownFeature    = "E107" // feature is not a known helper feature
	ErrNoOverloads       = "E108" // function has no overloads
)

// knownFeatures lists the helper features a rule may request.
var knownFeatures = map[ir.Feature]bool{
	ir.FeatureDPLUtils:           true,
	ir.FeatureDeviceExt:          true,
	ir.FeatureDPLExtrasAlgorithm: true,
	ir.FeatureDPLExtrasMemory:    true,
}

// ValidationError represents a rule table validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks compiled rule tables.
// Returns all errors found (does not fail-fast).
func Validate(funcs []ir.FunctionRules) []ValidationError {
	var errs []ValidationError

	if len(funcs) == 0 {
		return []ValidationError{{
			Field:   "function",
			Message: "rule table defines no functions",
			Code:    ErrEmptyTable,
		}}
	}

	names := make(map[string]bool, len(funcs))
	for _, fn := range funcs {
		if names[fn.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("function[%q]", fn.Name),
				Message: "function is defined more than once",
				Code:    ErrDuplicateFunction,
			})
		}
		names[fn.Name] = true
		errs = append(errs, validateFunction(fn)...)
	}

	return errs
}

func validateFunction(fn ir.FunctionRules) []ValidationError {
	var errs []ValidationError

	if len(fn.Overloads) == 0 {
		return []ValidationError{{
			Field:   fmt.Sprintf("function[%q].overloads", fn.Name),
			Message: "at least one overload is required",
			Code:    ErrNoOverloads,
		}}
	}

	seen := make(map[ir.RuleKey]int, len(fn.Overloads))
	for i, o := range fn.Overloads {
		field := fmt.Sprintf("function[%q].overloads[%d]", fn.Name, i)

		// E101: selection key must be unique within a function
		if prev, ok := seen[o.Key()]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("args=%d %s duplicates overloads[%d]", o.ArgCount, o.Policy, prev),
				Code:    ErrDuplicateKey,
			})
		} else {
			seen[o.Key()] = i
		}

		// E102: counts
		if o.ArgCount < 0 || o.PtrCount < 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("counts must be non-negative (args=%d ptrs=%d)", o.ArgCount, o.PtrCount),
				Code:    ErrInvalidCount,
			})
		} else if o.Policy == ir.HasPolicy && o.ArgCount == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".args",
				Message: "policy overload needs at least the policy argument",
				Code:    ErrInvalidCount,
			})
		} else if o.PtrCount > o.ForwardedCount() {
			// E103: wrapped pointers come from forwarded args
			errs = append(errs, ValidationError{
				Field:   field + ".ptrs",
				Message: fmt.Sprintf("ptrs=%d exceeds %d forwarded arguments", o.PtrCount, o.ForwardedCount()),
				Code:    ErrPtrCountExceeds,
			})
		}

		// E104: target
		if strings.TrimSpace(o.Target) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".target",
				Message: "target is required and must be non-empty",
				Code:    ErrEmptyTarget,
			})
		}

		// E105/E107: feature
		switch {
		case strings.TrimSpace(string(o.Feature)) == "":
			errs = append(errs, ValidationError{
				Field:   field + ".feature",
				Message: "feature is required and must be non-empty",
				Code:    ErrEmptyFeature,
			})
		case !knownFeatures[o.Feature]:
			errs = append(errs, ValidationError{
				Field:   field + ".feature",
				Message: fmt.Sprintf("unknown feature %q", o.Feature),
				Code:    ErrUnknownFeature,
			})
		}
	}

	return errs
}
