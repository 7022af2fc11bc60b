package engine

import "github.com/roach88/thrustmig/internal/ir"

// Selector picks the overload rule of one function that matches a call's
// argument count and policy presence.
//
// Rules are tried from last registered to first, so a table listed in
// ascending specificity resolves to the most specific match.
type Selector struct {
	rules []ir.OverloadRule
}

// NewSelector creates a selector over rules in registration order.
// The slice is copied.
func NewSelector(rules []ir.OverloadRule) *Selector {
	return &Selector{rules: append([]ir.OverloadRule(nil), rules...)}
}

// Select returns the matching rule. The second result is false when no
// rule matches, which callers report as an unsupported overload.
func (s *Selector) Select(argCount int, policy ir.PolicyState) (ir.OverloadRule, bool) {
	if i := s.index(argCount, policy); i >= 0 {
		return s.rules[i], true
	}
	return ir.OverloadRule{}, false
}

func (s *Selector) index(argCount int, policy ir.PolicyState) int {
	for i := len(s.rules) - 1; i >= 0; i-- {
		r := s.rules[i]
		if r.ArgCount == argCount && r.Policy == policy {
			return i
		}
	}
	return -1
}
