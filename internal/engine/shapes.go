package engine

import (
	"strings"

	"github.com/roach88/thrustmig/internal/ir"
)

// Match is the result of a structural predicate over an argument
// expression. A matched result carries the sub-expression the predicate
// bound, so callers read the bound node instead of re-walking the tree.
type Match struct {
	expr *ir.Expr
	ok   bool
}

// NotMatched is the result of a predicate that did not apply.
func NotMatched() Match {
	return Match{}
}

// MatchedWith is the result of a predicate that applied and bound e.
func MatchedWith(e *ir.Expr) Match {
	return Match{expr: e, ok: true}
}

// Matched reports whether the predicate applied.
func (m Match) Matched() bool {
	return m.ok
}

// Expr returns the bound expression, nil when not matched.
func (m Match) Expr() *ir.Expr {
	return m.expr
}

// firstMatch evaluates predicates left to right and returns the first match.
func firstMatch(preds ...func() Match) Match {
	for _, p := range preds {
		if m := p(); m.ok {
			return m
		}
	}
	return NotMatched()
}

// temporaryOfType matches a temporary construction whose type names
// typeName. Implicit casts are not looked through.
func temporaryOfType(e *ir.Expr, typeName string) Match {
	if e == nil || e.Kind != ir.ExprTemporary || !strings.Contains(e.Type, typeName) {
		return NotMatched()
	}
	return MatchedWith(e)
}

// copyToOutputStream matches a copy whose destination is an output-stream
// iterator temporary. Binds the temporary.
func copyToOutputStream(site *ir.CallSite, streamIterator string) Match {
	if site.ShortName() != "copy" {
		return NotMatched()
	}
	return temporaryOfType(site.LastArg(), streamIterator)
}

// dependentMemberCallOn matches v.begin() style calls in an uninstantiated
// template: a call whose callee is a dependent member access rooted at a
// named declaration. Binds the declaration reference.
func dependentMemberCallOn(e *ir.Expr) Match {
	if !e.IsCall() {
		return NotMatched()
	}
	callee := e.Callee
	if callee == nil || callee.Kind != ir.ExprDependentMember {
		return NotMatched()
	}
	if callee.Base == nil || callee.Base.Kind != ir.ExprDeclRef {
		return NotMatched()
	}
	return MatchedWith(callee.Base)
}

// streamBoundPolicyCall matches par.on(s) passed directly as the policy:
// either a bare call, or a member call wrapped as
// implicit_cast(materialize(implicit_cast(call))). The callee must be a
// member access on a receiver of type policyType. Binds the call.
func streamBoundPolicyCall(e *ir.Expr, policyType string) Match {
	var call *ir.Expr
	switch {
	case e == nil:
	case e.Kind == ir.ExprImplicitCast:
		mt := e.Sub
		if mt == nil || mt.Kind != ir.ExprMaterialize {
			break
		}
		ice := mt.Sub
		if ice == nil || ice.Kind != ir.ExprImplicitCast {
			break
		}
		if ice.Sub != nil && ice.Sub.Kind == ir.ExprMemberCall {
			call = ice.Sub
		}
	case e.IsCall():
		call = e
	}
	if call == nil {
		return NotMatched()
	}

	member := call.Callee
	if member == nil || member.Kind != ir.ExprMember || member.Base == nil {
		return NotMatched()
	}
	if member.Base.StaticType() != policyType {
		return NotMatched()
	}
	return MatchedWith(call)
}

// onMethodTemporary matches a materialized temporary produced by calling
// on(...) on a policyType object. Binds the member call.
func onMethodTemporary(e *ir.Expr, policyType string) Match {
	e = e.IgnoreImplicit()
	if e == nil || e.Kind != ir.ExprMaterialize {
		return NotMatched()
	}
	call := e.Sub.IgnoreImplicit()
	if call == nil || call.Kind != ir.ExprMemberCall || call.Callee == nil {
		return NotMatched()
	}
	if call.Callee.Name != "on" || call.Callee.Base.StaticType() != policyType {
		return NotMatched()
	}
	return MatchedWith(call)
}

// policyToken matches a bare reference to a named policy object such as
// thrust::seq. Binds the reference.
func policyToken(e *ir.Expr) Match {
	e = e.IgnoreImplicit()
	if e == nil || e.Kind != ir.ExprDeclRef || e.Name == "" {
		return NotMatched()
	}
	return MatchedWith(e)
}

// declaredType returns the declared type of a named declaration, falling
// back to its canonical type.
func declaredType(e *ir.Expr) string {
	if e.DeclType != "" {
		return e.DeclType
	}
	return e.Type
}
