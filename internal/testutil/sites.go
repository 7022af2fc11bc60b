package testutil

import (
	"strings"

	"github.com/roach88/thrustmig/internal/ir"
)

// Builders for call-site descriptors, spelled the way a front end would
// report them for common Thrust code.

// Ref is a named variable of type typ.
func Ref(name, typ string) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprDeclRef, Text: name, Name: name, Type: typ, DeclType: typ}
}

// Ptr is a raw pointer variable to elem.
func Ptr(name, elem string) *ir.Expr {
	return Ref(name, elem+" *")
}

// Implicit wraps e in an implicit conversion to typ.
func Implicit(e *ir.Expr, typ string) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprImplicitCast, Type: typ, Sub: e}
}

// MemberCall is base.method(args...) with result type typ.
func MemberCall(base *ir.Expr, method, typ string, args ...*ir.Expr) *ir.Expr {
	return &ir.Expr{
		Kind:   ir.ExprMemberCall,
		Text:   base.Spelling() + "." + method + "(" + spell(args) + ")",
		Type:   typ,
		Callee: &ir.Expr{Kind: ir.ExprMember, Name: method, Base: base},
		Args:   args,
	}
}

// DeviceIter is v.begin() or v.end() on a thrust::device_vector<elem>.
func DeviceIter(v, method, elem string) *ir.Expr {
	return MemberCall(Ref(v, "thrust::device_vector<"+elem+">"), method,
		"thrust::detail::normal_iterator<thrust::device_ptr<"+elem+">>")
}

// HostIter is v.begin() or v.end() on a thrust::host_vector<elem>.
func HostIter(v, method, elem string) *ir.Expr {
	return MemberCall(Ref(v, "thrust::host_vector<"+elem+">"), method,
		"thrust::detail::normal_iterator<"+elem+" *>")
}

// DependentIter is v.method() inside an uninstantiated template where v
// has declared type declType.
func DependentIter(v, method, declType string) *ir.Expr {
	return &ir.Expr{
		Kind: ir.ExprCall,
		Text: v + "." + method + "()",
		Type: ir.DependentType,
		Callee: &ir.Expr{
			Kind: ir.ExprDependentMember,
			Name: method,
			Base: &ir.Expr{Kind: ir.ExprDeclRef, Text: v, Name: v, Type: ir.DependentType, DeclType: declType},
		},
	}
}

// policyTypes are the canonical types of the named Thrust policies.
var policyTypes = map[string]string{
	"seq":    "thrust::detail::seq_t",
	"host":   "thrust::detail::host_t",
	"device": "thrust::detail::device_t",
	"par":    "thrust::cuda_cub::par_t",
}

// Policy is a reference to a named Thrust policy such as thrust::seq.
func Policy(name string) *ir.Expr {
	typ, ok := policyTypes[name]
	if !ok {
		typ = "thrust::detail::execution_policy_base<" + name + "_t>"
	}
	return &ir.Expr{Kind: ir.ExprDeclRef, Text: "thrust::" + name, Name: name, Type: typ, DeclType: "const " + typ}
}

// StreamPolicy is thrust::cuda::par.on(stream) passed directly.
func StreamPolicy(stream *ir.Expr) *ir.Expr {
	par := &ir.Expr{Kind: ir.ExprDeclRef, Text: "thrust::cuda::par", Name: "par", Type: "thrust::cuda_cub::par_t"}
	return &ir.Expr{
		Kind:   ir.ExprMemberCall,
		Text:   "thrust::cuda::par.on(" + stream.Spelling() + ")",
		Type:   "thrust::cuda_cub::execute_on_stream",
		Callee: &ir.Expr{Kind: ir.ExprMember, Name: "on", Base: par},
		Args:   []*ir.Expr{stream},
	}
}

// OstreamIter is std::ostream_iterator<elem>(std::cout, sep).
func OstreamIter(elem string) *ir.Expr {
	return &ir.Expr{
		Kind: ir.ExprTemporary,
		Text: "std::ostream_iterator<" + elem + ">(std::cout, \" \")",
		Type: "std::ostream_iterator<" + elem + ">",
	}
}

// Lit is a literal or other expression the engine forwards verbatim.
func Lit(text, typ string) *ir.Expr {
	return &ir.Expr{Kind: ir.ExprOther, Text: text, Type: typ}
}

// Site is a call to callee with args, located at test.cu:line:1.
func Site(callee string, line int, args ...*ir.Expr) *ir.CallSite {
	return &ir.CallSite{
		Callee: callee,
		Args:   args,
		Text:   callee + "(" + spell(args) + ")",
		Range:  ir.SourceRange{File: "test.cu", Offset: line * 100, Length: 40, Line: line, Column: 1},
	}
}

func spell(args []*ir.Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Spelling()
	}
	return strings.Join(parts, ", ")
}
