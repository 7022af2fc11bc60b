package ir

import "strings"

// ExprKind identifies the structural shape of an argument expression.
type ExprKind string

const (
	// ExprDeclRef is a reference to a named declaration (variable, enum
	// constant, policy object).
	ExprDeclRef ExprKind = "decl_ref"

	// ExprCall is a free function call.
	ExprCall ExprKind = "call"

	// ExprMemberCall is a method call. Callee is the member access.
	ExprMemberCall ExprKind = "member_call"

	// ExprMember is a resolved member access (base.name).
	ExprMember ExprKind = "member"

	// ExprDependentMember is a member access whose base type depends on an
	// uninstantiated template parameter.
	ExprDependentMember ExprKind = "dependent_member"

	// ExprTemporary is a temporary object construction, T(args...).
	ExprTemporary ExprKind = "temporary"

	// ExprMaterialize wraps a prvalue materialized into a temporary.
	ExprMaterialize ExprKind = "materialize"

	// ExprImplicitCast is a compiler-inserted conversion.
	ExprImplicitCast ExprKind = "implicit_cast"

	// ExprAddrOf is the address-of operator applied to Sub.
	ExprAddrOf ExprKind = "addr_of"

	// ExprOther is anything the engine does not inspect structurally.
	ExprOther ExprKind = "other"
)

// DependentType is the canonical spelling of a type that cannot be resolved
// because it depends on an uninstantiated template parameter.
const DependentType = "<dependent type>"

// Expr describes one argument expression of a call site.
//
// Only the fields relevant to Kind are populated:
//   - decl_ref: Name, DeclType
//   - call, member_call: Callee, Args
//   - member, dependent_member: Base, Name
//   - temporary: Args
//   - materialize, implicit_cast, addr_of: Sub
//
// Type is always the canonical, unqualified static type.
type Expr struct {
	Kind     ExprKind `json:"kind" yaml:"kind"`
	Text     string   `json:"text,omitempty" yaml:"text,omitempty"`
	Type     string   `json:"type,omitempty" yaml:"type,omitempty"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	DeclType string   `json:"decl_type,omitempty" yaml:"decl_type,omitempty"`
	Callee   *Expr    `json:"callee,omitempty" yaml:"callee,omitempty"`
	Base     *Expr    `json:"base,omitempty" yaml:"base,omitempty"`
	Sub      *Expr    `json:"sub,omitempty" yaml:"sub,omitempty"`
	Args     []*Expr  `json:"args,omitempty" yaml:"args,omitempty"`
}

// IgnoreImplicit strips implicit casts and returns the innermost expression.
// Returns nil for a nil receiver.
func (e *Expr) IgnoreImplicit() *Expr {
	for e != nil && e.Kind == ExprImplicitCast && e.Sub != nil {
		e = e.Sub
	}
	return e
}

// IsCall reports whether e is a free or member call.
func (e *Expr) IsCall() bool {
	return e != nil && (e.Kind == ExprCall || e.Kind == ExprMemberCall)
}

// Arg returns the i-th argument of a call or temporary, or nil.
func (e *Expr) Arg(i int) *Expr {
	if e == nil || i < 0 || i >= len(e.Args) {
		return nil
	}
	return e.Args[i]
}

// Spelling returns the source text of the expression. Wrapper nodes with no
// text of their own (implicit casts, materializations) spell as their
// operand.
func (e *Expr) Spelling() string {
	for e != nil {
		if e.Text != "" {
			return e.Text
		}
		if e.Kind == ExprAddrOf && e.Sub != nil {
			return "&" + e.Sub.Spelling()
		}
		e = e.Sub
	}
	return ""
}

// StaticType returns the canonical type of the expression, looking through
// wrapper nodes that carry no type.
func (e *Expr) StaticType() string {
	for e != nil {
		if e.Type != "" {
			return e.Type
		}
		e = e.Sub
	}
	return ""
}

// pointerQualifiers may trail the '*' of a pointer type, in any order and
// repeated.
var pointerQualifiers = []string{"const", "volatile", "restrict", "__restrict", "__restrict__"}

// trimPointerQualifiers strips every trailing qualifier that applies to the
// pointer itself, e.g. "int *const volatile" -> "int *".
func trimPointerQualifiers(t string) string {
	t = strings.TrimSpace(t)
	for {
		trimmed := t
		for _, q := range pointerQualifiers {
			rest, ok := strings.CutSuffix(t, q)
			if !ok {
				continue
			}
			// Only whole words: "int *myconst" is not qualified.
			if rest == "" || rest[len(rest)-1] == ' ' || rest[len(rest)-1] == '*' {
				trimmed = strings.TrimSpace(rest)
				break
			}
		}
		if trimmed == t {
			return t
		}
		t = trimmed
	}
}

// IsPointerType reports whether a canonical type spelling denotes a raw
// pointer, e.g. "int *", "const float *const" or "int *__restrict".
func IsPointerType(t string) bool {
	return strings.HasSuffix(trimPointerQualifiers(t), "*")
}

// PointeeType returns the element type of a raw pointer type spelling.
// The second result is false when t is not a pointer type.
func PointeeType(t string) (string, bool) {
	t = trimPointerQualifiers(t)
	if !strings.HasSuffix(t, "*") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimSuffix(t, "*")), true
}
