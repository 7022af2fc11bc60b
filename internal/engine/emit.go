package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/thrustmig/internal/ir"
)

// GuardStyle selects how a runtime device-pointer check is rendered.
type GuardStyle int

const (
	// GuardExpression renders `check ? device : host`, usable anywhere an
	// expression is.
	GuardExpression GuardStyle = iota

	// GuardStatement renders an if/else statement.
	GuardStatement
)

// String returns "expression" or "statement".
func (s GuardStyle) String() string {
	if s == GuardStatement {
		return "statement"
	}
	return "expression"
}

// ParseGuardStyle parses a --guard-style flag value.
func ParseGuardStyle(s string) (GuardStyle, error) {
	switch s {
	case "", "expression":
		return GuardExpression, nil
	case "statement":
		return GuardStatement, nil
	default:
		return GuardExpression, fmt.Errorf("unknown guard style %q (want expression or statement)", s)
	}
}

// Emitter renders target call text.
type Emitter struct {
	helperNamespace string
	style           GuardStyle
}

// NewEmitter creates an emitter.
func NewEmitter(helperNamespace string, style GuardStyle) *Emitter {
	return &Emitter{helperNamespace: helperNamespace, style: style}
}

// Call renders target(policy, args...). The first wrap args are wrapped as
// device pointers of their element type.
func (e *Emitter) Call(target, policy string, args []*ir.Expr, wrap int) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, policy)
	for i, a := range args {
		if i < wrap {
			parts = append(parts, e.DevicePointer(a))
			continue
		}
		parts = append(parts, a.Spelling())
	}
	return target + "(" + strings.Join(parts, ", ") + ")"
}

// DevicePointer renders ns::device_pointer<T>(arg).
func (e *Emitter) DevicePointer(arg *ir.Expr) string {
	return fmt.Sprintf("%sdevice_pointer<%s>(%s)", e.helperNamespace, elementType(arg), arg.Spelling())
}

// DeviceCheck renders the runtime test for device memory.
func (e *Emitter) DeviceCheck(arg *ir.Expr) string {
	return e.helperNamespace + "is_device_ptr(" + arg.Spelling() + ")"
}

// Guard renders a two-way dispatch on cond. The expression form is
// parenthesized because it replaces a call inside a larger expression.
func (e *Emitter) Guard(cond, device, host string) string {
	if e.style == GuardStatement {
		return "if (" + cond + ") {\n  " + device + ";\n} else {\n  " + host + ";\n}"
	}
	return "(" + cond + " ? " + device + " : " + host + ")"
}

// elementType returns the pointee type of a pointer argument, preferring
// the declared type of a named declaration.
func elementType(arg *ir.Expr) string {
	if ref := arg.IgnoreImplicit(); ref != nil && ref.Kind == ir.ExprDeclRef && ref.DeclType != "" {
		if t, ok := ir.PointeeType(ref.DeclType); ok {
			return t
		}
	}
	if t, ok := ir.PointeeType(arg.StaticType()); ok {
		return t
	}
	return "std::remove_pointer_t<decltype(" + arg.Spelling() + ")>"
}
