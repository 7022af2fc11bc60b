package engine

import (
	"strings"

	"github.com/roach88/thrustmig/internal/ir"
)

// Target execution policy spellings.
const (
	DevicePolicyFunc = "oneapi::dpl::execution::make_device_policy"
	SequentialPolicy = "oneapi::dpl::execution::seq"
)

// DefaultHelperNamespace prefixes helper functions such as is_device_ptr.
const DefaultHelperNamespace = "dpct::"

// QueueAccessor renders the expression that yields the default device
// queue at a call site.
type QueueAccessor interface {
	Queue(site *ir.CallSite) string
}

// QueueFunc adapts a function to QueueAccessor.
type QueueFunc func(site *ir.CallSite) string

// Queue implements QueueAccessor.
func (f QueueFunc) Queue(site *ir.CallSite) string {
	return f(site)
}

// StaticQueue returns an accessor that always renders expr.
func StaticQueue(expr string) QueueAccessor {
	return QueueFunc(func(*ir.CallSite) string { return expr })
}

// DefaultQueue returns the in-order queue accessor of the helper namespace.
func DefaultQueue(helperNamespace string) QueueAccessor {
	return StaticQueue(helperNamespace + "get_in_order_queue()")
}

// PolicyMapper translates a source execution policy argument into a target
// policy expression.
type PolicyMapper struct {
	names TypeNames
	queue QueueAccessor
}

// NewPolicyMapper creates a mapper.
func NewPolicyMapper(names TypeNames, queue QueueAccessor) *PolicyMapper {
	return &PolicyMapper{names: names, queue: queue}
}

// DevicePolicy renders a device policy on the default queue.
func (m *PolicyMapper) DevicePolicy(site *ir.CallSite) string {
	return DevicePolicyFunc + "(" + m.queue.Queue(site) + ")"
}

// Map renders the target policy for the policy argument of site (arg 0).
//
// A stream-bound policy, par.on(s), becomes a device policy on *s. Named
// policies map device/par to the device policy and seq/host to the
// sequential policy; other names pass through verbatim. Anything
// unrecognized falls back to the device policy on the default queue.
func (m *PolicyMapper) Map(site *ir.CallSite) string {
	arg := site.Arg(0)

	stream := firstMatch(
		func() Match { return streamBoundPolicyCall(arg, m.names.StreamPolicy) },
		func() Match { return onMethodTemporary(arg, m.names.StreamPolicy) },
	)
	if stream.Matched() {
		return DevicePolicyFunc + "(" + Deref(stream.Expr().Arg(0)) + ")"
	}

	if tok := policyToken(arg); tok.Matched() {
		switch name := tok.Expr().Name; name {
		case "device", "par":
			return m.DevicePolicy(site)
		case "seq", "host":
			return SequentialPolicy
		default:
			return name
		}
	}

	return m.DevicePolicy(site)
}

// Deref renders the dereference of a stream expression: &x becomes x, an
// identifier s becomes *s, anything else *(expr).
func Deref(e *ir.Expr) string {
	e = e.IgnoreImplicit()
	if e != nil && e.Kind == ir.ExprAddrOf && e.Sub != nil {
		return e.Sub.Spelling()
	}

	text := strings.TrimSpace(e.Spelling())
	if rest, ok := strings.CutPrefix(text, "&"); ok && isIdentifier(rest) {
		return rest
	}
	if isIdentifier(text) {
		return "*" + text
	}
	return "*(" + text + ")"
}

// isIdentifier reports whether s is a possibly qualified C++ identifier.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(strings.TrimPrefix(s, "::"), "::") {
		if part == "" {
			return false
		}
		for i, r := range part {
			switch {
			case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9' && i > 0:
			default:
				return false
			}
		}
	}
	return true
}

// policyTypeMarkers are substrings of the canonical types of Thrust
// execution policy objects.
var policyTypeMarkers = []string{
	"thrust::detail::execution_policy_base",
	"thrust::execution_policy",
	"thrust::detail::execute_with_allocator",
	"thrust::cuda_cub::par_t",
	"thrust::cuda_cub::par_nosync_t",
	"thrust::cuda_cub::execute_on_stream",
	"thrust::cuda_cub::execution_policy",
	"thrust::system::detail::sequential::tag",
	"thrust::detail::seq_t",
	"thrust::detail::host_t",
	"thrust::detail::device_t",
	"thrust::system::cpp::detail::par_t",
	"thrust::system::omp::detail::par_t",
	"thrust::system::tbb::detail::par_t",
}

// policyTokenNames are the policy objects recognized by name when the
// argument carries no usable type.
var policyTokenNames = map[string]bool{
	"seq":        true,
	"host":       true,
	"device":     true,
	"par":        true,
	"par_nosync": true,
}

// HasLeadingPolicy reports whether the first argument of site is an
// execution policy.
func HasLeadingPolicy(site *ir.CallSite) ir.PolicyState {
	arg := site.Arg(0)
	if arg == nil {
		return ir.NoPolicy
	}

	typ := arg.StaticType()
	for _, marker := range policyTypeMarkers {
		if strings.Contains(typ, marker) {
			return ir.HasPolicy
		}
	}

	if typ == "" || typ == ir.DependentType {
		if tok := policyToken(arg); tok.Matched() && policyTokenNames[tok.Expr().Name] {
			return ir.HasPolicy
		}
	}
	return ir.NoPolicy
}
