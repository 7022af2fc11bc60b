package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/thrustmig/internal/ir"
)

// NodeKind tags the variant held by a Node.
type NodeKind int

const (
	NodeBranch  NodeKind = iota // Pred ? Then : Else
	NodeLeaf                    // emit a call with Strategy
	NodeGuarded                 // runtime is_device_ptr(arg) ? Device : Host
)

// Predicate is a static test a Branch node evaluates on the call site.
type Predicate int

const (
	// PredRawPointerExplicitBuffer: the argument is a raw pointer and the
	// explicit-buffer memory model is active.
	PredRawPointerExplicitBuffer Predicate = iota

	// PredDeviceResident: the argument classifies as device pointer, device
	// container or dependent type.
	PredDeviceResident
)

var predicateNames = [...]string{
	PredRawPointerExplicitBuffer: "raw_pointer_explicit_buffer",
	PredDeviceResident:           "device_resident",
}

func (p Predicate) String() string {
	if int(p) < 0 || int(p) >= len(predicateNames) {
		return "unknown"
	}
	return predicateNames[p]
}

// Strategy selects the policy expression a Leaf emits.
type Strategy int

const (
	StrategyDevicePolicy Strategy = iota // make_device_policy on the default queue
	StrategyMappedPolicy                 // translated source policy
	StrategySequential                   // oneapi::dpl::execution::seq
)

var strategyNames = [...]string{
	StrategyDevicePolicy: "device_policy",
	StrategyMappedPolicy: "mapped_policy",
	StrategySequential:   "sequential",
}

func (s Strategy) String() string {
	if int(s) < 0 || int(s) >= len(strategyNames) {
		return "unknown"
	}
	return strategyNames[s]
}

// Node is one node of an overload's rewrite decision tree.
//
// Only the fields of Kind are meaningful. Features are requested whenever
// the node lies on the evaluated path.
type Node struct {
	Kind     NodeKind
	Features []ir.Feature

	// Branch
	Pred       Predicate
	Arg        int // argument the predicate inspects; also the Guarded check
	Then, Else *Node

	// Leaf
	Strategy Strategy
	Wrap     int // leading forwarded args wrapped as device pointers

	// Guarded
	Device, Host *Node
}

// BuildTree builds the decision tree of one overload rule.
//
// The inspected argument is the first data argument: index 1 after a
// policy, else 0. Raw pointers under explicit buffers dispatch at runtime.
// Otherwise a policy overload maps its source policy, and a policy-less
// overload runs on the device only when its first argument is device
// resident.
func BuildTree(rule ir.OverloadRule) *Node {
	idx := rule.PolicyArgs()

	var fallback *Node
	if rule.Policy == ir.HasPolicy {
		fallback = &Node{Kind: NodeLeaf, Strategy: StrategyMappedPolicy}
	} else {
		fallback = &Node{
			Kind: NodeBranch,
			Pred: PredDeviceResident,
			Arg:  idx,
			Then: &Node{Kind: NodeLeaf, Strategy: StrategyDevicePolicy},
			Else: &Node{Kind: NodeLeaf, Strategy: StrategySequential},
		}
	}

	return &Node{
		Kind:     NodeBranch,
		Features: []ir.Feature{rule.Feature},
		Pred:     PredRawPointerExplicitBuffer,
		Arg:      idx,
		Then: &Node{
			Kind:     NodeGuarded,
			Features: []ir.Feature{ir.FeatureDeviceExt},
			Arg:      idx,
			Device:   &Node{Kind: NodeLeaf, Strategy: StrategyDevicePolicy, Wrap: rule.PtrCount},
			Host:     &Node{Kind: NodeLeaf, Strategy: StrategySequential},
		},
		Else: fallback,
	}
}

// String renders the tree one node per line, indented by depth.
func (n *Node) String() string {
	var b strings.Builder
	n.render(&b, 0, "")
	return b.String()
}

func (n *Node) render(b *strings.Builder, depth int, prefix string) {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent)
	b.WriteString(prefix)

	switch n.Kind {
	case NodeBranch:
		fmt.Fprintf(b, "if %s(arg%d)%s\n", n.Pred, n.Arg, featureSuffix(n.Features))
		n.Then.render(b, depth+1, "")
		b.WriteString(indent + "else\n")
		n.Else.render(b, depth+1, "")
	case NodeLeaf:
		b.WriteString(n.Strategy.String())
		if n.Wrap > 0 {
			fmt.Fprintf(b, "(wrap=%d)", n.Wrap)
		}
		b.WriteString(featureSuffix(n.Features) + "\n")
	case NodeGuarded:
		fmt.Fprintf(b, "guard is_device_ptr(arg%d)%s\n", n.Arg, featureSuffix(n.Features))
		n.Device.render(b, depth+1, "? ")
		n.Host.render(b, depth+1, ": ")
	}
}

func featureSuffix(features []ir.Feature) string {
	if len(features) == 0 {
		return ""
	}
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = string(f)
	}
	return " [" + strings.Join(names, ",") + "]"
}

// evalEnv is what the interpreter needs to evaluate a tree for one site.
type evalEnv struct {
	site       *ir.CallSite
	rule       ir.OverloadRule
	classifier *Classifier
	policy     *PolicyMapper
	emitter    *Emitter
	devicePtr  string
}

// evaluate walks n for env and returns the emitted text together with the
// features requested along the taken path, in first-request order.
func evaluate(n *Node, env *evalEnv) (string, []ir.Feature) {
	var features []ir.Feature
	text := env.eval(n, &features)
	return text, features
}

func (env *evalEnv) eval(n *Node, features *[]ir.Feature) string {
	for _, f := range n.Features {
		if !slices.Contains(*features, f) {
			*features = append(*features, f)
		}
	}

	switch n.Kind {
	case NodeBranch:
		if env.test(n.Pred, n.Arg) {
			return env.eval(n.Then, features)
		}
		return env.eval(n.Else, features)
	case NodeGuarded:
		check := env.emitter.DeviceCheck(env.site.Arg(n.Arg))
		device := env.eval(n.Device, features)
		host := env.eval(n.Host, features)
		return env.emitter.Guard(check, device, host)
	default:
		return env.leaf(n)
	}
}

func (env *evalEnv) test(p Predicate, idx int) bool {
	switch p {
	case PredRawPointerExplicitBuffer:
		return !env.site.Flags.UnifiedAddressing && env.classifier.IsRawPointer(env.site, idx)
	case PredDeviceResident:
		return env.classifier.Classify(env.site, idx, env.devicePtr).Class.DeviceResident()
	default:
		return false
	}
}

func (env *evalEnv) leaf(n *Node) string {
	forwarded := env.site.Args[env.rule.PolicyArgs():]

	var policy string
	switch n.Strategy {
	case StrategyDevicePolicy:
		policy = env.policy.DevicePolicy(env.site)
	case StrategyMappedPolicy:
		policy = env.policy.Map(env.site)
	default:
		policy = SequentialPolicy
	}
	return env.emitter.Call(env.rule.Target, policy, forwarded, n.Wrap)
}
