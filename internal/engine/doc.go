// Package engine implements the thrustmig call rewriter.
//
// For each call site the engine looks up the callee's overload rules,
// selects the rule matching the argument count and the presence of a
// leading execution policy, and evaluates that rule's decision tree to
// produce replacement text.
//
// Components:
//
//	Classifier    where an argument's data lives (device, host, dependent)
//	PolicyMapper  source execution policy -> target policy expression
//	Selector      overload rule matching a call's shape
//	Node          decision tree, built once per rule, walked per call
//	Emitter       target call text, device pointer wrapping, runtime guards
//	Registry      immutable rule lookup; DefaultRegistry compiles the
//	              embedded table once
//
// Decision tree of every overload (idx is 1 after a policy, else 0):
//
//	if arg[idx] is a raw pointer and unified addressing is off:
//	    is_device_ptr(arg[idx]) ? device policy, wrapped : sequential
//	else if the overload takes a policy:
//	    mapped policy
//	else if arg[idx] is device resident:
//	    device policy
//	else:
//	    sequential
//
// Template-dependent argument types are treated as device resident. A
// call the rules cannot express is reported unsupported and left as is;
// nothing a single call site does aborts a migration run.
package engine
