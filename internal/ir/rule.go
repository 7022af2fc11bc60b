package ir

// PolicyState records whether an overload takes a leading execution policy.
type PolicyState bool

const (
	HasPolicy PolicyState = true
	NoPolicy  PolicyState = false
)

// String returns "policy" or "no_policy".
func (p PolicyState) String() string {
	if p {
		return "policy"
	}
	return "no_policy"
}

// OverloadRule describes one recognized call shape and its target rewrite.
type OverloadRule struct {
	ArgCount int         `json:"args"`              // total argument count, policy included
	Policy   PolicyState `json:"policy"`            // leading policy argument expected
	PtrCount int         `json:"ptrs"`              // leading forwarded args wrapped as device pointers
	Target   string      `json:"target"`            // "oneapi::dpl::sort"
	Feature  Feature     `json:"feature"`           // helper feature reported on every rewrite
	ExtAPI   bool        `json:"ext_api,omitempty"` // requires the extended oneDPL API flag
}

// RuleKey is the selection key of an overload. Unique per function.
type RuleKey struct {
	ArgCount int
	Policy   PolicyState
}

// Key returns the rule's selection key.
func (r OverloadRule) Key() RuleKey {
	return RuleKey{ArgCount: r.ArgCount, Policy: r.Policy}
}

// PolicyArgs returns how many leading arguments are consumed as the policy.
func (r OverloadRule) PolicyArgs() int {
	if r.Policy == HasPolicy {
		return 1
	}
	return 0
}

// ForwardedCount returns how many arguments are forwarded to the target.
func (r OverloadRule) ForwardedCount() int {
	return r.ArgCount - r.PolicyArgs()
}

// FunctionRules is the ordered overload list for one source function.
// Overloads are in ascending specificity; selection walks them in reverse.
type FunctionRules struct {
	Name      string         `json:"name"` // "thrust::sort"
	Overloads []OverloadRule `json:"overloads"`
}
