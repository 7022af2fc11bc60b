package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainCallSite = "thrustmig/callsite/v1"
	DomainRules    = "thrustmig/rules/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CallSiteID computes the content-addressed ID of a call site.
//
// The ID covers the callee, argument structure, source range (offset and
// line/column alike, since site files may give either) and context flags,
// so recording the same site twice within a run is idempotent and the same
// site in a later run maps to the same ID.
func CallSiteID(site *CallSite) (string, error) {
	canonical, err := MarshalCanonical(callSiteObject(site))
	if err != nil {
		return "", fmt.Errorf("CallSiteID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCallSite, canonical), nil
}

// MustCallSiteID is like CallSiteID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCallSiteID(site *CallSite) string {
	id, err := CallSiteID(site)
	if err != nil {
		panic(err)
	}
	return id
}

// RulesHash fingerprints a compiled rule table so a run log can tell which
// rules produced it. Function order is significant.
func RulesHash(funcs []FunctionRules) (string, error) {
	list := make([]any, len(funcs))
	for i, fn := range funcs {
		overloads := make([]any, len(fn.Overloads))
		for j, o := range fn.Overloads {
			overloads[j] = map[string]any{
				"args":    o.ArgCount,
				"policy":  bool(o.Policy),
				"ptrs":    o.PtrCount,
				"target":  o.Target,
				"feature": string(o.Feature),
				"ext_api": o.ExtAPI,
			}
		}
		list[i] = map[string]any{"name": fn.Name, "overloads": overloads}
	}

	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("RulesHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRules, canonical), nil
}

func callSiteObject(site *CallSite) map[string]any {
	args := make([]any, len(site.Args))
	for i, a := range site.Args {
		args[i] = exprObject(a)
	}
	return map[string]any{
		"callee": site.Callee,
		"args":   args,
		"range": map[string]any{
			"file":   site.Range.File,
			"offset": site.Range.Offset,
			"length": site.Range.Length,
			"line":   site.Range.Line,
			"column": site.Range.Column,
		},
		"flags": map[string]any{
			"unified_addressing": site.Flags.UnifiedAddressing,
			"ext_dpl_api":        site.Flags.ExtDPLAPI,
			"device_runtime":     site.Flags.DeviceRuntime,
		},
	}
}

// exprObject converts an expression tree into canonical-JSON input.
// Empty fields are omitted so descriptors that differ only in unset
// optional fields hash identically.
func exprObject(e *Expr) map[string]any {
	if e == nil {
		return map[string]any{"kind": string(ExprOther)}
	}
	obj := map[string]any{"kind": string(e.Kind)}
	for key, val := range map[string]string{
		"text":      e.Text,
		"type":      e.Type,
		"name":      e.Name,
		"decl_type": e.DeclType,
	} {
		if val != "" {
			obj[key] = val
		}
	}
	if e.Callee != nil {
		obj["callee"] = exprObject(e.Callee)
	}
	if e.Base != nil {
		obj["base"] = exprObject(e.Base)
	}
	if e.Sub != nil {
		obj["sub"] = exprObject(e.Sub)
	}
	if len(e.Args) > 0 {
		args := make([]any, len(e.Args))
		for i, a := range e.Args {
			args[i] = exprObject(a)
		}
		obj["args"] = args
	}
	return obj
}
