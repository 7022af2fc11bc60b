package ir

import (
	"fmt"
	"strings"
)

// Flags carries the compilation-context switches the engine reads.
type Flags struct {
	// UnifiedAddressing selects the unified shared memory model. When false
	// the explicit-buffer model is active.
	UnifiedAddressing bool `json:"unified_addressing" yaml:"unified_addressing"`

	// ExtDPLAPI enables rules that target the extended oneDPL API.
	ExtDPLAPI bool `json:"ext_dpl_api" yaml:"ext_dpl_api"`

	// DeviceRuntime records whether the device runtime feature is enabled
	// for the translation unit.
	DeviceRuntime bool `json:"device_runtime" yaml:"device_runtime"`
}

// SourceRange locates a call expression in its source document.
type SourceRange struct {
	File   string `json:"file" yaml:"file"`
	Offset int    `json:"offset" yaml:"offset"`
	Length int    `json:"length" yaml:"length"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column int    `json:"column,omitempty" yaml:"column,omitempty"`
}

// CallSite is a snapshot of one call expression handed to the engine.
type CallSite struct {
	// Callee is the qualified source function name, e.g. "thrust::sort".
	Callee string `json:"callee" yaml:"callee"`

	// Args are the call arguments in source order.
	Args []*Expr `json:"args" yaml:"args"`

	// Text is the original spelling of the whole call, used for pass-through.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	Range SourceRange `json:"range" yaml:"range"`
	Flags Flags       `json:"flags" yaml:"flags"`
}

// ShortName returns the callee name without its namespace qualifier.
func (c *CallSite) ShortName() string {
	if i := strings.LastIndex(c.Callee, "::"); i >= 0 {
		return c.Callee[i+2:]
	}
	return c.Callee
}

// Arg returns the i-th argument or nil when out of range.
func (c *CallSite) Arg(i int) *Expr {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// LastArg returns the final argument or nil for a call with no arguments.
func (c *CallSite) LastArg() *Expr {
	return c.Arg(len(c.Args) - 1)
}

// Location formats the range as file:line:column for diagnostics.
func (r SourceRange) Location() string {
	if r.Line == 0 {
		return r.File
	}
	return fmt.Sprintf("%s:%d:%d", r.File, r.Line, r.Column)
}
