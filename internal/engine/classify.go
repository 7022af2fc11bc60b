package engine

import (
	"strings"

	"github.com/roach88/thrustmig/internal/ir"
)

// TypeNames holds the library type spellings the engine recognizes.
// Matching is by substring on canonical type strings unless noted.
type TypeNames struct {
	DevicePointer   string // default classification target
	DeviceContainer string
	HostContainer   string // matched on declared types of dependent receivers
	OutputStream    string // copy destinations that disable pointer dispatch
	StreamPolicy    string // exact receiver type of par.on(stream)
}

// DefaultTypeNames returns the Thrust spellings.
func DefaultTypeNames() TypeNames {
	return TypeNames{
		DevicePointer:   "thrust::device_ptr",
		DeviceContainer: "thrust::device_vector",
		HostContainer:   "thrust::host_vector",
		OutputStream:    "std::ostream_iterator",
		StreamPolicy:    "thrust::cuda_cub::par_t",
	}
}

// Classifier decides where a call argument's data lives.
//
// Classification is pure and never fails: anything it cannot resolve is
// ClassOther, except unresolved template-dependent types, which are
// presumed device resident.
type Classifier struct {
	names TypeNames
}

// NewClassifier creates a classifier for the given type spellings.
func NewClassifier(names TypeNames) *Classifier {
	return &Classifier{names: names}
}

// Classify classifies argument idx of site. targetType is the type
// spelling that yields ClassDevicePointer; empty means the configured
// device pointer type.
//
// Rules, first match wins:
//  1. copy into an output-stream iterator: Other
//  2. dependent member call on a host container declaration: HostContainer
//  3. canonical type is the dependent placeholder: DependentType
//  4. type names the device container: DeviceContainer
//  5. type contains targetType: DevicePointer
//  6. Other
func (c *Classifier) Classify(site *ir.CallSite, idx int, targetType string) ir.ArgumentType {
	if targetType == "" {
		targetType = c.names.DevicePointer
	}

	arg := site.Arg(idx)

	if copyToOutputStream(site, c.names.OutputStream).Matched() {
		return ir.ArgumentType{Class: ir.ClassOther, Canonical: arg.StaticType()}
	}

	if arg == nil {
		return ir.ArgumentType{Class: ir.ClassOther}
	}

	if m := dependentMemberCallOn(arg); m.Matched() {
		if declared := declaredType(m.Expr()); strings.Contains(declared, c.names.HostContainer) {
			return ir.ArgumentType{Class: ir.ClassHostContainer, Canonical: declared}
		}
	}

	canonical := arg.StaticType()
	switch {
	case canonical == ir.DependentType:
		return ir.ArgumentType{Class: ir.ClassDependentType, Canonical: canonical}
	case strings.Contains(canonical, c.names.DeviceContainer):
		return ir.ArgumentType{Class: ir.ClassDeviceContainer, Canonical: canonical}
	case strings.Contains(canonical, targetType):
		return ir.ArgumentType{Class: ir.ClassDevicePointer, Canonical: canonical}
	default:
		return ir.ArgumentType{Class: ir.ClassOther, Canonical: canonical}
	}
}

// IsRawPointer reports whether argument idx is a raw pointer that pointer
// dispatch applies to. A copy into an output-stream iterator never is.
func (c *Classifier) IsRawPointer(site *ir.CallSite, idx int) bool {
	if copyToOutputStream(site, c.names.OutputStream).Matched() {
		return false
	}
	return ir.IsPointerType(site.Arg(idx).StaticType())
}
