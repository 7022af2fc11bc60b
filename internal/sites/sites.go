// Package sites reads call-site files: YAML documents listing the Thrust
// call expressions of one translation unit as a front end reported them.
//
//	unit: kernel.cu
//	flags:
//	  unified_addressing: true
//	sites:
//	  - callee: thrust::sort
//	    text: thrust::sort(v.begin(), v.end())
//	    range: { offset: 120, length: 32, line: 7, column: 3 }
//	    args:
//	      - kind: member_call
//	        text: v.begin()
//	        type: thrust::detail::normal_iterator<thrust::device_ptr<int>>
package sites

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/thrustmig/internal/ir"
)

// File is one decoded call-site file.
type File struct {
	// Unit labels the translation unit. Defaults to the file path.
	Unit string `yaml:"unit,omitempty"`

	// Flags apply to every site in the file, in addition to any flags the
	// site sets itself.
	Flags ir.Flags `yaml:"flags,omitempty"`

	Sites []*ir.CallSite `yaml:"sites"`
}

// knownKinds are the expression kinds a file may use.
var knownKinds = map[ir.ExprKind]bool{
	ir.ExprDeclRef:         true,
	ir.ExprCall:            true,
	ir.ExprMemberCall:      true,
	ir.ExprMember:          true,
	ir.ExprDependentMember: true,
	ir.ExprTemporary:       true,
	ir.ExprMaterialize:     true,
	ir.ExprImplicitCast:    true,
	ir.ExprAddrOf:          true,
	ir.ExprOther:           true,
}

// Load reads and decodes the call-site file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes a call-site file. name is used as the default unit.
//
// Decoding is strict: unknown fields are rejected. After decoding, each
// site without a file in its range gets the unit, and file-level flags
// are merged into every site.
func Parse(data []byte, name string) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if f.Unit == "" {
		f.Unit = name
	}
	if err := Validate(f.Sites); err != nil {
		return nil, fmt.Errorf("invalid site file %s: %w", name, err)
	}
	f.Normalize()
	return &f, nil
}

// Normalize fills site defaults from the file: the range file and the
// flags. A flag set on either the file or the site is set on the site.
// Sites with no position at all are placed on line i+1, so identical calls
// listed twice stay distinct.
func (f *File) Normalize() {
	for i, s := range f.Sites {
		if s.Range.File == "" {
			s.Range.File = f.Unit
		}
		if s.Range.Offset == 0 && s.Range.Length == 0 && s.Range.Line == 0 {
			s.Range.Line, s.Range.Column = i+1, 1
		}
		s.Flags = MergeFlags(s.Flags, f.Flags)
	}
}

// MergeFlags returns the union of a and b.
func MergeFlags(a, b ir.Flags) ir.Flags {
	return ir.Flags{
		UnifiedAddressing: a.UnifiedAddressing || b.UnifiedAddressing,
		ExtDPLAPI:         a.ExtDPLAPI || b.ExtDPLAPI,
		DeviceRuntime:     a.DeviceRuntime || b.DeviceRuntime,
	}
}

// Validate checks that every site names a callee and that every argument
// expression is well formed.
func Validate(list []*ir.CallSite) error {
	for i, s := range list {
		if s == nil {
			return fmt.Errorf("sites[%d]: empty site", i)
		}
		if s.Callee == "" {
			return fmt.Errorf("sites[%d]: callee is required", i)
		}
		for j, a := range s.Args {
			if err := validateExpr(a); err != nil {
				return fmt.Errorf("sites[%d].args[%d]%w", i, j, err)
			}
		}
	}
	return nil
}

func validateExpr(e *ir.Expr) error {
	if e == nil {
		return errors.New(": empty expression")
	}
	if e.Kind == "" {
		return errors.New(": kind is required")
	}
	if !knownKinds[e.Kind] {
		return fmt.Errorf(": unknown kind %q", e.Kind)
	}
	children := []struct {
		field string
		expr  *ir.Expr
	}{{"callee", e.Callee}, {"base", e.Base}, {"sub", e.Sub}}
	for _, c := range children {
		if c.expr == nil {
			continue
		}
		if err := validateExpr(c.expr); err != nil {
			return fmt.Errorf(".%s%w", c.field, err)
		}
	}
	for i, a := range e.Args {
		if err := validateExpr(a); err != nil {
			return fmt.Errorf(".args[%d]%w", i, err)
		}
	}
	return nil
}
