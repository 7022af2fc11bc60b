package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIgnoreImplicit(t *testing.T) {
	ref := &Expr{Kind: ExprDeclRef, Name: "seq", Text: "thrust::seq"}
	wrapped := &Expr{Kind: ExprImplicitCast, Sub: &Expr{Kind: ExprImplicitCast, Sub: ref}}

	assert.Same(t, ref, wrapped.IgnoreImplicit())
	assert.Same(t, ref, ref.IgnoreImplicit())

	var nilExpr *Expr
	assert.Nil(t, nilExpr.IgnoreImplicit())

	// A materialization is not an implicit cast and stops the walk.
	mat := &Expr{Kind: ExprMaterialize, Sub: ref}
	assert.Same(t, mat, (&Expr{Kind: ExprImplicitCast, Sub: mat}).IgnoreImplicit())
}

func TestSpellingLooksThroughWrappers(t *testing.T) {
	ref := &Expr{Kind: ExprDeclRef, Text: "stream"}

	assert.Equal(t, "stream", (&Expr{Kind: ExprImplicitCast, Sub: ref}).Spelling())
	assert.Equal(t, "&stream", (&Expr{Kind: ExprAddrOf, Sub: ref}).Spelling())
	assert.Equal(t, "", (*Expr)(nil).Spelling())
}

func TestStaticType(t *testing.T) {
	inner := &Expr{Kind: ExprDeclRef, Type: "int *"}
	assert.Equal(t, "int *", (&Expr{Kind: ExprImplicitCast, Sub: inner}).StaticType())
	assert.Equal(t, "float *", (&Expr{Kind: ExprImplicitCast, Type: "float *", Sub: inner}).StaticType())
}

func TestIsPointerType(t *testing.T) {
	tests := []struct {
		typ  string
		want bool
	}{
		{"int *", true},
		{"const float *", true},
		{"int *const", true},
		{"int **", true},
		{"const int *const volatile", true},
		{"int *volatile const", true},
		{"int *__restrict", true},
		{"int *restrict", true},
		{"float *__restrict__", true},
		{"int", false},
		{"const int", false},
		{"int *myconst", false},
		{"thrust::device_ptr<int>", false},
		{"thrust::device_vector<int>", false},
		{DependentType, false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPointerType(tt.typ))
		})
	}
}

func TestPointeeType(t *testing.T) {
	got, ok := PointeeType("const float *")
	assert.True(t, ok)
	assert.Equal(t, "const float", got)

	got, ok = PointeeType("int **")
	assert.True(t, ok)
	assert.Equal(t, "int *", got)

	got, ok = PointeeType("const int *const volatile")
	assert.True(t, ok)
	assert.Equal(t, "const int", got)

	got, ok = PointeeType("int *__restrict")
	assert.True(t, ok)
	assert.Equal(t, "int", got)

	got, ok = PointeeType("int *restrict")
	assert.True(t, ok)
	assert.Equal(t, "int", got)

	_, ok = PointeeType("thrust::device_vector<int>")
	assert.False(t, ok)
}

func TestCallSiteHelpers(t *testing.T) {
	site := &CallSite{
		Callee: "thrust::copy",
		Args:   []*Expr{{Text: "a"}, {Text: "b"}, {Text: "c"}},
		Range:  SourceRange{File: "k.cu", Line: 4, Column: 9},
	}

	assert.Equal(t, "copy", site.ShortName())
	assert.Equal(t, "c", site.LastArg().Text)
	assert.Nil(t, site.Arg(3))
	assert.Nil(t, site.Arg(-1))
	assert.Equal(t, "k.cu:4:9", site.Range.Location())

	empty := &CallSite{Callee: "sort"}
	assert.Equal(t, "sort", empty.ShortName())
	assert.Nil(t, empty.LastArg())
	assert.Equal(t, "", empty.Range.Location())
}
