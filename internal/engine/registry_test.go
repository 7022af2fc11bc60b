package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thrustmig/internal/compiler"
	"github.com/roach88/thrustmig/internal/ir"
	tu "github.com/roach88/thrustmig/internal/testutil"
)

func sortRules() []ir.FunctionRules {
	return []ir.FunctionRules{{
		Name: "thrust::sort",
		Overloads: []ir.OverloadRule{
			{ArgCount: 2, Policy: ir.NoPolicy, PtrCount: 2, Target: "oneapi::dpl::sort", Feature: ir.FeatureDPLUtils},
			{ArgCount: 3, Policy: ir.HasPolicy, PtrCount: 2, Target: "oneapi::dpl::sort", Feature: ir.FeatureDPLUtils},
			{ArgCount: 3, Policy: ir.NoPolicy, PtrCount: 2, Target: "oneapi::dpl::sort", Feature: ir.FeatureDPLUtils},
			{ArgCount: 4, Policy: ir.HasPolicy, PtrCount: 2, Target: "oneapi::dpl::sort", Feature: ir.FeatureDPLUtils},
		},
	}}
}

func TestNewRegistryRejectsInvalidTable(t *testing.T) {
	funcs := sortRules()
	funcs[0].Overloads = append(funcs[0].Overloads, funcs[0].Overloads[0])

	_, err := NewRegistry(funcs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), compiler.ErrDuplicateKey)
}

func TestNewRegistryCopiesInput(t *testing.T) {
	funcs := sortRules()
	reg, err := NewRegistry(funcs)
	require.NoError(t, err)

	funcs[0].Overloads[0].Target = "mutated"

	fn, ok := reg.Lookup("thrust::sort")
	require.True(t, ok)
	assert.Equal(t, "oneapi::dpl::sort", fn.Overloads[0].Target)
	assert.Equal(t, "oneapi::dpl::sort", reg.Rules()[0].Overloads[0].Target)
}

func TestRegistryLookup(t *testing.T) {
	reg, err := NewRegistry(sortRules())
	require.NoError(t, err)

	_, ok := reg.Lookup("thrust::sort")
	assert.True(t, ok)
	_, ok = reg.Lookup("sort")
	assert.False(t, ok, "lookup is by qualified name")
	assert.Equal(t, []string{"thrust::sort"}, reg.Functions())
	assert.Len(t, reg.Hash(), 64)
}

func TestRegistrySelect(t *testing.T) {
	reg, err := NewRegistry(sortRules())
	require.NoError(t, err)

	t.Run("policy overload", func(t *testing.T) {
		site := tu.Site("thrust::sort", 1, tu.Policy("seq"), tu.DeviceIter("v", "begin", "int"), tu.DeviceIter("v", "end", "int"))
		rule, tree, err := reg.Select(site)
		require.NoError(t, err)
		assert.Equal(t, ir.RuleKey{ArgCount: 3, Policy: ir.HasPolicy}, rule.Key())
		assert.NotNil(t, tree)
	})

	t.Run("comparator overload", func(t *testing.T) {
		site := tu.Site("thrust::sort", 1, tu.DeviceIter("v", "begin", "int"), tu.DeviceIter("v", "end", "int"), tu.Lit("cmp", "Cmp"))
		rule, _, err := reg.Select(site)
		require.NoError(t, err)
		assert.Equal(t, ir.RuleKey{ArgCount: 3, Policy: ir.NoPolicy}, rule.Key())
	})

	t.Run("unsupported", func(t *testing.T) {
		site := tu.Site("thrust::sort", 1, tu.Policy("seq"))
		_, _, err := reg.Select(site)
		require.Error(t, err)
		assert.True(t, IsUnsupportedOverloadError(err))
		assert.Contains(t, err.Error(), "no overload takes 1 arguments with an execution policy")
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := reg.Select(tu.Site("thrust::frobnicate", 1))
		require.Error(t, err)
		assert.True(t, IsUnknownFunctionError(err))
		assert.Contains(t, err.Error(), "test.cu:1:1")
	})
}

// Every registered (function, arg count, policy) triple selects exactly the
// rule it was registered with.
func TestDefaultRegistrySelectionKeysUnique(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	require.NotEmpty(t, reg.Functions())

	for _, name := range reg.Functions() {
		fn, ok := reg.Lookup(name)
		require.True(t, ok)
		for i, o := range fn.Overloads {
			got, tree, ok := fn.Select(o.ArgCount, o.Policy)
			require.True(t, ok, "%s overload %d", name, i)
			assert.Equal(t, o, got, "%s overload %d", name, i)
			assert.Same(t, fn.Tree(i), tree)
		}
	}
}

func TestDefaultRegistryOnce(t *testing.T) {
	var wg sync.WaitGroup
	regs := make([]*Registry, 8)
	for i := range regs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			regs[i] = MustDefaultRegistry()
		}(i)
	}
	wg.Wait()

	for _, r := range regs[1:] {
		assert.Same(t, regs[0], r)
	}
}

func TestSelectorReverseOrder(t *testing.T) {
	s := NewSelector([]ir.OverloadRule{
		{ArgCount: 2, Policy: ir.NoPolicy, Target: "first"},
		{ArgCount: 3, Policy: ir.NoPolicy, Target: "second"},
	})

	rule, ok := s.Select(3, ir.NoPolicy)
	require.True(t, ok)
	assert.Equal(t, "second", rule.Target)

	_, ok = s.Select(3, ir.HasPolicy)
	assert.False(t, ok)
	assert.Equal(t, 1, s.index(3, ir.NoPolicy))
	assert.Equal(t, -1, s.index(7, ir.NoPolicy))
}

func TestLoadRegistry(t *testing.T) {
	src := `
function: "thrust::fill": overloads: [
	{args: 3, target: "oneapi::dpl::fill"},
	{args: 4, policy: true, target: "oneapi::dpl::fill"},
]
`
	reg, err := LoadRegistry(src, "fill.cue")
	require.NoError(t, err)
	assert.Equal(t, []string{"thrust::fill"}, reg.Functions())

	_, err = LoadRegistry(`function: "thrust::fill": overloads: [{args: 3}]`, "bad.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile bad.cue")
}
