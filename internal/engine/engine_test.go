package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thrustmig/internal/ir"
	tu "github.com/roach88/thrustmig/internal/testutil"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	return New(reg, opts...)
}

func usm(site *ir.CallSite) *ir.CallSite {
	site.Flags.UnifiedAddressing = true
	return site
}

func TestRewriteSortDeviceContainersUnified(t *testing.T) {
	e := newTestEngine(t)
	features := ir.NewFeatureSet()

	site := usm(tu.Site("thrust::sort", 1, tu.DeviceIter("v", "begin", "int"), tu.DeviceIter("v", "end", "int")))
	out, err := e.Rewrite(site, features)
	require.NoError(t, err)

	assert.Equal(t, ir.OutcomeRewritten, out.Kind)
	assert.Equal(t, "oneapi::dpl::sort(oneapi::dpl::execution::make_device_policy(dpct::get_in_order_queue()), v.begin(), v.end())", out.Text)
	assert.Equal(t, []ir.Feature{ir.FeatureDPLUtils}, out.Features)
	assert.Equal(t, []ir.Feature{ir.FeatureDPLUtils}, features.List())
	assert.Nil(t, out.Diagnostic)
	assert.Same(t, site, out.Site)
}

func TestRewriteSortSeq(t *testing.T) {
	e := newTestEngine(t)

	for _, unified := range []bool{false, true} {
		site := tu.Site("thrust::sort", 1, tu.Policy("seq"), tu.HostIter("h", "begin", "int"), tu.HostIter("h", "end", "int"))
		site.Flags.UnifiedAddressing = unified

		out, err := e.Rewrite(site, nil)
		require.NoError(t, err)
		assert.Equal(t, "oneapi::dpl::sort(oneapi::dpl::execution::seq, h.begin(), h.end())", out.Text)
	}
}

func TestRewriteCopyToOstreamIterator(t *testing.T) {
	e := newTestEngine(t)

	site := tu.Site("thrust::copy", 1,
		tu.DeviceIter("v", "begin", "int"), tu.DeviceIter("v", "end", "int"), tu.OstreamIter("int"))
	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)

	assert.Equal(t, `oneapi::dpl::copy(oneapi::dpl::execution::seq, v.begin(), v.end(), std::ostream_iterator<int>(std::cout, " "))`, out.Text)
}

func TestRewriteCopyToOstreamIteratorFromRawPointers(t *testing.T) {
	e := newTestEngine(t)

	site := tu.Site("thrust::copy", 1, tu.Ptr("a", "int"), tu.Lit("a + n", "int *"), tu.OstreamIter("int"))
	out, err := e.Rewrite(site, ir.NewFeatureSet())
	require.NoError(t, err)

	assert.Equal(t, `oneapi::dpl::copy(oneapi::dpl::execution::seq, a, a + n, std::ostream_iterator<int>(std::cout, " "))`, out.Text)
	assert.Equal(t, []ir.Feature{ir.FeatureDPLUtils}, out.Features, "no runtime dispatch, no device_ext")
}

func TestRewriteUnsupportedOverload(t *testing.T) {
	e := newTestEngine(t)
	features := ir.NewFeatureSet()

	site := tu.Site("thrust::sort", 7,
		tu.DeviceIter("v", "begin", "int"), tu.DeviceIter("v", "end", "int"),
		tu.Lit("a", "int"), tu.Lit("b", "int"), tu.Lit("c", "int"))
	out, err := e.Rewrite(site, features)
	require.NoError(t, err)

	assert.Equal(t, ir.OutcomeUnsupported, out.Kind)
	assert.Equal(t, site.Text, out.Text, "call is left unchanged")
	require.NotNil(t, out.Diagnostic)
	assert.Equal(t, ir.DiagOverloadUnsupported, out.Diagnostic.Code)
	assert.Equal(t, "thrust::sort: no overload takes 5 arguments without an execution policy", out.Diagnostic.Message)
	assert.Equal(t, site.Range, out.Diagnostic.Range)
	assert.Zero(t, features.Len(), "unsupported calls request no features")
}

func TestRewriteUnsupportedReconstructsText(t *testing.T) {
	e := newTestEngine(t)
	site := tu.Site("thrust::sort", 1, tu.Ptr("a", "int"))
	site.Text = ""

	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)
	assert.Equal(t, "thrust::sort(a)", out.Text)
}

func TestRewriteRawPointerExplicitBuffer(t *testing.T) {
	e := newTestEngine(t)
	features := ir.NewFeatureSet()

	site := tu.Site("thrust::sort", 1, tu.Ptr("d", "int"), tu.Lit("d + n", "int *"))
	out, err := e.Rewrite(site, features)
	require.NoError(t, err)

	want := "(dpct::is_device_ptr(d) ? " +
		"oneapi::dpl::sort(oneapi::dpl::execution::make_device_policy(dpct::get_in_order_queue()), dpct::device_pointer<int>(d), dpct::device_pointer<int>(d + n)) : " +
		"oneapi::dpl::sort(oneapi::dpl::execution::seq, d, d + n))"
	assert.Equal(t, want, out.Text)
	assert.Equal(t, []ir.Feature{ir.FeatureDPLUtils, ir.FeatureDeviceExt}, out.Features)
	assert.Equal(t, []ir.Feature{ir.FeatureDPLUtils, ir.FeatureDeviceExt}, features.List())
}

func TestRewriteQualifiedPointerIsGuarded(t *testing.T) {
	e := newTestEngine(t)

	for _, typ := range []string{"const int *const volatile", "int *__restrict"} {
		t.Run(typ, func(t *testing.T) {
			site := tu.Site("thrust::sort", 1, tu.Lit("d", typ), tu.Lit("d + n", typ))
			out, err := e.Rewrite(site, nil)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(out.Text, "(dpct::is_device_ptr(d) ? "), out.Text)
		})
	}
}

func TestRewriteGuardSplicesIntoExpression(t *testing.T) {
	e := newTestEngine(t)

	site := tu.Site("thrust::reduce", 1, tu.Ptr("d", "int"), tu.Lit("d + n", "int *"))
	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)

	spliced := "int s = " + out.Text + " * 2;"
	want := "int s = (dpct::is_device_ptr(d) ? " +
		"oneapi::dpl::reduce(oneapi::dpl::execution::make_device_policy(dpct::get_in_order_queue()), dpct::device_pointer<int>(d), dpct::device_pointer<int>(d + n)) : " +
		"oneapi::dpl::reduce(oneapi::dpl::execution::seq, d, d + n)) * 2;"
	assert.Equal(t, want, spliced, "the trailing operator applies to both branches")
}

func TestRewriteRawPointerWithPolicyStatementGuard(t *testing.T) {
	e := newTestEngine(t, WithGuardStyle(GuardStatement))

	site := tu.Site("thrust::copy", 3, tu.Policy("device"), tu.Ptr("a", "float"), tu.Lit("a + n", "float *"), tu.Ptr("b", "float"))
	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)

	want := "if (dpct::is_device_ptr(a)) {\n" +
		"  oneapi::dpl::copy(oneapi::dpl::execution::make_device_policy(dpct::get_in_order_queue()), dpct::device_pointer<float>(a), dpct::device_pointer<float>(a + n), dpct::device_pointer<float>(b));\n" +
		"} else {\n" +
		"  oneapi::dpl::copy(oneapi::dpl::execution::seq, a, a + n, b);\n" +
		"}"
	assert.Equal(t, want, out.Text)
}

func TestRewriteRawPointerUnified(t *testing.T) {
	e := newTestEngine(t)

	site := usm(tu.Site("thrust::sort", 1, tu.Ptr("d", "int"), tu.Lit("d + n", "int *")))
	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)
	assert.Equal(t, "oneapi::dpl::sort(oneapi::dpl::execution::seq, d, d + n)", out.Text)

	withPolicy := usm(tu.Site("thrust::sort", 1, tu.Policy("device"), tu.Ptr("d", "int"), tu.Lit("d + n", "int *")))
	out, err = e.Rewrite(withPolicy, nil)
	require.NoError(t, err)
	assert.Equal(t, "oneapi::dpl::sort(oneapi::dpl::execution::make_device_policy(dpct::get_in_order_queue()), d, d + n)", out.Text)
}

func TestRewriteDependentTypeExplicitBuffer(t *testing.T) {
	e := newTestEngine(t)

	site := tu.Site("thrust::remove_if", 1,
		tu.DependentIter("a", "begin", "thrust::device_vector<T>"),
		tu.DependentIter("a", "end", "thrust::device_vector<T>"),
		tu.Lit("pred", "greater_than_zero"))
	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)
	assert.Equal(t, "oneapi::dpl::remove_if(oneapi::dpl::execution::make_device_policy(dpct::get_in_order_queue()), a.begin(), a.end(), pred)", out.Text)
}

func TestRewriteDependentHostVector(t *testing.T) {
	e := newTestEngine(t)

	site := tu.Site("thrust::stable_sort", 1,
		tu.DependentIter("v", "begin", "thrust::host_vector<T>"),
		tu.DependentIter("v", "end", "thrust::host_vector<T>"),
		tu.Lit("thrust::not2(thrust::greater_equal<T>())", ir.DependentType))
	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)
	assert.Equal(t, "oneapi::dpl::stable_sort(oneapi::dpl::execution::seq, v.begin(), v.end(), thrust::not2(thrust::greater_equal<T>()))", out.Text)
}

func TestRewriteStreamPolicy(t *testing.T) {
	e := newTestEngine(t)

	site := tu.Site("thrust::sort", 1,
		tu.StreamPolicy(tu.Ref("s1", "CUstream_st *")), tu.DeviceIter("v", "begin", "int"), tu.DeviceIter("v", "end", "int"))
	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)
	assert.Equal(t, "oneapi::dpl::sort(oneapi::dpl::execution::make_device_policy(*s1), v.begin(), v.end())", out.Text)
}

func TestRewriteFeatureOfRule(t *testing.T) {
	e := newTestEngine(t)
	features := ir.NewFeatureSet()

	site := usm(tu.Site("thrust::sequence", 1, tu.DeviceIter("v", "begin", "int"), tu.DeviceIter("v", "end", "int")))
	out, err := e.Rewrite(site, features)
	require.NoError(t, err)
	assert.Equal(t, "dpct::iota(oneapi::dpl::execution::make_device_policy(dpct::get_in_order_queue()), v.begin(), v.end())", out.Text)
	assert.Equal(t, []ir.Feature{ir.FeatureDPLExtrasAlgorithm}, out.Features)
}

func TestRewriteExtAPI(t *testing.T) {
	e := newTestEngine(t)

	site := tu.Site("thrust::sort_by_key", 1,
		tu.DeviceIter("k", "begin", "int"), tu.DeviceIter("k", "end", "int"), tu.DeviceIter("v", "begin", "float"))

	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.OutcomeUnsupported, out.Kind)
	assert.Equal(t, ir.DiagExtAPIRequired, out.Diagnostic.Code)

	site.Flags.ExtDPLAPI = true
	out, err = e.Rewrite(site, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.OutcomeRewritten, out.Kind)
	assert.Equal(t, "oneapi::dpl::sort_by_key(oneapi::dpl::execution::make_device_policy(dpct::get_in_order_queue()), k.begin(), k.end(), v.begin())", out.Text)
}

func TestRewriteUnknownFunction(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Rewrite(tu.Site("thrust::tabulate_magic", 1, tu.Ptr("a", "int")), nil)
	require.Error(t, err)
	assert.True(t, IsUnknownFunctionError(err))

	_, err = e.Rewrite(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(ErrCodeInvalidSite))
}

func TestRewriteOptions(t *testing.T) {
	e := newTestEngine(t,
		WithHelperNamespace("syclcompat::"),
		WithQueueAccessor(StaticQueue("q")),
	)

	site := tu.Site("thrust::fill", 1, tu.Ptr("p", "int"), tu.Lit("p + n", "int *"), tu.Lit("0", "int"))
	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)

	want := "(syclcompat::is_device_ptr(p) ? " +
		"oneapi::dpl::fill(oneapi::dpl::execution::make_device_policy(q), syclcompat::device_pointer<int>(p), syclcompat::device_pointer<int>(p + n), 0) : " +
		"oneapi::dpl::fill(oneapi::dpl::execution::seq, p, p + n, 0))"
	assert.Equal(t, want, out.Text)
}

func TestRewriteDefaultQueueFollowsHelperNamespace(t *testing.T) {
	e := newTestEngine(t, WithHelperNamespace("syclcompat::"))
	site := usm(tu.Site("thrust::sort", 1, tu.DeviceIter("v", "begin", "int"), tu.DeviceIter("v", "end", "int")))

	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Text, "make_device_policy(syclcompat::get_in_order_queue())")
}

func TestRewriteTypeNames(t *testing.T) {
	names := DefaultTypeNames()
	names.DevicePointer = "my::device_span"
	e := newTestEngine(t, WithTypeNames(names))

	site := usm(tu.Site("thrust::reverse", 1, tu.Ref("s", "my::device_span<int>"), tu.Ref("t", "my::device_span<int>")))
	out, err := e.Rewrite(site, nil)
	require.NoError(t, err)
	assert.Equal(t, "oneapi::dpl::reverse(oneapi::dpl::execution::make_device_policy(dpct::get_in_order_queue()), s, t)", out.Text)
}

func TestRewriteIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	sites := []*ir.CallSite{
		tu.Site("thrust::sort", 1, tu.Ptr("d", "int"), tu.Lit("d + n", "int *")),
		tu.Site("thrust::sort", 2, tu.Policy("seq"), tu.HostIter("h", "begin", "int"), tu.HostIter("h", "end", "int")),
		tu.Site("thrust::reduce", 3, tu.DependentIter("a", "begin", "thrust::device_vector<T>"), tu.DependentIter("a", "end", "thrust::device_vector<T>")),
	}

	for _, site := range sites {
		features := ir.NewFeatureSet()
		first, err := e.Rewrite(site, features)
		require.NoError(t, err)
		second, err := e.Rewrite(site, features)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, first.Features, features.List(), "re-evaluation adds no features")
	}
}

// A seq policy maps to the sequential policy for every function that
// accepts a policy.
func TestRewriteSeqAlwaysSequential(t *testing.T) {
	e := newTestEngine(t)
	devIter := "thrust::detail::normal_iterator<thrust::device_ptr<int>>"

	for _, fn := range e.Registry().Rules() {
		for _, o := range fn.Overloads {
			if o.Policy != ir.HasPolicy {
				continue
			}
			args := []*ir.Expr{tu.Policy("seq")}
			for i := 1; i < o.ArgCount; i++ {
				args = append(args, tu.Lit("it", devIter))
			}
			site := tu.Site(fn.Name, 1, args...)
			site.Flags.ExtDPLAPI = true

			out, err := e.Rewrite(site, nil)
			require.NoError(t, err)
			assert.Equal(t, ir.OutcomeRewritten, out.Kind, "%s/%d", fn.Name, o.ArgCount)
			assert.Contains(t, out.Text, o.Target+"("+SequentialPolicy+", ", "%s/%d", fn.Name, o.ArgCount)
		}
	}
}

func TestRewriteDoesNotMutateSite(t *testing.T) {
	e := newTestEngine(t)
	site := tu.Site("thrust::copy", 1, tu.Policy("par"), tu.Ptr("a", "int"), tu.Lit("a + n", "int *"), tu.Ptr("b", "int"))
	before := ir.MustCallSiteID(site)

	_, err := e.Rewrite(site, nil)
	require.NoError(t, err)
	assert.Equal(t, before, ir.MustCallSiteID(site))
}
