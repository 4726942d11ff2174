package assign

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/graph"
	"github.com/armforge/armforge/pkg/resource"
)

func meta(id, typ string, size int64, deps ...string) resource.Metadata {
	return resource.Metadata{ID: id, Type: typ, Name: id, SizeEstimate: size, Dependencies: deps}
}

func build(t *testing.T, metas ...resource.Metadata) *graph.DependencyGraph {
	t.Helper()
	g, err := graph.Build(metas)
	require.NoError(t, err)
	return g
}

func docsOf(a *Assignments) map[string][]string {
	out := make(map[string][]string)
	for name, t := range a.Templates {
		out[name] = t.Resources
	}
	return out
}

// chain returns n resources of the given size where each depends on the previous one
func chain(n int, size int64) []resource.Metadata {
	var metas []resource.Metadata
	for i := 1; i <= n; i++ {
		m := meta(fmt.Sprintf("r%02d", i), "Microsoft.Storage/storageAccounts", size)
		if i > 1 {
			m.Dependencies = []string{fmt.Sprintf("r%02d", i-1)}
		}
		metas = append(metas, m)
	}
	return metas
}

func TestAssign_LinearChainPacking(t *testing.T) {
	// Twelve 0.4 MB resources under a 1 MB budget: two fit per document
	g := build(t, chain(12, 400_000)...)
	a, err := New(Config{MaxTemplateSize: 1_000_000, Strategy: MinimizeCrossRefs}).Assign(g)
	require.NoError(t, err)

	assert.Equal(t, []string{"main", "linked-1", "linked-2", "linked-3", "linked-4", "linked-5"}, a.Order)
	assert.Equal(t, []string{"r01", "r02"}, a.Templates["main"].Resources)
	assert.Equal(t, []string{"r11", "r12"}, a.Templates["linked-5"].Resources)
	assert.Equal(t, "main", a.Main())

	for i, name := range a.Order {
		tmpl := a.Templates[name]
		assert.LessOrEqual(t, tmpl.EstimatedSize, int64(1_000_000))
		if i == 0 {
			assert.Empty(t, tmpl.DependsOn)
			continue
		}
		assert.Equal(t, []string{a.Order[i-1]}, tmpl.DependsOn, "document graph is a simple chain")
	}
	assert.Equal(t, a.Order, a.DeploymentOrder)
	assert.Len(t, a.CrossTemplateDependencies, 5)
	assert.Equal(t, CrossTemplateDependency{
		SourceTemplate: "linked-1",
		TargetTemplate: "main",
		SourceResource: "r03",
		TargetResource: "r02",
		DependencyType: resource.DependsOn,
	}, a.CrossDependenciesFrom("linked-1")[0])

	assert.Len(t, a.TransitiveDependencies("linked-5"), 5)
	assert.Empty(t, a.TransitiveDependencies("main"))
}

func TestAssign_ColocatedUnitTooLarge(t *testing.T) {
	x := meta("x", "Microsoft.Web/sites", 900_000)
	x.RequiresSameTemplate = []string{"y"}
	y := meta("y", "Microsoft.Web/sites", 900_000)
	y.RequiresSameTemplate = []string{"x"}

	_, err := New(Config{MaxTemplateSize: 1_000_000}).Assign(build(t, x, y))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrAssignment))

	var aerr *errors.AssignmentError
	require.True(t, stderrors.As(err, &aerr))
	assert.Equal(t, errors.ErrUnitTooLarge, aerr.Code)
	assert.Equal(t, []string{"x", "y"}, aerr.Resources)
	assert.Equal(t, int64(1_800_000), aerr.Size)
	assert.Equal(t, int64(1_000_000), aerr.Budget)
}

func TestAssign_ResourceCycle(t *testing.T) {
	_, err := New(DefaultConfig()).Assign(build(t,
		meta("a", "Microsoft.Storage/storageAccounts", 1, "b"),
		meta("b", "Microsoft.Storage/storageAccounts", 1, "a"),
	))
	require.Error(t, err)
	assert.Equal(t, errors.ErrResourceCycle, errors.Code(err))
	assert.Contains(t, err.Error(), "a, b, a")
}

func TestAssign_Preferences(t *testing.T) {
	anywhere := meta("a", "Microsoft.Storage/storageAccounts", 10)
	linked := meta("b", "Microsoft.Storage/storageAccounts", 10)
	linked.TemplatePreference = resource.PreferLinked
	root := meta("c", "Microsoft.Storage/storageAccounts", 10)
	root.TemplatePreference = resource.PreferMain

	tests := []struct {
		name         string
		preferLinked bool
		want         map[string][]string
	}{
		{
			name: "any stays in current document",
			want: map[string][]string{"main": {"a", "c"}, "linked-1": {"b"}},
		},
		{
			name:         "prefer linked templates",
			preferLinked: true,
			want:         map[string][]string{"main": {"c"}, "linked-1": {"a", "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(Config{PreferLinkedTemplates: tt.preferLinked}).Assign(build(t, anywhere, linked, root))
			require.NoError(t, err)
			assert.Equal(t, tt.want, docsOf(a))
			assert.True(t, a.Templates["main"].IsMain)
			assert.False(t, a.Templates["linked-1"].IsMain)
		})
	}
}

func TestAssign_MainPreferenceInChain(t *testing.T) {
	tests := []struct {
		name   string
		size   int64
		pinned int64
		budget int64
		want   map[string][]string
	}{
		{
			// Joining main would make main wait on linked-1
			name:   "would close a document cycle",
			size:   300_000,
			pinned: 50_000,
			budget: 700_000,
			want: map[string][]string{
				"main":     {"r01", "r02"},
				"linked-1": {"r03", "r04", "r05"},
				"linked-2": {"r06"},
			},
		},
		{
			name:   "would overflow main",
			size:   400_000,
			pinned: 400_000,
			budget: 1_000_000,
			want: map[string][]string{
				"main":     {"r01", "r02"},
				"linked-1": {"r03", "r04"},
				"linked-2": {"r05", "r06"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metas := chain(6, tt.size)
			metas[4].SizeEstimate = tt.pinned
			metas[4].TemplatePreference = resource.PreferMain

			a, err := New(Config{MaxTemplateSize: tt.budget, Strategy: MinimizeCrossRefs}).Assign(build(t, metas...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, docsOf(a))
			assert.Equal(t, a.Order, a.DeploymentOrder)
		})
	}

	t.Run("independent unit still joins main", func(t *testing.T) {
		extra := meta("x", "Microsoft.Web/sites", 100_000)
		extra.TemplatePreference = resource.PreferMain
		metas := append(chain(4, 400_000), extra)

		a, err := New(Config{MaxTemplateSize: 1_000_000, Strategy: MinimizeCrossRefs}).Assign(build(t, metas...))
		require.NoError(t, err)
		assert.Equal(t, "main", a.Assignments["x"])
		assert.LessOrEqual(t, a.Templates["main"].EstimatedSize, int64(1_000_000))
	})
}

func TestAssign_ByResourceTypeRoundTrip(t *testing.T) {
	// Web -> Storage -> Web: the second site cannot rejoin main
	g := build(t,
		meta("c", "Microsoft.Web/sites", 100),
		meta("b", "Microsoft.Storage/storageAccounts", 100, "c"),
		meta("a", "Microsoft.Web/sites", 100, "b"),
	)
	a, err := New(Config{MaxTemplateSize: 1000, Strategy: ByResourceType}).Assign(g)
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"main":              {"c"},
		"microsoft-storage": {"b"},
		"microsoft-web":     {"a"},
	}, docsOf(a))
	assert.Equal(t, []string{"main", "microsoft-storage", "microsoft-web"}, a.DeploymentOrder)
	assert.Len(t, a.CrossTemplateDependencies, 2)
}

func TestAssign_ByResourceTypePrivateEndpoint(t *testing.T) {
	// vnet -> storage network rules -> private endpoint in the vnet's namespace
	g := build(t,
		meta("vnet", "Microsoft.Network/virtualNetworks", 100),
		meta("st", "Microsoft.Storage/storageAccounts", 100, "vnet"),
		meta("pe", "Microsoft.Network/privateEndpoints", 100, "vnet", "st"),
		meta("nsg", "Microsoft.Network/networkSecurityGroups", 100),
	)
	a, err := New(Config{MaxTemplateSize: 1000, Strategy: ByResourceType}).Assign(g)
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"main":              {"vnet"},
		"microsoft-storage": {"st"},
		"microsoft-network": {"pe", "nsg"},
	}, docsOf(a))
	assert.Equal(t, []string{"main", "microsoft-storage", "microsoft-network"}, a.DeploymentOrder)
}

func TestAssign_DeploymentNameCollision(t *testing.T) {
	g := build(t,
		meta("a", "Microsoft.Web/sites", 1),
		meta("b", "Microsoft.Web/sites", 1),
	)
	grouping := func([]resource.Metadata) (map[string]string, error) {
		return map[string]string{"a": "Web", "b": "web"}, nil
	}
	_, err := New(Config{Strategy: Custom, CustomGrouping: grouping}).Assign(g)
	require.Error(t, err)

	var aerr *errors.AssignmentError
	require.True(t, stderrors.As(err, &aerr))
	assert.Equal(t, errors.ErrDeploymentCollision, aerr.Code)
	assert.Equal(t, []string{"Web", "web"}, aerr.Documents)
	assert.Equal(t, "deploy-web", DeploymentName("Web"))
}

func TestAssign_ByResourceType(t *testing.T) {
	g := build(t,
		meta("st1", "Microsoft.Storage/storageAccounts", 600),
		meta("net1", "Microsoft.Network/virtualNetworks", 100),
		meta("st2", "Microsoft.Storage/storageAccounts", 600, "st1"),
		meta("web1", "Microsoft.Web/sites", 100, "net1"),
	)
	a, err := New(Config{MaxTemplateSize: 1000, Strategy: ByResourceType}).Assign(g)
	require.NoError(t, err)

	assert.Equal(t, []string{"main", "microsoft-network", "microsoft-storage", "microsoft-web"}, a.Order)
	assert.Equal(t, map[string][]string{
		"main":              {"st1"},
		"microsoft-network": {"net1"},
		"microsoft-storage": {"st2"},
		"microsoft-web":     {"web1"},
	}, docsOf(a))
	assert.Equal(t, []string{"main"}, a.Templates["microsoft-storage"].DependsOn)
	assert.Equal(t, []string{"microsoft-network"}, a.Templates["microsoft-web"].DependsOn)
}

func TestAssign_DependencyChain(t *testing.T) {
	typ := "Microsoft.Storage/storageAccounts"
	g := build(t,
		meta("a", typ, 100),
		meta("b", typ, 100, "a"),
		meta("c", typ, 100),
		meta("d", typ, 100),
		meta("e", typ, 100, "d"),
	)

	a, err := New(Config{MaxTemplateSize: 1000, Strategy: DependencyChain}).Assign(g)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"main":    {"a", "b"},
		"chain-2": {"c"},
		"chain-3": {"d", "e"},
	}, docsOf(a))
	assert.Empty(t, a.CrossTemplateDependencies)

	a, err = New(Config{MaxTemplateSize: 150, Strategy: DependencyChain}).Assign(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "chain-1", "chain-2", "chain-3", "chain-3-2"}, a.Order)
	assert.Equal(t, []string{"main"}, a.Templates["chain-1"].DependsOn)
	assert.Equal(t, []string{"chain-3"}, a.Templates["chain-3-2"].DependsOn)
}

func TestAssign_Deterministic(t *testing.T) {
	metas := chain(20, 300)
	metas[7].RequiresSameTemplate = []string{"r15"}
	metas[3].TemplatePreference = resource.PreferLinked

	for _, s := range []Strategy{MinimizeCrossRefs, ByResourceType, DependencyChain} {
		t.Run(string(s), func(t *testing.T) {
			cfg := Config{MaxTemplateSize: 5000, Strategy: s}
			first, err := New(cfg).Assign(build(t, metas...))
			require.NoError(t, err)
			for i := 0; i < 5; i++ {
				again, err := New(cfg).Assign(build(t, metas...))
				require.NoError(t, err)
				assert.Equal(t, first, again)
			}
			assert.Equal(t, first.Assignments["r08"], first.Assignments["r15"])
		})
	}
}

func TestAssign_UnknownStrategy(t *testing.T) {
	_, err := New(Config{Strategy: "round-robin"}).Assign(build(t, meta("a", "Microsoft.Web/sites", 1)))
	assert.Equal(t, errors.ErrUnknownStrategy, errors.Code(err))

	s, err := ParseStrategy("dependency-chain")
	require.NoError(t, err)
	assert.Equal(t, DependencyChain, s)
}

func TestAssign_Empty(t *testing.T) {
	a, err := New(DefaultConfig()).Assign(build(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, a.Order)
	assert.True(t, a.Templates["main"].IsMain)
	assert.Empty(t, a.Templates["main"].Resources)
}
