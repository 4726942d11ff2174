package synthctx

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/assign"
	"github.com/armforge/armforge/internal/graph"
	"github.com/armforge/armforge/pkg/resource"
)

const storageType = "Microsoft.Storage/storageAccounts"

// fixture puts "st" in main and "app", which reads st, in linked-1.
// "vm" depends on st for ordering only.
func fixture(t *testing.T) *Session {
	t.Helper()
	metas := []resource.Metadata{
		{ID: "st", Type: storageType, Name: "stdata01", SizeEstimate: 100},
		{
			ID: "app", Type: "Microsoft.Web/sites", Name: "app", SizeEstimate: 100,
			Dependencies:       []string{"st"},
			DependencyKinds:    map[string]resource.DependencyKind{"st": resource.Reference},
			TemplatePreference: resource.PreferLinked,
		},
		{
			ID: "vm", Type: "Microsoft.Compute/virtualMachines", Name: "vm", SizeEstimate: 100,
			Dependencies:       []string{"st"},
			TemplatePreference: resource.PreferLinked,
		},
	}
	g, err := graph.Build(metas)
	require.NoError(t, err)
	a, err := assign.New(assign.DefaultConfig()).Assign(g)
	require.NoError(t, err)
	require.Equal(t, "linked-1", a.Assignments["app"])

	return NewSession(a, metas, map[string]Parameter{"location": {Type: "string"}})
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "deploy-main", DeploymentName("main"))
	assert.Equal(t, "deploy-microsoft-storage-2", DeploymentName("Microsoft.Storage-2"))

	name := OutputName("storage-account", "primaryEndpoints.blob")
	assert.Regexp(t, `^storageAccount_primaryEndpointsBlob_[0-9a-f]{8}$`, name)
	assert.Equal(t, name, OutputName("storage-account", "primaryEndpoints.blob"))
	assert.NotEqual(t, OutputName("a-b", "id"), OutputName("a.b", "id"), "slug collisions are split by the hash")

	assert.Equal(t,
		"resourceId('Microsoft.Network/virtualNetworks/subnets', 'vnet', 'default')",
		ResourceIDExpression(resource.Metadata{Type: "Microsoft.Network/virtualNetworks/subnets", Name: "vnet/default"}))
	assert.Equal(t, "parameters('it''s')", ParameterExpression("it's"))
}

func TestContext_SameDocument(t *testing.T) {
	s := fixture(t)
	ctx, err := s.Context("main")
	require.NoError(t, err)

	id, err := ctx.ResourceID("st")
	require.NoError(t, err)
	assert.Equal(t, "resourceId('Microsoft.Storage/storageAccounts', 'stdata01')", id)

	prop, err := ctx.Property("st", "primaryEndpoints.blob")
	require.NoError(t, err)
	assert.Equal(t, "reference(resourceId('Microsoft.Storage/storageAccounts', 'stdata01')).primaryEndpoints.blob", prop)

	assert.Zero(t, s.Registry().Len(), "same-document references register nothing")
	assert.Empty(t, ctx.CrossReferences())
}

func TestContext_CrossDocument(t *testing.T) {
	s := fixture(t)
	ctx, err := s.Context("linked-1")
	require.NoError(t, err)
	ctx.Enter("app")

	id, err := ctx.ResourceID("st")
	require.NoError(t, err)
	idOutput := OutputName("st", "id")
	assert.Equal(t, "reference('deploy-main').outputs."+idOutput+".value", id)

	again, err := ctx.ResourceID("st")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	blob, err := ctx.Property("st", "primaryEndpoints.blob")
	require.NoError(t, err)
	assert.Equal(t, "reference('deploy-main').outputs."+OutputName("st", "primaryEndpoints.blob")+".value", blob)

	outputs := s.Registry().Outputs("main")
	require.Len(t, outputs, 2, "outputs land on the target document and are reused")
	out, ok := s.Registry().Lookup("main", idOutput)
	require.True(t, ok)
	assert.Equal(t, "resourceId('Microsoft.Storage/storageAccounts', 'stdata01')", out.Value)
	assert.Equal(t, "string", out.Type)
	assert.Empty(t, s.Registry().Outputs("linked-1"))

	refs := ctx.CrossReferences()
	require.Len(t, refs, 3)
	assert.Equal(t, "app", refs[0].SourceResource)
}

func TestContext_UnassignedReference(t *testing.T) {
	s := fixture(t)
	ctx, err := s.Context("main")
	require.NoError(t, err)
	ctx.Enter("st")

	_, err = ctx.ResourceID("ghost")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrReferenceIntegrity))
	assert.Equal(t, errors.ErrUnassignedResource, errors.Code(err))

	_, err = ctx.Property("ghost", "name")
	assert.Equal(t, errors.ErrUnassignedResource, errors.Code(err))

	_, err = ctx.Property("st", "")
	assert.Error(t, err)

	_, err = s.Context("nowhere")
	assert.Error(t, err)
}

func TestContext_Parameters(t *testing.T) {
	s := fixture(t)
	ctx, err := s.Context("main")
	require.NoError(t, err)

	assert.Equal(t, "parameters('location')", ctx.Parameter("location"))
	assert.Empty(t, ctx.Warnings())

	assert.Equal(t, "parameters('sku')", ctx.Parameter("sku"), "undeclared parameters still resolve")
	ctx.Parameter("sku")
	warnings := ctx.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, errors.ErrUndeclaredParameter, warnings[0].Code)
	assert.True(t, warnings[0].IsWarning())
	assert.Equal(t, []string{"main", "parameters", "sku"}, warnings[0].Path)
}

func TestSession_PreRegister(t *testing.T) {
	s := fixture(t)
	require.NoError(t, s.PreRegister())

	// vm -> st is dependsOn-kind and gets an id export; app -> st is a read
	// and is left to the resource.
	outputs := s.Registry().Outputs("main")
	require.Len(t, outputs, 1)
	assert.Equal(t, OutputName("st", "id"), outputs[0].Name)
	assert.Equal(t, "st", outputs[0].ResourceID)
}

func TestOutputRegistry_Concurrent(t *testing.T) {
	s := fixture(t)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, err := s.Context("linked-1")
			if !assert.NoError(t, err) {
				return
			}
			_, err = ctx.Property("st", "primaryEndpoints.blob")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.Registry().Len())
}

func TestOutputRegistry_Conflicts(t *testing.T) {
	r := NewOutputRegistry([]string{"main"})
	_, err := r.Register(Output{Name: "o", Document: "main", Value: "a"})
	require.NoError(t, err)
	_, err = r.Register(Output{Name: "o", Document: "main", Value: "b"})
	assert.Error(t, err)
	_, err = r.Register(Output{Name: "o", Document: "elsewhere", Value: "a"})
	assert.Error(t, err)
}
