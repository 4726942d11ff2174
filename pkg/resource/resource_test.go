package resource

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armforge/armforge/compiler/errors"
)

// fakeContext renders predictable expressions for assertions
type fakeContext struct {
	doc     string
	unknown map[string]bool
}

func (f *fakeContext) Document() string { return f.doc }

func (f *fakeContext) ResourceID(id string) (string, error) {
	if f.unknown[id] {
		return "", fmt.Errorf("unknown resource %s", id)
	}
	return fmt.Sprintf("id(%s)", id), nil
}

func (f *fakeContext) Property(id, path string) (string, error) {
	if f.unknown[id] {
		return "", fmt.Errorf("unknown resource %s", id)
	}
	return fmt.Sprintf("prop(%s,%s)", id, path), nil
}

func (f *fakeContext) Parameter(name string) string {
	return fmt.Sprintf("parameters('%s')", name)
}

func TestGeneric_Describe(t *testing.T) {
	g := &Generic{
		ID:         "app",
		Type:       "Microsoft.Web/sites",
		APIVersion: "2022-03-01",
		Name:       "app-${param:env}",
		Properties: map[string]any{
			"serverFarmId": "${ref:plan}",
			"siteConfig": map[string]any{
				"appSettings": []any{
					map[string]any{"name": "BLOB", "value": "${ref:storage.primaryEndpoints.blob}"},
				},
			},
		},
		DependsOn:            []string{"plan", "insights"},
		RequiresSameTemplate: []string{"plan"},
		TemplatePreference:   PreferLinked,
	}

	meta := g.Describe()

	assert.Equal(t, "app", meta.ID)
	assert.Equal(t, []string{"plan", "insights", "storage"}, meta.Dependencies)
	assert.Equal(t, Reference, meta.KindOf("plan"))
	assert.Equal(t, DependsOn, meta.KindOf("insights"))
	assert.Equal(t, Reference, meta.KindOf("storage"))
	assert.Equal(t, []string{"plan"}, meta.RequiresSameTemplate)
	assert.Equal(t, PreferLinked, meta.Preference())
	assert.Greater(t, meta.SizeEstimate, int64(sizeOverhead))
}

func TestGeneric_DescribeExplicitSize(t *testing.T) {
	g := &Generic{ID: "a", Type: "Microsoft.Storage/storageAccounts", Name: "a", SizeEstimate: 4096}
	assert.Equal(t, int64(4096), g.Describe().SizeEstimate)
	assert.Equal(t, PreferAny, g.Describe().Preference())
}

func TestGeneric_Generate(t *testing.T) {
	g := &Generic{
		ID:         "app",
		Type:       "Microsoft.Web/sites",
		APIVersion: "2022-03-01",
		Name:       "app-${param:env}",
		Location:   "${param:location}",
		Tags:       map[string]string{"owner": "team's"},
		Properties: map[string]any{
			"serverFarmId": "${ref:plan}",
			"endpoint":     "https://${ref:storage.primaryEndpoints.blob}/x",
			"count":        3,
		},
		Extra: map[string]any{"identity": map[string]any{"type": "SystemAssigned"}},
	}

	body, err := g.Generate(&fakeContext{doc: "main"})
	require.NoError(t, err)

	assert.Equal(t, "Microsoft.Web/sites", body["type"])
	assert.Equal(t, "[concat('app-', parameters('env'))]", body["name"])
	assert.Equal(t, "[parameters('location')]", body["location"])
	assert.Equal(t, map[string]any{"owner": "team's"}, body["tags"])

	props := body["properties"].(map[string]any)
	assert.Equal(t, "[id(plan)]", props["serverFarmId"])
	assert.Equal(t, "[concat('https://', prop(storage,primaryEndpoints.blob), '/x')]", props["endpoint"])
	assert.Equal(t, 3, props["count"])
	assert.Equal(t, map[string]any{"type": "SystemAssigned"}, body["identity"])
	assert.NotContains(t, body, "kind")
	assert.NotContains(t, body, "sku")
}

func TestGeneric_GenerateUnknownReference(t *testing.T) {
	g := &Generic{ID: "a", Type: "T/x", Name: "a", Properties: map[string]any{"p": "${ref:ghost}"}}

	_, err := g.Generate(&fakeContext{unknown: map[string]bool{"ghost": true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestResolveString_QuotesLiterals(t *testing.T) {
	got, err := resolveString(&fakeContext{}, "it's ${param:x}")
	require.NoError(t, err)
	assert.Equal(t, "[concat('it''s ', parameters('x'))]", got)

	plain, err := resolveString(&fakeContext{}, "no placeholders")
	require.NoError(t, err)
	assert.Equal(t, "no placeholders", plain)
}

func TestGeneric_Validate(t *testing.T) {
	one, ten := 1.0, 10.0

	tests := []struct {
		name  string
		res   *Generic
		codes []string
	}{
		{
			name: "valid",
			res: &Generic{ID: "s", Properties: map[string]any{"capacity": 5},
				Constraints: []Constraint{{Path: "properties.capacity", Min: &one, Max: &ten}}},
		},
		{
			name:  "malformed apiVersion",
			res:   &Generic{ID: "s", APIVersion: "latest"},
			codes: []string{errors.ErrInvalidAPIVersion},
		},
		{
			name:  "sku without name",
			res:   &Generic{ID: "s", SKU: map[string]any{"tier": "Standard"}},
			codes: []string{errors.ErrRequiredProperty},
		},
		{
			name: "required missing",
			res: &Generic{ID: "s", Properties: map[string]any{},
				Constraints: []Constraint{{Required: []string{"properties.encryption"}}}},
			codes: []string{errors.ErrRequiredProperty},
		},
		{
			name: "out of range",
			res: &Generic{ID: "s", Properties: map[string]any{"capacity": 50},
				Constraints: []Constraint{{Path: "properties.capacity", Min: &one, Max: &ten}}},
			codes: []string{errors.ErrOutOfRange},
		},
		{
			name: "expression skips range",
			res: &Generic{ID: "s", Properties: map[string]any{"capacity": "${param:capacity}"},
				Constraints: []Constraint{{Path: "properties.capacity", Min: &one}}},
		},
		{
			name: "mutually exclusive",
			res: &Generic{ID: "s", Properties: map[string]any{"a": true, "b": true},
				Constraints: []Constraint{{Exclusive: []string{"properties.a", "properties.b"}}}},
			codes: []string{errors.ErrMutuallyExclusive},
		},
		{
			name:  "empty placeholder",
			res:   &Generic{ID: "s", Properties: map[string]any{"a": "${param:}"}},
			codes: []string{errors.ErrInvalidPlaceholder},
		},
		{
			name:  "self reference",
			res:   &Generic{ID: "s", Properties: map[string]any{"a": "${ref:s.name}"}},
			codes: []string{errors.ErrSelfDependency},
		},
		{
			name:  "reference in name",
			res:   &Generic{ID: "s", Name: "${ref:other.name}-copy"},
			codes: []string{errors.ErrInvalidPlaceholder},
		},
		{
			name: "parameter in name",
			res:  &Generic{ID: "s", Name: "${param:prefix}-web"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var codes []string
			for _, d := range tt.res.Validate() {
				assert.Equal(t, errors.LayerConstruct, d.Layer)
				codes = append(codes, d.Code)
			}
			assert.Equal(t, tt.codes, codes)
		})
	}
}

type legacyBucket struct{}

func (legacyBucket) Identity() Identity {
	return Identity{ID: "bucket", Type: "Microsoft.Storage/storageAccounts", Name: "bucket"}
}

func (legacyBucket) Generate(ctx Context) (Body, error) {
	return Body{"type": "Microsoft.Storage/storageAccounts", "name": "bucket"}, nil
}

func TestNameArguments(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"stdata01", []string{"'stdata01'"}},
		{"vnet/default", []string{"'vnet'", "'default'"}},
		{"${param:storageName}", []string{"parameters('storageName')"}},
		{"${param:prefix}-web", []string{"concat(parameters('prefix'), '-web')"}},
		{"vnet/${param:subnet}", []string{"'vnet'", "parameters('subnet')"}},
		{"[variables('name')]", []string{"variables('name')"}},
		{"it's", []string{"'it''s'"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NameArguments(tt.name))
		})
	}
}

func TestAdapt(t *testing.T) {
	r := Adapt(legacyBucket{})
	require.True(t, IsAdapted(r))
	assert.False(t, IsAdapted(&Generic{}))

	meta := r.Describe()
	assert.Equal(t, "bucket", meta.ID)
	assert.Equal(t, FallbackSizeEstimate, meta.SizeEstimate)
	assert.Equal(t, PreferAny, meta.TemplatePreference)
	assert.Empty(t, meta.Dependencies)
	assert.Empty(t, meta.RequiresSameTemplate)

	body, err := r.Generate(&fakeContext{})
	require.NoError(t, err)
	assert.Equal(t, "bucket", body["name"])

	v, ok := r.(Validator)
	require.True(t, ok)
	assert.Empty(t, v.Validate())
}

func TestTree_WalkOrder(t *testing.T) {
	a := &Generic{ID: "a"}
	b := &Generic{ID: "b"}
	c := &Generic{ID: "c"}
	d := &Generic{ID: "d"}

	root := NewTree("root", a)
	net := root.AddChild("network", b)
	net.AddChild("subnets", c)
	root.Add(d)

	var ids []string
	var paths []string
	err := root.Walk(func(path []string, item Generator) error {
		ids = append(ids, item.(*Generic).ID)
		paths = append(paths, fmt.Sprint(path))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "d", "b", "c"}, ids)
	assert.Equal(t, "[root network subnets]", paths[3])
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "Microsoft.Storage", Namespace("Microsoft.Storage/storageAccounts"))
	assert.Equal(t, "Custom", Namespace("Custom"))
}

func TestIdentityChecks(t *testing.T) {
	assert.True(t, ValidType("Microsoft.Storage/storageAccounts"))
	assert.True(t, ValidType("Microsoft.Network/virtualNetworks/subnets"))
	assert.False(t, ValidType("storageAccounts"))
	assert.False(t, ValidType("Microsoft.Storage/"))

	assert.True(t, ValidAPIVersion("2023-01-01"))
	assert.True(t, ValidAPIVersion("2023-01-01-preview"))
	assert.False(t, ValidAPIVersion("2023-1-1"))

	assert.True(t, ValidName("Microsoft.Storage/storageAccounts", "stdata"))
	assert.True(t, ValidName("Microsoft.Network/virtualNetworks/subnets", "vnet/default"))
	assert.False(t, ValidName("Microsoft.Network/virtualNetworks/subnets", "default"))
	assert.True(t, ValidName("Microsoft.Network/virtualNetworks/subnets", "[concat(parameters('vnet'), '/default')]"))
	assert.False(t, ValidName("Microsoft.Storage/storageAccounts", " padded"))
	assert.False(t, ValidName("Microsoft.Storage/storageAccounts", "a&b"))
	assert.False(t, ValidName("Microsoft.Storage/storageAccounts", ""))
}
