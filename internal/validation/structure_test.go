package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armforge/armforge/compiler/errors"
)

func runStructure(t *testing.T, docs map[string]map[string]any) []*errors.ValidationError {
	t.Helper()
	res, err := Default(nil, nil).Run(context.Background(), &Input{Documents: docs}, errors.LayerStructure)
	require.NoError(t, err)
	return res.Errors
}

func TestStructure_PropertyOutsideEnvelope(t *testing.T) {
	body := storageBody("stdata01")
	delete(body, "properties")
	body["accessTier"] = "Hot"

	errs := runStructure(t, map[string]map[string]any{"main": document("deploy-main", nil, body)})
	require.Len(t, errs, 1)

	e := errs[0]
	assert.Equal(t, errors.ErrMissingWrapper, e.Code)
	assert.Equal(t, errors.LayerStructure, e.Layer)
	assert.Equal(t, []string{"main", "stdata01", "accessTier"}, e.Path)
	assert.Equal(t, "properties.accessTier", e.Expected)
	assert.Contains(t, e.Suggestion, "properties")
}

func TestStructure_SubResourceEnvelope(t *testing.T) {
	vnet := map[string]any{
		"type": vnetType, "apiVersion": "2023-04-01", "name": "vnet", "location": "westeurope",
		"properties": map[string]any{
			"addressSpace": map[string]any{"addressPrefixes": []any{"10.0.0.0/16"}},
			"subnets": []any{
				map[string]any{"name": "ok", "properties": map[string]any{"addressPrefix": "10.0.0.0/24"}},
				map[string]any{"name": "flat", "addressPrefix": "10.0.1.0/24"},
			},
		},
	}

	errs := runStructure(t, map[string]map[string]any{"main": document("deploy-main", nil, vnet)})
	require.Len(t, errs, 1)
	assert.Equal(t, errors.ErrMissingWrapper, errs[0].Code)
	assert.Equal(t, []string{"main", "vnet", "properties", "subnets", "1", "addressPrefix"}, errs[0].Path)
	assert.Equal(t, "properties.subnets[1].properties.addressPrefix", errs[0].Expected)
	assert.Contains(t, errs[0].Suggestion, "properties.subnets[1].properties")
}

func TestStructure_Findings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]any, body map[string]any)
		want   []string
	}{
		{
			name:   "missing outputs section",
			mutate: func(doc, _ map[string]any) { delete(doc, "outputs") },
			want:   []string{errors.ErrMissingTemplateSection},
		},
		{
			name:   "missing apiVersion",
			mutate: func(_, body map[string]any) { delete(body, "apiVersion") },
			want:   []string{errors.ErrMissingResourceKey},
		},
		{
			name: "literal resource id",
			mutate: func(_, body map[string]any) {
				body["properties"] = map[string]any{"subnetId": "/subscriptions/0000/resourceGroups/rg/providers/Microsoft.Network/virtualNetworks/v/subnets/s"}
			},
			want: []string{errors.ErrLiteralResourceID},
		},
		{
			name: "unbalanced expression",
			mutate: func(_, body map[string]any) {
				body["location"] = "[concat('west', 'europe']"
			},
			want: []string{errors.ErrMalformedExpression},
		},
		{
			name: "unclosed expression",
			mutate: func(_, body map[string]any) {
				body["location"] = "[parameters('location')"
			},
			want: []string{errors.ErrMalformedExpression},
		},
		{
			name: "escaped bracket is a literal",
			mutate: func(_, body map[string]any) {
				body["tags"] = map[string]any{"note": "[[not an expression"}
			},
		},
		{
			name: "literal dependsOn entry",
			mutate: func(_, body map[string]any) {
				body["dependsOn"] = []any{"stdata02"}
			},
			want: []string{errors.ErrLiteralDependsOn},
		},
		{
			name: "dependsOn not an array",
			mutate: func(_, body map[string]any) {
				body["dependsOn"] = "[resourceId('Microsoft.Storage/storageAccounts', 'x')]"
			},
			want: []string{errors.ErrInvalidResourceShape},
		},
		{
			name: "resources not an array",
			mutate: func(doc, _ map[string]any) {
				doc["resources"] = map[string]any{}
			},
			want: []string{errors.ErrInvalidResourceShape},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := storageBody("stdata01")
			doc := document("deploy-main", nil, body)
			tt.mutate(doc, body)

			errs := runStructure(t, map[string]map[string]any{"main": doc})
			assert.Equal(t, tt.want, nilIfEmpty(codes(errs)))
		})
	}
}

func TestStructure_LabelsResourcesByID(t *testing.T) {
	a := twoDocuments("")
	body := siteBody("app-prod-01")
	body["siteConfig"] = map[string]any{}

	errs := runStructure(t, map[string]map[string]any{
		"main":     document("deploy-main", nil, storageBody("stdata01")),
		"linked-1": document("deploy-linked-1", []string{"deploy-main"}, body),
	})
	require.Len(t, errs, 1)
	assert.Equal(t, []string{"linked-1", "app-prod-01", "siteConfig"}, errs[0].Path)

	_, errs = NewStructureLayer().Validate(context.Background(), &Input{
		Assignments: a,
		Documents: map[string]map[string]any{
			"main":     document("deploy-main", nil, storageBody("stdata01")),
			"linked-1": document("deploy-linked-1", []string{"deploy-main"}, body),
		},
	})
	require.Len(t, errs, 1)
	assert.Equal(t, []string{"linked-1", "app", "siteConfig"}, errs[0].Path)
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
