package validation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armforge/armforge/compiler/errors"
)

func builtinSchemas(t *testing.T) *SchemaSet {
	t.Helper()
	s, err := NewSchemaSet("")
	require.NoError(t, err)
	return s
}

func runSchema(t *testing.T, provider SchemaProvider, resources ...map[string]any) ([]*errors.ValidationError, []*errors.ValidationError) {
	t.Helper()
	return NewSchemaLayer(provider).Validate(context.Background(), &Input{
		Documents: map[string]map[string]any{"main": document("deploy-main", nil, resources...)},
	})
}

func TestSchemaSet_Builtins(t *testing.T) {
	s := builtinSchemas(t)
	assert.Contains(t, s.Names(), "microsoft.storage_storageaccounts")
	assert.Contains(t, s.Names(), "microsoft.network_virtualnetworks")

	schema, err := s.Schema(storageType, "2023-01-01")
	require.NoError(t, err)
	assert.NotNil(t, schema)

	again, err := s.Schema("microsoft.storage/STORAGEACCOUNTS", "2019-06-01")
	require.NoError(t, err)
	assert.Same(t, schema, again)

	none, err := s.Schema("Microsoft.KeyVault/vaults", "2023-02-01")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSchemaLayer_Valid(t *testing.T) {
	warnings, errs := runSchema(t, builtinSchemas(t), storageBody("stdata01"))
	assert.Empty(t, warnings)
	assert.Empty(t, errs)
}

func TestSchemaLayer_Violation(t *testing.T) {
	body := storageBody("stdata01")
	body["properties"] = map[string]any{"accessTier": "Warm"}

	_, errs := runSchema(t, builtinSchemas(t), body)
	require.Len(t, errs, 1)
	assert.Equal(t, errors.ErrSchemaViolation, errs[0].Code)
	assert.Equal(t, []string{"main", "stdata01", "properties", "accessTier"}, errs[0].Path)
	assert.Contains(t, errs[0].Expected, "accessTier")
	assert.Equal(t, "Warm", errs[0].Actual)
}

func TestSchemaLayer_MissingRequired(t *testing.T) {
	body := storageBody("stdata01")
	delete(body, "sku")

	_, errs := runSchema(t, builtinSchemas(t), body)
	require.Len(t, errs, 1)
	assert.Equal(t, errors.ErrSchemaViolation, errs[0].Code)
	assert.Contains(t, errs[0].Message, "sku")
}

func TestSchemaLayer_ExpressionsAreNotChecked(t *testing.T) {
	body := storageBody("[parameters('storageName')]")
	body["properties"] = map[string]any{
		"accessTier":               "[parameters('tier')]",
		"supportsHttpsTrafficOnly": "[variables('httpsOnly')]",
	}

	_, errs := runSchema(t, builtinSchemas(t), body)
	assert.Empty(t, errs)
}

func TestSchemaLayer_UnknownTypeWarnsOnce(t *testing.T) {
	vault := map[string]any{"type": "Microsoft.KeyVault/vaults", "apiVersion": "2023-02-01", "name": "kv1"}
	other := map[string]any{"type": "Microsoft.KeyVault/vaults", "apiVersion": "2023-02-01", "name": "kv2"}

	warnings, errs := runSchema(t, builtinSchemas(t), vault, other)
	assert.Empty(t, errs)
	require.Len(t, warnings, 1)
	assert.Equal(t, errors.ErrSchemaUnavailable, warnings[0].Code)
	assert.True(t, warnings[0].IsWarning())
	assert.Equal(t, []string{"main", "kv1"}, warnings[0].Path)
}

func TestSchemaLayer_NilProvider(t *testing.T) {
	warnings, errs := runSchema(t, nil, storageBody("stdata01"))
	assert.Empty(t, errs)
	assert.Equal(t, []string{errors.ErrSchemaUnavailable}, codes(warnings))
}

func TestSchemaLayer_BrokenSchema(t *testing.T) {
	s := builtinSchemas(t)
	s.Add("Microsoft.Storage_storageAccounts", []byte(`{"type": `))

	_, errs := runSchema(t, s, storageBody("stdata01"))
	require.Len(t, errs, 1)
	assert.Equal(t, errors.ErrSchemaLoad, errs[0].Code)
}

func TestSchemaSet_DirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	strict := `{"type": "object", "required": ["tags"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Microsoft.Storage_storageAccounts@2023-01-01.json"), []byte(strict), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	s, err := NewSchemaSet(dir)
	require.NoError(t, err)

	_, errs := runSchema(t, s, storageBody("stdata01"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "tags")

	// Other apiVersions still use the built-in schema
	body := storageBody("stdata01")
	body["apiVersion"] = "2022-09-01"
	_, errs = runSchema(t, s, body)
	assert.Empty(t, errs)

	_, err = NewSchemaSet(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
