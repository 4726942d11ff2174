package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armforge/armforge/internal/synth"
)

func TestPlan(t *testing.T) {
	dir := workspace(t, declarations)

	res := run("plan", "-f", "infra.yaml")
	require.NoError(t, res.err, res.stderr)

	for _, want := range []string{
		"Assignment plan",
		"Strategy:",
		"minimize-cross-refs",
		"3.5 MiB",
		"main → linked-1",
		"main *",
		"deploy-linked-1",
		"/ 3.5 MiB (",
		"Cross-template dependencies",
		"web (linked-1) → data (main)",
	} {
		assert.Contains(t, res.stdout, want)
	}
	assert.NoDirExists(t, filepath.Join(dir, "build"))
}

func TestPlan_JSON(t *testing.T) {
	workspace(t, declarations)

	res := run("plan", "-f", "infra.yaml", "--json")
	require.NoError(t, res.err, res.stderr)

	var report synth.Report
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	require.Len(t, report.Documents, 2)
	assert.Equal(t, []string{"data"}, report.Documents[0].Resources)
	assert.Equal(t, []string{"deploy-main"}, report.Documents[1].DependsOn)
	assert.Zero(t, report.Documents[0].Size, "documents are not generated by plan")
}

func TestPlan_AssignmentFailure(t *testing.T) {
	workspace(t, strings.Replace(declarations,
		"    templatePreference: linked\n",
		"    templatePreference: linked\n    sizeEstimate: 2000000\n", 1))

	res := run("plan", "-f", "infra.yaml", "--max-size", "1MB")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "SYNTHESIS FAILED")
	assert.Contains(t, res.stderr, "E201")
}

func TestValidate(t *testing.T) {
	dir := workspace(t, declarations)

	res := run("validate", "-f", "infra.yaml")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "All 5 validation layers passed")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "validate writes nothing")
}

func TestValidate_Failure(t *testing.T) {
	workspace(t, strings.Replace(declarations, "kind: StorageV2", "kind: Tape", 1))

	res := run("validate", "-f", "infra.yaml", "--json")
	require.Error(t, res.err)

	var report synth.Report
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.Equal(t, "schema", string(report.Diagnostics.FailedLayer))
	require.NotEmpty(t, report.Diagnostics.Errors)
	assert.Equal(t, "E702", report.Diagnostics.Errors[0].Code)
}
