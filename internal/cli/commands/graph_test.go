package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph(t *testing.T) {
	workspace(t, declarations)

	res := run("graph", "-f", "infra.yaml")
	require.NoError(t, res.err, res.stderr)

	assert.Contains(t, res.stdout, "Dependency order")
	assert.Contains(t, res.stdout, "1. data")
	assert.Contains(t, res.stdout, "2. web ← data")
	assert.Contains(t, res.stdout, "Partition units")
	assert.Contains(t, res.stdout, "Microsoft.Web/sites")
}

func TestGraph_JSON(t *testing.T) {
	workspace(t, declarations)

	res := run("graph", "-f", "infra.yaml", "--json")
	require.NoError(t, res.err, res.stderr)

	var report graphReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.Equal(t, []string{"data", "web"}, report.Order)
	assert.Empty(t, report.Cycle)
	require.Len(t, report.Units, 2)
	assert.Equal(t, []string{"web"}, report.Units[1].Members)
	assert.Equal(t, []int{0}, report.Units[1].DependsOn)
}

func TestGraph_Cycle(t *testing.T) {
	workspace(t, `
resources:
  - id: a
    type: Microsoft.Web/sites
    apiVersion: "2022-09-01"
    name: app-a
    dependsOn: [b]
  - id: b
    type: Microsoft.Web/sites
    apiVersion: "2022-09-01"
    name: app-b
    dependsOn: [a]
`)

	res := run("graph", "-f", "infra.yaml", "--json")
	require.NoError(t, res.err, res.stderr)

	var report graphReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.NotEmpty(t, report.Cycle)
	require.Len(t, report.Units, 1)
	assert.True(t, report.Units[0].Merged)
	assert.ElementsMatch(t, []string{"a", "b"}, report.Units[0].Members)

	res = run("graph", "-f", "infra.yaml")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "dependency cycle")
	assert.Contains(t, res.stdout, "(merged cycle)")
}
