package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const declarations = `
parameters:
  location:
    type: string
    defaultValue: westeurope
resources:
  - id: data
    type: Microsoft.Storage/storageAccounts
    apiVersion: "2023-01-01"
    name: stdata01
    location: ${param:location}
    kind: StorageV2
    sku: {name: Standard_LRS}
    properties: {accessTier: Hot}
    templatePreference: main
  - id: web
    type: Microsoft.Web/sites
    apiVersion: "2022-09-01"
    name: app-web-01
    location: ${param:location}
    templatePreference: linked
    properties:
      blob: ${ref:data.primaryEndpoints.blob}
`

// workspace switches into a fresh directory holding infra.yaml and keeps
// logs quiet
func workspace(t *testing.T, decl string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "infra.yaml"), []byte(decl), 0o644))

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })

	t.Setenv("ARMFORGE_LOG_LEVEL", "error")
	return dir
}

type outcome struct {
	stdout string
	stderr string
	err    error
}

func execute(ctx context.Context, args ...string) outcome {
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.ExecuteContext(ctx)
	return outcome{stdout: out.String(), stderr: errOut.String(), err: err}
}

func run(args ...string) outcome {
	return execute(context.Background(), args...)
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "armforge", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	registered := make(map[string]bool)
	for _, c := range cmd.Commands() {
		registered[c.Name()] = true
	}
	for _, expected := range []string{"version", "synth", "plan", "validate", "graph", "completion"} {
		assert.True(t, registered[expected], "expected command %s to be registered", expected)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2025-01-01"
	GoVersion = "go1.23"

	res := run("version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "armforge version: 1.0.0-test")
	assert.Contains(t, res.stdout, "Git commit: abc123")
	assert.Contains(t, res.stdout, "Go version: go1.23")
}

func TestCompletionCommand(t *testing.T) {
	res := run("completion", "bash")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "armforge")

	res = run("completion", "tcsh")
	assert.Error(t, res.err)
}

func TestReportedError(t *testing.T) {
	assert.NoError(t, reported(nil))

	inner := os.ErrNotExist
	err := reported(inner)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, inner.Error(), err.Error())
}
