package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armforge/armforge/internal/assign"
)

func TestUsage(t *testing.T) {
	assert.Equal(t, "1.0 MiB / 4.0 MiB (25%)", Usage(1<<20, 4<<20))
	assert.Equal(t, "0 B / 4.0 MiB (0%)", Usage(0, 4<<20))
	assert.Equal(t, "1.0 MiB", Usage(1<<20, 0))
}

func TestUsageAttr(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want color.Attribute
	}{
		{"well under", 10, color.FgGreen},
		{"warn", 75, color.FgYellow},
		{"alert", 90, color.FgRed},
		{"over", 120, color.FgRed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, usageAttr(tt.size, 100))
		})
	}
	assert.Equal(t, color.Reset, usageAttr(10, 0))
}

func TestDocumentTable(t *testing.T) {
	a := &assign.Assignments{
		Order:           []string{"main", "linked-1"},
		MaxTemplateSize: 4 << 20,
		Templates: map[string]*assign.TemplateInfo{
			"main":     {Name: "main", Resources: []string{"data", "vnet"}, EstimatedSize: 1 << 20, IsMain: true},
			"linked-1": {Name: "linked-1", Resources: []string{"web"}, EstimatedSize: 2 << 20, DependsOn: []string{"main"}},
		},
	}

	var buf bytes.Buffer
	DocumentTable(&buf, a, true)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Document"))
	assert.Contains(t, lines[0], "Estimated size")

	assert.True(t, strings.HasPrefix(lines[2], "main *"))
	assert.Contains(t, lines[2], "deploy-main")
	assert.Contains(t, lines[2], "1.0 MiB / 4.0 MiB (25%)")
	assert.True(t, strings.HasSuffix(lines[2], "  -"))

	assert.True(t, strings.HasPrefix(lines[3], "linked-1"))
	assert.Contains(t, lines[3], "deploy-linked-1")
	assert.Contains(t, lines[3], "2.0 MiB / 4.0 MiB (50%)")
	assert.True(t, strings.HasSuffix(lines[3], "  main"))
}
