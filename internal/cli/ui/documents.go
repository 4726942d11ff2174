package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/armforge/armforge/internal/assign"
)

// Usage thresholds, as a share of the template size budget
const (
	usageWarn  = 0.75
	usageAlert = 0.90
)

// Usage renders a size against its budget, e.g. "812 KiB / 3.5 MiB (23%)"
func Usage(size, budget int64) string {
	if budget <= 0 {
		return humanize.IBytes(uint64(size))
	}
	return fmt.Sprintf("%s / %s (%d%%)",
		humanize.IBytes(uint64(size)), humanize.IBytes(uint64(budget)), size*100/budget)
}

// usageAttr colors a size by how close it is to the budget
func usageAttr(size, budget int64) color.Attribute {
	if budget <= 0 {
		return color.Reset
	}
	share := float64(size) / float64(budget)
	switch {
	case share >= usageAlert:
		return color.FgRed
	case share >= usageWarn:
		return color.FgYellow
	default:
		return color.FgGreen
	}
}

// DocumentTable writes one row per document in creation order: its name
// (main is starred), deployment name, resource count, estimated size
// against the budget and the documents it waits on.
func DocumentTable(w io.Writer, a *assign.Assignments, noColor bool) {
	table := NewTable(w, noColor, "Document", "Deployment", "Resources", "Estimated size", "Depends on").AlignRight(2)
	for _, name := range a.Order {
		info, ok := a.Template(name)
		if !ok {
			continue
		}
		label := name
		if info.IsMain {
			label += " *"
		}
		deps := "-"
		if len(info.DependsOn) > 0 {
			deps = strings.Join(info.DependsOn, ", ")
		}
		table.AddCells(
			Cell{Text: label},
			Cell{Text: assign.DeploymentName(name)},
			Cell{Text: strconv.Itoa(len(info.Resources))},
			Cell{Text: Usage(info.EstimatedSize, a.MaxTemplateSize), Attr: []color.Attribute{usageAttr(info.EstimatedSize, a.MaxTemplateSize)}},
			Cell{Text: deps},
		)
	}
	table.Render()
}
