package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/armforge/armforge/internal/cli/ui"
	"github.com/armforge/armforge/internal/collector"
	"github.com/armforge/armforge/internal/graph"
	"github.com/armforge/armforge/pkg/resource"
)

type graphOptions struct {
	file string
	json bool
}

// graphReport is the JSON form of the graph command
type graphReport struct {
	Order []string     `json:"order,omitempty"`
	Cycle []string     `json:"cycle,omitempty"`
	Units []unitReport `json:"units"`
}

type unitReport struct {
	Index      int                         `json:"index"`
	Members    []string                    `json:"members"`
	Type       string                      `json:"type"`
	Size       int64                       `json:"size"`
	Preference resource.TemplatePreference `json:"preference,omitempty"`
	Merged     bool                        `json:"merged,omitempty"`
	DependsOn  []int                       `json:"dependsOn,omitempty"`
}

func newGraphCommand(g *globalOptions) *cobra.Command {
	opts := &graphOptions{}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the resource dependency order and partition units",
		Long: `Collect metadata and build the dependency graph. Prints resources
dependencies first, then the units assignment works on: resources joined by
co-location constraints or dependency cycles are a single unit.`,
		Example: `  armforge graph -f infra.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Declaration file (YAML or JSON)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the graph as JSON")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runGraph(cmd *cobra.Command, g *globalOptions, opts *graphOptions) error {
	out := cmd.OutOrStdout()

	p, err := g.open(cmd, opts.file, nil)
	if err != nil {
		return err
	}
	defer func() { _ = p.logger.Sync() }()

	collected, err := collector.Collect(p.tree())
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.SynthesisError(err.Error(), g.noColor))
		return reported(err)
	}
	dg, err := graph.Build(collected.Metadata())
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.SynthesisError(err.Error(), g.noColor))
		return reported(err)
	}

	report := graphReport{}
	order, err := dg.TopologicalSort()
	if cerr := graph.AsCycleError[string](err); cerr != nil {
		report.Cycle = cerr.Cycle
	} else if err != nil {
		return err
	}
	report.Order = order

	partition := dg.Partition()
	for _, u := range partition.Units {
		report.Units = append(report.Units, unitReport{
			Index:      u.Index,
			Members:    u.Members,
			Type:       u.Type,
			Size:       u.Size,
			Preference: u.Preference,
			Merged:     u.Merged,
			DependsOn:  partition.Deps[u.Index],
		})
	}

	if opts.json {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if report.Cycle != nil {
		fmt.Fprint(out, ui.Warning(fmt.Sprintf("dependency cycle: %s", strings.Join(report.Cycle, " → ")), nil, g.noColor))
		fmt.Fprintln(out)
	} else {
		ui.Heading(out, "Dependency order", g.noColor)
		items := make([]string, len(report.Order))
		for i, id := range report.Order {
			items[i] = id
			if deps := dg.Dependencies(id); len(deps) > 0 {
				items[i] += " ← " + strings.Join(deps, ", ")
			}
		}
		ui.Numbered(out, g.noColor, items...)
		fmt.Fprintln(out)
	}

	ui.Heading(out, "Partition units", g.noColor)
	table := ui.NewTable(out, g.noColor, "Unit", "Members", "Type", "Size", "Preference", "Depends on").AlignRight(0, 3)
	for _, u := range report.Units {
		members := strings.Join(u.Members, ", ")
		if u.Merged {
			members += " (merged cycle)"
		}
		deps := make([]string, len(u.DependsOn))
		for i, d := range u.DependsOn {
			deps[i] = strconv.Itoa(d)
		}
		pref := string(u.Preference)
		if pref == "" {
			pref = "-"
		}
		depList := "-"
		if len(deps) > 0 {
			depList = strings.Join(deps, ", ")
		}
		table.AddRow(strconv.Itoa(u.Index), members, u.Type, humanize.IBytes(uint64(u.Size)), pref, depList)
	}
	table.Render()
	return nil
}
