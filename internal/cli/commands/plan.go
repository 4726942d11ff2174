package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/armforge/armforge/internal/cli/ui"
	"github.com/armforge/armforge/internal/synth"
)

type planOptions struct {
	file  string
	json  bool
	flags synthFlags
}

func newPlanCommand(g *globalOptions) *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show how resources would be split into templates",
		Long: `Collect metadata, build the dependency graph and assign documents
without generating them. Prints every document with its estimated size,
resources and the documents it waits on.`,
		Example: `  armforge plan -f infra.yaml
  armforge plan -f infra.yaml --strategy dependency-chain --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Declaration file (YAML or JSON)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the plan as JSON")
	opts.flags.register(cmd)
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runPlan(cmd *cobra.Command, g *globalOptions, opts *planOptions) error {
	out := cmd.OutOrStdout()

	p, err := g.open(cmd, opts.file, &opts.flags)
	if err != nil {
		return err
	}
	defer func() { _ = p.logger.Sync() }()

	s, err := p.synthesizer(nil)
	if err != nil {
		return err
	}
	plan, planErr := s.Plan(cmd.Context(), p.tree())

	res := &synth.Result{}
	if plan != nil {
		res.RunID = plan.RunID
		res.Assignments = plan.Assignments
		res.Validation = plan.Validation
	}

	if opts.json {
		data, err := synth.FormatResultJSON(res, planErr)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return reported(planErr)
	}

	if planErr != nil {
		if rejected(res) {
			fmt.Fprint(out, synth.FormatTerminal(res, planErr, g.noColor))
		} else {
			fmt.Fprint(cmd.ErrOrStderr(), ui.SynthesisError(planErr.Error(), g.noColor))
		}
		return reported(planErr)
	}

	a := plan.Assignments
	ui.Heading(out, "Assignment plan", g.noColor)
	ui.Fields(out, g.noColor,
		ui.Field{Key: "Strategy", Value: string(a.Strategy)},
		ui.Field{Key: "Max template size", Value: humanize.IBytes(uint64(a.MaxTemplateSize))},
		ui.Field{Key: "Resources", Value: strconv.Itoa(len(a.Assignments))},
		ui.Field{Key: "Documents", Value: strconv.Itoa(len(a.Order))},
		ui.Field{Key: "Deployment order", Value: strings.Join(a.DeploymentOrder, " → ")},
	)
	fmt.Fprintln(out)

	ui.DocumentTable(out, a, g.noColor)

	if len(a.CrossTemplateDependencies) > 0 {
		fmt.Fprintln(out)
		ui.Heading(out, "Cross-template dependencies", g.noColor)
		items := make([]string, len(a.CrossTemplateDependencies))
		for i, dep := range a.CrossTemplateDependencies {
			items[i] = fmt.Sprintf("%s (%s) → %s (%s) [%s]",
				dep.SourceResource, dep.SourceTemplate, dep.TargetResource, dep.TargetTemplate, dep.DependencyType)
		}
		ui.Bullets(out, g.noColor, items...)
	}
	return nil
}
