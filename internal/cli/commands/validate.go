package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/cli/ui"
	"github.com/armforge/armforge/internal/synth"
)

type validateOptions struct {
	file  string
	json  bool
	flags synthFlags
}

func newValidateCommand(g *globalOptions) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Synthesize in memory and run every validation layer",
		Long: `Run the full synthesis and the construct, structure, deployment,
cross-document and schema validation layers without writing any file.`,
		Example: `  armforge validate -f infra.yaml
  armforge validate -f infra.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Declaration file (YAML or JSON)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print diagnostics as JSON")
	opts.flags.register(cmd)
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runValidate(cmd *cobra.Command, g *globalOptions, opts *validateOptions) error {
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
	res, runErr := s.Synthesize(cmd.Context(), p.tree())

	if opts.json {
		data, err := synth.FormatResultJSON(res, runErr)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return reported(runErr)
	}

	if runErr != nil && !rejected(res) {
		fmt.Fprint(cmd.ErrOrStderr(), ui.SynthesisError(runErr.Error(), g.noColor))
		return reported(runErr)
	}
	fmt.Fprint(out, synth.FormatTerminal(res, runErr, g.noColor))
	if runErr != nil {
		return reported(runErr)
	}
	ui.WriteSuccess(out, fmt.Sprintf("All %d validation layers passed", len(errors.Layers)), g.noColor)
	return nil
}
