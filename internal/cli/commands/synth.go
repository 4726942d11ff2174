package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/armforge/armforge/internal/cli/ui"
	"github.com/armforge/armforge/internal/codegen"
	"github.com/armforge/armforge/internal/synth"
	"github.com/armforge/armforge/internal/watch"
)

// AssignmentsFile is written next to the documents
const AssignmentsFile = "assignments.json"

type synthOptions struct {
	file        string
	json        bool
	watch       bool
	metricsFile string
	flags       synthFlags
}

func newSynthCommand(g *globalOptions) *cobra.Command {
	opts := &synthOptions{}

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize and write ARM templates",
		Long: `Load resource declarations, split them into templates and write one
<document>.json per template plus assignments.json to the output directory.

Nothing is written unless every validation layer passes.`,
		Example: `  # Synthesize into build/templates
  armforge synth -f infra.yaml

  # Group by resource type with a 1 MiB template limit
  armforge synth -f infra.yaml --strategy resource-type --max-size 1MiB

  # Print a JSON report instead of the summary
  armforge synth -f infra.yaml --json

  # Re-run whenever infra.yaml or armforge.yaml changes
  armforge synth -f infra.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Declaration file (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.flags.output, "output", "o", "", "Output directory (overrides output.dir)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the run report as JSON")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-run when the declaration or config file changes")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	opts.flags.register(cmd)
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSynth(cmd *cobra.Command, g *globalOptions, opts *synthOptions) error {
	ctx := cmd.Context()

	p, err := g.open(cmd, opts.file, &opts.flags)
	if err != nil {
		return err
	}
	defer func() { _ = p.logger.Sync() }()

	reg := prometheus.NewRegistry()
	metrics, err := synth.NewMetrics(reg)
	if err != nil {
		return err
	}

	if !opts.watch {
		return synthOnce(ctx, cmd, g, opts, p, metrics, reg)
	}

	// A failed run is reported and watching continues
	_ = synthOnce(ctx, cmd, g, opts, p, metrics, reg)

	files := []string{opts.file}
	if p.cfg.File != "" {
		files = append(files, p.cfg.File)
	}

	var mu sync.Mutex
	logger := p.logger
	watcher, err := watch.NewFileWatcher(files, 0, logger, func(changed []string) error {
		mu.Lock()
		defer mu.Unlock()

		logger.Info("change detected, re-running", zap.Strings("files", changed))
		next, err := g.open(cmd, opts.file, &opts.flags)
		if err != nil {
			return nil
		}
		p = next
		_ = synthOnce(ctx, cmd, g, opts, p, metrics, reg)
		return nil
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	if !opts.json {
		color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "Watching for changes. Press Ctrl+C to stop.")
	}
	<-ctx.Done()
	return nil
}

// synthOnce runs one synthesis, writes the documents when it succeeds and
// prints the outcome
func synthOnce(ctx context.Context, cmd *cobra.Command, g *globalOptions, opts *synthOptions, p *project, metrics *synth.Metrics, reg *prometheus.Registry) error {
	out := cmd.OutOrStdout()

	s, err := p.synthesizer(metrics)
	if err != nil {
		return err
	}
	res, runErr := s.Synthesize(ctx, p.tree())

	var written []string
	if runErr == nil {
		written, runErr = writeDocuments(p.cfg.Output.Dir, res)
		if runErr == nil {
			p.logger.Info("wrote templates", zap.String("dir", p.cfg.Output.Dir), zap.Int("files", len(written)))
		}
	}

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, reg); err != nil {
			p.logger.Warn("failed to write metrics", zap.String("file", opts.metricsFile), zap.Error(err))
		}
	}

	if opts.json {
		data, err := synth.FormatResultJSON(res, runErr)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return reported(runErr)
	}

	if runErr != nil && !rejected(res) {
		fmt.Fprint(out, synth.FormatTerminal(res, nil, g.noColor))
		fmt.Fprint(cmd.ErrOrStderr(), ui.SynthesisError(runErr.Error(), g.noColor))
		return reported(runErr)
	}
	fmt.Fprint(out, synth.FormatTerminal(res, runErr, g.noColor))
	if runErr != nil {
		return reported(runErr)
	}
	ui.WriteSuccess(out, fmt.Sprintf("Wrote %d file(s) to %s", len(written), p.cfg.Output.Dir), g.noColor)
	return nil
}

// rejected reports whether validation stopped the run
func rejected(res *synth.Result) bool {
	return res != nil && res.Validation != nil && !res.Validation.Valid
}

// writeDocuments writes every document and the assignment summary into
// dir. Everything is encoded before the first file is written.
func writeDocuments(dir string, res *synth.Result) ([]string, error) {
	files := make([]string, 0, len(res.Assignments.Order)+1)
	contents := make(map[string][]byte, len(res.Assignments.Order)+1)

	for _, name := range res.Assignments.Order {
		t, ok := res.Documents[name]
		if !ok {
			return nil, fmt.Errorf("document %s was assigned but not generated", name)
		}
		data, err := codegen.MarshalDocument(t)
		if err != nil {
			return nil, err
		}
		file := name + ".json"
		files = append(files, file)
		contents[file] = data
	}

	data, err := json.MarshalIndent(res.Assignments, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize assignments: %w", err)
	}
	files = append(files, AssignmentsFile)
	contents[AssignmentsFile] = append(data, '\n')

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	paths := make([]string, len(files))
	for i, file := range files {
		paths[i] = filepath.Join(dir, file)
		if err := os.WriteFile(paths[i], contents[file], 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", paths[i], err)
		}
	}
	return paths, nil
}
