package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/armforge/armforge/internal/assign"
	"github.com/armforge/armforge/internal/cli/config"
	"github.com/armforge/armforge/internal/cli/ui"
	"github.com/armforge/armforge/internal/declare"
	"github.com/armforge/armforge/internal/logging"
	"github.com/armforge/armforge/internal/synth"
	"github.com/armforge/armforge/internal/validation"
	"github.com/armforge/armforge/pkg/resource"
)

// synthFlags override the synth and output config sections
type synthFlags struct {
	strategy     string
	maxSize      string
	preferLinked bool
	output       string
}

func (f *synthFlags) register(cmd *cobra.Command) {
	names := make([]string, len(assign.Strategies))
	for i, s := range assign.Strategies {
		names[i] = string(s)
	}
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Grouping strategy: "+strings.Join(names, ", "))
	cmd.Flags().StringVar(&f.maxSize, "max-size", "", "Maximum template size, e.g. 3.5MiB or 1000000")
	cmd.Flags().BoolVar(&f.preferLinked, "prefer-linked", false, "Place resources without a preference in linked templates")
}

// apply copies the flags that were set onto cfg
func (f *synthFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("strategy") {
		cfg.Synth.Strategy = f.strategy
	}
	if cmd.Flags().Changed("max-size") {
		cfg.Synth.MaxTemplateSize = f.maxSize
	}
	if cmd.Flags().Changed("prefer-linked") {
		cfg.Synth.PreferLinkedTemplates = f.preferLinked
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Dir = f.output
	}
}

// project is what every command works on: resolved configuration, a
// logger and the parsed declarations
type project struct {
	cfg    *config.Config
	logger *zap.Logger
	file   string
	spec   *declare.Spec
}

// open loads configuration and declarations. Problems are printed to
// stderr and returned as reported errors.
func (o *globalOptions) open(cmd *cobra.Command, file string, flags *synthFlags) (*project, error) {
	errOut := cmd.ErrOrStderr()
	if file == "" {
		return nil, fmt.Errorf("no declaration file given (use -f)")
	}

	cfg, err := config.Load(o.configFile)
	if err != nil {
		fmt.Fprint(errOut, ui.ConfigError(err.Error(), nil, o.noColor))
		return nil, reported(err)
	}
	if flags != nil {
		flags.apply(cmd, cfg)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if _, err := assign.ParseStrategy(cfg.Synth.Strategy); err != nil {
		fmt.Fprint(errOut, ui.UnknownStrategyError(cfg.Synth.Strategy, strategySuggestions(cfg.Synth.Strategy), o.noColor))
		return nil, reported(err)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprint(errOut, ui.ConfigError(err.Error(), nil, o.noColor))
		return nil, reported(err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	spec, err := declare.Load(file)
	if err != nil {
		fmt.Fprint(errOut, ui.DeclarationError(file, err.Error(), o.noColor))
		return nil, reported(err)
	}

	logger.Debug("loaded declarations",
		zap.String("file", file),
		zap.String("config", cfg.File),
		zap.Int("resources", len(spec.Resources)),
		zap.Int("groups", len(spec.Groups)))
	return &project{cfg: cfg, logger: logger, file: file, spec: spec}, nil
}

func strategySuggestions(name string) []string {
	names := make([]string, len(assign.Strategies))
	for i, s := range assign.Strategies {
		names[i] = string(s)
	}
	return ui.FindSimilar(name, names)
}

// tree names the root node after the declaration file
func (p *project) tree() *resource.Tree {
	base := filepath.Base(p.file)
	return p.spec.Tree(strings.TrimSuffix(base, filepath.Ext(base)))
}

// synthesizer builds a synthesizer from the project configuration. The
// custom strategy groups by the configured assignment hint.
func (p *project) synthesizer(metrics *synth.Metrics) (*synth.Synthesizer, error) {
	ac, err := p.cfg.AssignConfig()
	if err != nil {
		return nil, err
	}
	if ac.Strategy == assign.Custom {
		ac.CustomGrouping = assign.HintGrouping(p.cfg.Synth.GroupingHint)
	}

	schemas, err := validation.NewSchemaSet(p.cfg.Schema.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	return synth.New(synth.Options{
		Assign:     ac,
		Parameters: p.spec.Parameters,
		Schemas:    schemas,
		Workers:    p.cfg.Synth.Workers,
		Version:    Version,
		Logger:     p.logger,
		Metrics:    metrics,
	}), nil
}
