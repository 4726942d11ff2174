// Package synth runs a complete synthesis: collect metadata, build the
// dependency graph, assign documents, generate them and validate the
// result. A run either returns every document, validated, or none.
package synth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/assign"
	"github.com/armforge/armforge/internal/codegen"
	"github.com/armforge/armforge/internal/collector"
	"github.com/armforge/armforge/internal/graph"
	"github.com/armforge/armforge/internal/logging"
	"github.com/armforge/armforge/internal/synthctx"
	"github.com/armforge/armforge/internal/validation"
	"github.com/armforge/armforge/pkg/resource"
)

// Options configures a Synthesizer
type Options struct {
	Assign     assign.Config
	Parameters map[string]synthctx.Parameter
	// Schemas backs the schema compliance layer; nil only warns
	Schemas validation.SchemaProvider
	// Workers bounds parallel generation; zero means GOMAXPROCS
	Workers int
	Version string
	Logger  *zap.Logger
	Metrics *Metrics
}

// Synthesizer runs synthesis. It holds no per-run state and is safe for
// concurrent use.
type Synthesizer struct {
	opts     Options
	logger   *zap.Logger
	pipeline *validation.Pipeline
}

// New creates a synthesizer
func New(opts Options) *Synthesizer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Synthesizer{
		opts:     opts,
		logger:   logger,
		pipeline: validation.Default(logger, opts.Schemas),
	}
}

// Plan is everything known before documents are generated
type Plan struct {
	RunID       string
	Collected   *collector.Result
	Graph       *graph.DependencyGraph
	Partition   *graph.Partition
	Assignments *assign.Assignments
	// Validation holds the construct layer result
	Validation *validation.Result
}

// Result is a finished run. Documents is nil unless validation passed.
type Result struct {
	RunID       string                       `json:"runId"`
	Documents   map[string]*codegen.Template `json:"documents,omitempty"`
	Assignments *assign.Assignments          `json:"assignments,omitempty"`
	Validation  *validation.Result           `json:"validation,omitempty"`
	// MetadataWarnings lists resources that went through the legacy adapter
	MetadataWarnings []*errors.MetadataError `json:"metadataWarnings,omitempty"`
	Duration         time.Duration           `json:"duration"`
}

// Err returns the validation failure of the run, if any
func (r *Result) Err() error {
	if r == nil || r.Validation == nil {
		return nil
	}
	return r.Validation.Err()
}

// Plan collects, validates constructs, builds the graph and assigns
// documents. A construct failure is returned both in the plan and as a
// *errors.LayerError.
func (s *Synthesizer) Plan(ctx context.Context, tree *resource.Tree) (*Plan, error) {
	return s.plan(ctx, uuid.NewString(), tree)
}

func (s *Synthesizer) plan(ctx context.Context, runID string, tree *resource.Tree) (*Plan, error) {
	logger := s.logger.With(zap.String(logging.KeyRunID, runID))
	p := &Plan{RunID: runID}

	collected, err := collector.Collect(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to collect metadata: %w", err)
	}
	p.Collected = collected
	for _, w := range collected.Warnings {
		logger.Warn("using fallback metadata", zap.String(logging.KeyResource, w.ResourceID), zap.String("code", w.Code))
	}
	logger.Debug("collected metadata", zap.Int("resources", len(collected.Entries)))

	resources := make([]resource.Resource, len(collected.Entries))
	for i, e := range collected.Entries {
		resources[i] = e.Resource
	}
	p.Validation, err = s.pipeline.Run(ctx, &validation.Input{Resources: resources}, errors.LayerConstruct)
	if err != nil {
		return nil, err
	}
	if !p.Validation.Valid {
		return p, p.Validation.Err()
	}

	p.Graph, err = graph.Build(collected.Metadata())
	if err != nil {
		return p, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	p.Partition = p.Graph.Partition()
	logger.Debug("built dependency graph", zap.Int("nodes", p.Graph.Len()), zap.Int("units", len(p.Partition.Units)))

	p.Assignments, err = assign.New(s.opts.Assign).Assign(p.Graph)
	if err != nil {
		return p, fmt.Errorf("failed to assign documents: %w", err)
	}
	logger.Debug("assigned documents",
		zap.String("strategy", string(p.Assignments.Strategy)),
		zap.Strings("documents", p.Assignments.Order),
		zap.Int("cross_dependencies", len(p.Assignments.CrossTemplateDependencies)))
	return p, nil
}

// Synthesize runs the whole pipeline over tree. Validation failures are
// returned as a *errors.LayerError together with a Result that carries the
// diagnostics but no documents.
func (s *Synthesizer) Synthesize(ctx context.Context, tree *resource.Tree) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With(zap.String(logging.KeyRunID, runID))

	res, outcome, err := s.run(ctx, runID, tree, logger)
	res.Duration = time.Since(start)
	s.opts.Metrics.observe(res, outcome, res.Duration)

	switch outcome {
	case OutcomeSuccess:
		logger.Info("synthesis finished",
			zap.Int("documents", len(res.Documents)),
			zap.Int("warnings", len(res.Validation.Warnings)),
			zap.Duration("duration", res.Duration))
	case OutcomeInvalid:
		logger.Info("synthesis rejected by validation",
			zap.String(logging.KeyLayer, string(res.Validation.FailedLayer)),
			zap.Int("errors", len(res.Validation.Errors)))
	default:
		logger.Error("synthesis failed", zap.Error(err))
	}
	return res, err
}

func (s *Synthesizer) run(ctx context.Context, runID string, tree *resource.Tree, logger *zap.Logger) (*Result, string, error) {
	res := &Result{RunID: runID}

	p, err := s.plan(ctx, runID, tree)
	if p != nil {
		res.Assignments = p.Assignments
		res.Validation = p.Validation
		if p.Collected != nil {
			res.MetadataWarnings = p.Collected.Warnings
		}
	}
	if err != nil {
		if res.Validation != nil && !res.Validation.Valid {
			return res, OutcomeInvalid, err
		}
		return res, OutcomeFailed, err
	}

	session := synthctx.NewSession(p.Assignments, p.Collected.Metadata(), s.opts.Parameters)
	out, err := codegen.NewGenerator(session, p.Collected,
		codegen.WithWorkers(s.opts.Workers),
		codegen.WithVersion(s.opts.Version),
	).GenerateAll(ctx)
	if err != nil {
		return res, OutcomeFailed, fmt.Errorf("failed to generate documents: %w", err)
	}

	docs := make(map[string]map[string]any, len(out.Templates))
	for name, t := range out.Templates {
		m, err := t.Map()
		if err != nil {
			return res, OutcomeFailed, fmt.Errorf("failed to encode document %s: %w", name, err)
		}
		docs[name] = m
		logger.Debug("generated document",
			zap.String(logging.KeyDocument, name),
			zap.Int("resources", len(t.Resources)),
			zap.Int("outputs", len(t.Outputs)))
	}

	referenceWarnings := errors.NewCollector(errors.LayerStructure)
	referenceWarnings.AddAll(out.Warnings)
	res.Validation.Warnings = append(res.Validation.Warnings, referenceWarnings.Warnings()...)

	layers := make([]errors.Layer, 0, len(errors.Layers)-1)
	for _, l := range errors.Layers {
		if l != errors.LayerConstruct {
			layers = append(layers, l)
		}
	}
	rest, err := s.pipeline.Run(ctx, &validation.Input{
		Assignments: p.Assignments,
		Documents:   docs,
	}, layers...)
	if err != nil {
		return res, OutcomeFailed, err
	}
	res.Validation.Merge(rest)

	for _, w := range res.Validation.Warnings {
		logger.Warn(w.Message,
			zap.String("code", w.Code),
			zap.String(logging.KeyLayer, string(w.Layer)),
			zap.String("path", w.PathString()))
	}

	if !res.Validation.Valid {
		return res, OutcomeInvalid, res.Validation.Err()
	}
	res.Documents = out.Templates
	return res, OutcomeSuccess, nil
}
