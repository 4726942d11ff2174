// Package validation gates synthesis output with five ordered layers:
// construct, structure, deployment order, cross-document integrity and
// schema compliance. The first layer reporting errors stops the run.
package validation

import (
	"context"

	"go.uber.org/zap"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/assign"
	"github.com/armforge/armforge/pkg/resource"
)

// Input is what the layers inspect. Construct only needs Resources;
// the other layers need the generated Documents.
type Input struct {
	Resources   []resource.Resource
	Assignments *assign.Assignments
	// Documents are generated templates decoded to plain JSON values
	Documents map[string]map[string]any
}

// Layer is one validation stage
type Layer interface {
	Name() errors.Layer
	Validate(ctx context.Context, in *Input) (warnings, errs []*errors.ValidationError)
}

// Result is the outcome of a pipeline run
type Result struct {
	Valid       bool                      `json:"valid"`
	FailedLayer errors.Layer              `json:"failedLayer,omitempty"`
	Errors      []*errors.ValidationError `json:"errors"`
	Warnings    []*errors.ValidationError `json:"warnings"`
	// Layers lists the layers that ran, in order
	Layers []errors.Layer `json:"layers"`
}

// Err returns a *errors.LayerError for a failed run
func (r *Result) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	return &errors.LayerError{Layer: r.FailedLayer, Errors: r.Errors}
}

// Merge folds a later run into r. A failure in r is kept.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Layers = append(r.Layers, other.Layers...)
	if r.Valid && !other.Valid {
		r.Valid = false
		r.FailedLayer = other.FailedLayer
		r.Errors = other.Errors
	}
}

// Pipeline runs layers in order
type Pipeline struct {
	layers []Layer
	logger *zap.Logger
}

// NewPipeline creates a pipeline over the given layers
func NewPipeline(logger *zap.Logger, layers ...Layer) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{layers: layers, logger: logger}
}

// Default returns the five standard layers. A nil provider disables
// schema checks, which then only produce W701 warnings.
func Default(logger *zap.Logger, schemas SchemaProvider) *Pipeline {
	return NewPipeline(logger,
		NewConstructLayer(),
		NewStructureLayer(),
		NewDeploymentLayer(),
		NewCrossDocumentLayer(),
		NewSchemaLayer(schemas),
	)
}

// Layers returns the layer names in execution order
func (p *Pipeline) Layers() []errors.Layer {
	out := make([]errors.Layer, len(p.layers))
	for i, l := range p.layers {
		out[i] = l.Name()
	}
	return out
}

// Run executes the selected layers (all when none are named) in pipeline
// order and stops at the first layer with errors. The error return is
// only set when ctx is done.
func (p *Pipeline) Run(ctx context.Context, in *Input, only ...errors.Layer) (*Result, error) {
	selected := make(map[errors.Layer]bool, len(only))
	for _, l := range only {
		selected[l] = true
	}

	res := &Result{Valid: true}
	for _, layer := range p.layers {
		name := layer.Name()
		if len(selected) > 0 && !selected[name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		collector := errors.NewCollector(name)
		warnings, errs := layer.Validate(ctx, in)
		collector.AddAll(warnings)
		collector.AddAll(errs)

		res.Layers = append(res.Layers, name)
		res.Warnings = append(res.Warnings, collector.Warnings()...)

		p.logger.Debug("validation layer finished",
			zap.String("layer", string(name)),
			zap.Int("errors", len(collector.Errors())),
			zap.Int("warnings", len(collector.Warnings())))

		if collector.HasErrors() {
			res.Valid = false
			res.FailedLayer = name
			res.Errors = collector.Errors()
			if collector.Truncated() {
				p.logger.Warn("validation error limit reached", zap.String("layer", string(name)), zap.Int("limit", errors.MaxErrors))
			}
			return res, nil
		}
	}
	return res, nil
}
