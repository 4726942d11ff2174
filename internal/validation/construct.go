package validation

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/pkg/resource"
)

// ConstructLayer checks each resource's own configuration. Resources are
// independent, so they are checked in parallel.
type ConstructLayer struct{}

// NewConstructLayer creates the construct layer
func NewConstructLayer() *ConstructLayer {
	return &ConstructLayer{}
}

// Name implements Layer
func (l *ConstructLayer) Name() errors.Layer {
	return errors.LayerConstruct
}

// Validate implements Layer
func (l *ConstructLayer) Validate(ctx context.Context, in *Input) ([]*errors.ValidationError, []*errors.ValidationError) {
	results := make([][]*errors.ValidationError, len(in.Resources))

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, r := range in.Resources {
		i, r := i, r
		eg.Go(func() error {
			results[i] = checkConstruct(r)
			return nil
		})
	}
	_ = eg.Wait()

	return split(flatten(results))
}

func checkConstruct(r resource.Resource) (out []*errors.ValidationError) {
	defer func() {
		// A panicking Validate is reported against the resource, not the run
		if p := recover(); p != nil {
			out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrConstructFailed,
				fmt.Sprintf("validation panicked: %v", p), r.Describe().ID))
		}
	}()

	meta := r.Describe()
	if meta.ID == "" || meta.Type == "" || meta.Name == "" {
		out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrMissingIdentity, "", meta.ID).
			WithExpected("id, type and name", fmt.Sprintf("id=%q type=%q name=%q", meta.ID, meta.Type, meta.Name)))
		return out
	}
	if !resource.ValidType(meta.Type) {
		out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrInvalidType,
			fmt.Sprintf("resource type %q is malformed", meta.Type), meta.ID, "type").
			WithExpected("Namespace/type", meta.Type))
	}
	if !resource.ValidName(meta.Type, meta.Name) {
		out = append(out, errors.NewValidationError(errors.LayerConstruct, errors.ErrInvalidName,
			fmt.Sprintf("name %q cannot address a %s", meta.Name, meta.Type), meta.ID, "name").
			WithExpected("one name segment per type segment, no surrounding whitespace or <>%&\\?", meta.Name))
	}

	if v, ok := r.(resource.Validator); ok {
		out = append(out, v.Validate()...)
	}
	return out
}

func flatten(parts [][]*errors.ValidationError) []*errors.ValidationError {
	var out []*errors.ValidationError
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// split separates warnings from errors, keeping order
func split(all []*errors.ValidationError) (warnings, errs []*errors.ValidationError) {
	for _, d := range all {
		if d.IsWarning() {
			warnings = append(warnings, d)
		} else {
			errs = append(errs, d)
		}
	}
	return warnings, errs
}
