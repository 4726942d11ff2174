package resource

import "github.com/armforge/armforge/compiler/errors"

// Adapt wraps a legacy resource so it satisfies Resource. The synthesized
// metadata is conservative: a fixed size estimate, no dependencies, no
// co-location constraints and no template preference.
func Adapt(l Legacy) Resource {
	return &legacyAdapter{legacy: l}
}

// IsAdapted reports whether r was produced by Adapt
func IsAdapted(r Resource) bool {
	_, ok := r.(*legacyAdapter)
	return ok
}

type legacyAdapter struct {
	legacy Legacy
}

func (a *legacyAdapter) Describe() Metadata {
	id := a.legacy.Identity()
	return Metadata{
		ID:                 id.ID,
		Type:               id.Type,
		Name:               id.Name,
		SizeEstimate:       FallbackSizeEstimate,
		TemplatePreference: PreferAny,
	}
}

func (a *legacyAdapter) Generate(ctx Context) (Body, error) {
	return a.legacy.Generate(ctx)
}

// Validate forwards construct validation when the legacy resource supports it
func (a *legacyAdapter) Validate() []*errors.ValidationError {
	if v, ok := a.legacy.(Validator); ok {
		return v.Validate()
	}
	return nil
}
