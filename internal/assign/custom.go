package assign

import (
	"fmt"
	"sort"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/graph"
	"github.com/armforge/armforge/pkg/resource"
)

// custom runs the caller's grouping function and checks the mapping for
// unknown ids, missing ids and split co-location units. A split unit is
// rejected; the caller's mapping is never rewritten.
func (a *Assigner) custom(g *graph.DependencyGraph) (map[string]string, []string, string, error) {
	if a.cfg.CustomGrouping == nil {
		return nil, nil, "", &errors.AssignmentError{
			Code:    errors.ErrCustomGroupingFailed,
			Message: "custom strategy selected without a grouping function",
		}
	}

	ids := g.IDs()
	metas := make([]resource.Metadata, 0, len(ids))
	for _, id := range ids {
		m, _ := g.Metadata(id)
		metas = append(metas, m)
	}

	mapping, err := a.cfg.CustomGrouping(metas)
	if err != nil {
		return nil, nil, "", &errors.AssignmentError{
			Code:    errors.ErrCustomGroupingFailed,
			Message: fmt.Sprintf("custom grouping function failed: %v", err),
		}
	}

	var unknown []string
	for id := range mapping {
		if _, ok := g.Index(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, nil, "", &errors.AssignmentError{
			Code:      errors.ErrCustomUnknownID,
			Message:   errors.GetErrorMessage(errors.ErrCustomUnknownID),
			Resources: unknown,
		}
	}

	var missing []string
	for _, id := range ids {
		if mapping[id] == "" {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, nil, "", &errors.AssignmentError{
			Code:      errors.ErrCustomIncomplete,
			Message:   errors.GetErrorMessage(errors.ErrCustomIncomplete),
			Resources: missing,
		}
	}

	// Checking each declared pair covers the transitive closure
	for _, m := range metas {
		for _, other := range m.RequiresSameTemplate {
			if mapping[other] != mapping[m.ID] {
				return nil, nil, "", &errors.AssignmentError{
					Code:      errors.ErrCustomColocation,
					Message:   fmt.Sprintf("co-located resources split across documents %q and %q", mapping[m.ID], mapping[other]),
					Resources: []string{m.ID, other},
					Documents: []string{mapping[m.ID], mapping[other]},
				}
			}
		}
	}

	if len(ids) == 0 {
		return map[string]string{}, []string{MainDocument}, MainDocument, nil
	}
	main := mapping[ids[0]]
	seen := make(map[string]bool)
	for _, id := range ids {
		if mapping[id] == MainDocument {
			main = MainDocument
			break
		}
	}
	order := []string{main}
	seen[main] = true
	for _, id := range ids {
		doc := mapping[id]
		if !seen[doc] {
			seen[doc] = true
			order = append(order, doc)
		}
	}

	docOf := make(map[string]string, len(ids))
	for _, id := range ids {
		docOf[id] = mapping[id]
	}
	return docOf, order, main, nil
}

// HintGrouping returns a grouping function that places each resource in
// the document named by its assignment hint key, or main when unset.
func HintGrouping(key string) GroupingFunc {
	return func(metas []resource.Metadata) (map[string]string, error) {
		out := make(map[string]string, len(metas))
		for _, m := range metas {
			doc := m.AssignmentHints[key]
			if doc == "" {
				doc = MainDocument
			}
			out[m.ID] = doc
		}
		return out, nil
	}
}
