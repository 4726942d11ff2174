// Package assign partitions the dependency graph into output documents
// under a per-document size budget.
package assign

import (
	"fmt"
	"sort"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/internal/graph"
	"github.com/armforge/armforge/pkg/resource"
)

// Assigner maps partition units to documents
type Assigner struct {
	cfg Config
}

// New creates an assigner. Zero config fields take their defaults.
func New(cfg Config) *Assigner {
	return &Assigner{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration
func (a *Assigner) Config() Config {
	return a.cfg
}

// Assign partitions g. The result satisfies totality, co-location, the
// size budget and an acyclic document graph with exactly one main
// document; otherwise an error is returned and no partial result.
func (a *Assigner) Assign(g *graph.DependencyGraph) (*Assignments, error) {
	if _, err := g.TopologicalSort(); err != nil {
		if cerr := graph.AsCycleError[string](err); cerr != nil {
			return nil, &errors.AssignmentError{
				Code:      errors.ErrResourceCycle,
				Message:   errors.GetErrorMessage(errors.ErrResourceCycle),
				Resources: cerr.Cycle,
			}
		}
		return nil, err
	}

	p := g.Partition()
	for _, u := range p.Units {
		if u.Size > a.cfg.MaxTemplateSize {
			return nil, &errors.AssignmentError{
				Code:      errors.ErrUnitTooLarge,
				Message:   fmt.Sprintf("partition unit of %d resource(s) exceeds the maximum template size", len(u.Members)),
				Resources: u.Members,
				Size:      u.Size,
				Budget:    a.cfg.MaxTemplateSize,
			}
		}
	}

	var (
		docOf map[string]string
		order []string
		main  string
		err   error
	)
	switch a.cfg.Strategy {
	case MinimizeCrossRefs, ByResourceType, DependencyChain:
		pl := newPlan(g, p, a.cfg)
		switch a.cfg.Strategy {
		case MinimizeCrossRefs:
			pl.minimizeCrossRefs()
		case ByResourceType:
			pl.byResourceType()
		case DependencyChain:
			pl.dependencyChain()
		}
		docOf, order = pl.result()
		main = MainDocument
	case Custom:
		docOf, order, main, err = a.custom(g)
		if err != nil {
			return nil, err
		}
	default:
		_, err := ParseStrategy(string(a.cfg.Strategy))
		return nil, err
	}

	return a.finalize(g, docOf, order, main)
}

// finalize derives templates and cross-template dependencies from a
// resource-to-document mapping and checks every invariant.
func (a *Assigner) finalize(g *graph.DependencyGraph, docOf map[string]string, order []string, main string) (*Assignments, error) {
	out := &Assignments{
		Assignments:     make(map[string]string, g.Len()),
		Templates:       make(map[string]*TemplateInfo, len(order)),
		Order:           order,
		Strategy:        a.cfg.Strategy,
		MaxTemplateSize: a.cfg.MaxTemplateSize,
	}
	position := make(map[string]int, len(order))
	deployments := make(map[string]string, len(order))
	for i, name := range order {
		position[name] = i
		out.Templates[name] = &TemplateInfo{Name: name, IsMain: name == main}

		dn := DeploymentName(name)
		if other, taken := deployments[dn]; taken {
			return nil, &errors.AssignmentError{
				Code:      errors.ErrDeploymentCollision,
				Message:   fmt.Sprintf("documents %q and %q both deploy as %q", other, name, dn),
				Documents: []string{other, name},
			}
		}
		deployments[dn] = name
	}

	var unassigned []string
	for _, id := range g.IDs() {
		doc, ok := docOf[id]
		if !ok {
			unassigned = append(unassigned, id)
			continue
		}
		meta, _ := g.Metadata(id)
		t := out.Templates[doc]
		t.Resources = append(t.Resources, id)
		t.EstimatedSize += meta.SizeEstimate
		out.Assignments[id] = doc
	}
	if len(unassigned) > 0 {
		return nil, &errors.AssignmentError{
			Code:      errors.ErrCustomIncomplete,
			Message:   errors.GetErrorMessage(errors.ErrCustomIncomplete),
			Resources: unassigned,
		}
	}

	for _, name := range order {
		t := out.Templates[name]
		if t.EstimatedSize > a.cfg.MaxTemplateSize {
			return nil, &errors.AssignmentError{
				Code:      errors.ErrDocumentTooLarge,
				Message:   fmt.Sprintf("document %q exceeds the maximum template size", name),
				Resources: t.Resources,
				Documents: []string{name},
				Size:      t.EstimatedSize,
				Budget:    a.cfg.MaxTemplateSize,
			}
		}
	}

	mains := 0
	for _, t := range out.Templates {
		if t.IsMain {
			mains++
		}
	}
	if mains != 1 {
		return nil, &errors.AssignmentError{
			Code:    errors.ErrMainDocument,
			Message: fmt.Sprintf("assignment produced %d main documents", mains),
		}
	}

	dependsOn := make(map[string]map[string]bool)
	for _, id := range g.IDs() {
		src := docOf[id]
		meta, _ := g.Metadata(id)
		for _, dep := range g.Dependencies(id) {
			dst := docOf[dep]
			if dst == src {
				continue
			}
			out.CrossTemplateDependencies = append(out.CrossTemplateDependencies, CrossTemplateDependency{
				SourceTemplate: src,
				TargetTemplate: dst,
				SourceResource: id,
				TargetResource: dep,
				DependencyType: meta.KindOf(dep),
			})
			if dependsOn[src] == nil {
				dependsOn[src] = make(map[string]bool)
			}
			dependsOn[src][dst] = true
		}
	}
	for src, targets := range dependsOn {
		t := out.Templates[src]
		for dst := range targets {
			t.DependsOn = append(t.DependsOn, dst)
		}
		sort.Slice(t.DependsOn, func(i, j int) bool { return position[t.DependsOn[i]] < position[t.DependsOn[j]] })
	}

	deploy, err := documentOrder(out)
	if err != nil {
		return nil, err
	}
	out.DeploymentOrder = deploy
	return out, nil
}

// documentOrder sorts documents dependencies first, reusing the resource
// graph machinery over document nodes.
func documentOrder(a *Assignments) ([]string, error) {
	dg := graph.New()
	for _, name := range a.Order {
		if err := dg.AddNode(name, resource.Metadata{ID: name}); err != nil {
			return nil, err
		}
	}
	for _, name := range a.Order {
		for _, dep := range a.Templates[name].DependsOn {
			if err := dg.AddEdge(name, dep); err != nil {
				return nil, err
			}
		}
	}
	order, err := dg.TopologicalSort()
	if err != nil {
		if cerr := graph.AsCycleError[string](err); cerr != nil {
			return nil, &errors.AssignmentError{
				Code:      errors.ErrDocumentCycle,
				Message:   errors.GetErrorMessage(errors.ErrDocumentCycle),
				Documents: cerr.Cycle,
			}
		}
		return nil, err
	}
	return order, nil
}
