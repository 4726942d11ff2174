package assign

import (
	"fmt"

	"github.com/armforge/armforge/internal/graph"
	utilstrings "github.com/armforge/armforge/internal/util/strings"
	"github.com/armforge/armforge/pkg/resource"
)

// draft is a document under construction
type draft struct {
	name  string
	units []int
	size  int64
	main  bool
	// deps are the drafts this one depends on so far
	deps map[*draft]bool
}

// plan places whole units into drafts in topological order. The main
// draft always exists and is created first.
type plan struct {
	g      *graph.DependencyGraph
	p      *graph.Partition
	cfg    Config
	drafts []*draft
	names  map[string]bool
	// at maps a placed unit to its draft
	at []*draft
}

func newPlan(g *graph.DependencyGraph, p *graph.Partition, cfg Config) *plan {
	pl := &plan{g: g, p: p, cfg: cfg, names: make(map[string]bool), at: make([]*draft, len(p.Units))}
	pl.drafts = append(pl.drafts, &draft{name: MainDocument, main: true, deps: make(map[*draft]bool)})
	pl.names[MainDocument] = true
	return pl
}

func (pl *plan) mainDraft() *draft {
	return pl.drafts[0]
}

// open creates a draft, suffixing the name if it is already taken
func (pl *plan) open(name string) *draft {
	unique := name
	for n := 2; pl.names[unique]; n++ {
		unique = fmt.Sprintf("%s-%d", name, n)
	}
	d := &draft{name: unique, deps: make(map[*draft]bool)}
	pl.names[unique] = true
	pl.drafts = append(pl.drafts, d)
	return d
}

func (pl *plan) fits(u int, d *draft) bool {
	return d.size+pl.p.Units[u].Size <= pl.cfg.MaxTemplateSize
}

func (pl *plan) place(u int, d *draft) {
	d.units = append(d.units, u)
	d.size += pl.p.Units[u].Size
	pl.at[u] = d
	for _, dep := range pl.p.Deps[u] {
		if dd := pl.at[dep]; dd != nil && dd != d {
			d.deps[dd] = true
		}
	}
}

// acyclic reports whether placing u in d keeps the document graph acyclic.
// Every dependency of u is already placed, so the only new edges leave d;
// they close a cycle exactly when one of their targets already reaches d.
func (pl *plan) acyclic(u int, d *draft) bool {
	seen := make(map[*draft]bool)
	var stack []*draft
	for _, dep := range pl.p.Deps[u] {
		if dd := pl.at[dep]; dd != nil && dd != d && !seen[dd] {
			seen[dd] = true
			stack = append(stack, dd)
		}
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == d {
			return false
		}
		for next := range cur.deps {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return true
}

// accepts reports whether u can join d without breaking the size budget
// or the document order
func (pl *plan) accepts(u int, d *draft) bool {
	return pl.fits(u, d) && pl.acyclic(u, d)
}

// wantsLinked reports whether u must stay out of the main document
func (pl *plan) wantsLinked(u int) bool {
	switch pl.p.Units[u].Preference {
	case resource.PreferLinked:
		return true
	case resource.PreferAny:
		return pl.cfg.PreferLinkedTemplates
	default:
		return false
	}
}

// result flattens drafts into a resource mapping and creation order
func (pl *plan) result() (map[string]string, []string) {
	docOf := make(map[string]string, pl.g.Len())
	var order []string
	for _, d := range pl.drafts {
		if len(d.units) == 0 && !d.main {
			continue
		}
		order = append(order, d.name)
		for _, u := range d.units {
			for _, id := range pl.p.Units[u].Members {
				docOf[id] = d.name
			}
		}
	}
	return docOf, order
}

// lane is a run of drafts filled in order; only its last draft accepts units.
// A fresh draft has no dependents, so it can always take the unit.
type lane struct {
	pl     *plan
	docs   []*draft
	opened int
	name   func(n int) string
}

func (l *lane) put(u int) {
	pl := l.pl
	// Main is preferred, not forced: a unit that would overflow it or make
	// it wait on a linked document is packed like any other.
	if pl.p.Units[u].Preference == resource.PreferMain && pl.accepts(u, pl.mainDraft()) {
		pl.place(u, pl.mainDraft())
		return
	}

	var cur *draft
	if len(l.docs) > 0 {
		cur = l.docs[len(l.docs)-1]
	}
	if cur == nil || !pl.accepts(u, cur) || (cur.main && pl.wantsLinked(u)) {
		l.opened++
		cur = pl.open(l.name(l.opened))
		l.docs = append(l.docs, cur)
	}
	pl.place(u, cur)
}

// minimizeCrossRefs packs units greedily in topological order, keeping
// adjacent units together.
func (pl *plan) minimizeCrossRefs() {
	l := &lane{
		pl:   pl,
		docs: []*draft{pl.mainDraft()},
		name: func(n int) string { return fmt.Sprintf("linked-%d", n) },
	}
	for _, u := range pl.p.TopologicalOrder() {
		l.put(u)
	}
}

// byResourceType groups units by provider namespace. Groups are ordered by
// the topological position of their first unit.
func (pl *plan) byResourceType() {
	lanes := make(map[string]*lane)
	for _, u := range pl.p.TopologicalOrder() {
		ns := resource.Namespace(pl.p.Units[u].Type)
		l, ok := lanes[ns]
		if !ok {
			slug := utilstrings.ToKebabCase(ns)
			if slug == "" {
				slug = "resources"
			}
			l = &lane{pl: pl, name: func(n int) string {
				if n == 1 {
					return slug
				}
				return fmt.Sprintf("%s-%d", slug, n)
			}}
			if len(lanes) == 0 {
				l.docs = []*draft{pl.mainDraft()}
			}
			lanes[ns] = l
		}
		l.put(u)
	}
}

// dependencyChain gives every connected component its own run of
// documents, split by size in topological order.
func (pl *plan) dependencyChain() {
	components := pl.p.Components()
	componentOf := make([]int, len(pl.p.Units))
	for c, units := range components {
		for _, u := range units {
			componentOf[u] = c
		}
	}

	lanes := make([]*lane, len(components))
	for c := range components {
		n := c + 1
		lanes[c] = &lane{pl: pl, name: func(m int) string {
			if m == 1 {
				return fmt.Sprintf("chain-%d", n)
			}
			return fmt.Sprintf("chain-%d-%d", n, m)
		}}
	}
	if len(lanes) > 0 {
		lanes[0].docs = []*draft{pl.mainDraft()}
	}

	for _, u := range pl.p.TopologicalOrder() {
		lanes[componentOf[u]].put(u)
	}
}
