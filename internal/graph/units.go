package graph

import (
	"sort"

	"github.com/armforge/armforge/pkg/resource"
)

// Unit is the smallest assignable group of resources: a single resource, or
// a maximal set joined by co-location constraints. Units whose dependencies
// form a cycle are merged, since splitting them would make the document
// graph cyclic.
type Unit struct {
	Index      int
	Members    []string
	Size       int64
	Type       string
	Preference resource.TemplatePreference
	// Merged is true when the unit absorbed a dependency cycle between
	// otherwise separate co-location groups.
	Merged bool
}

// Partition is the unit-level view of the graph
type Partition struct {
	Units      []*Unit
	Deps       [][]int // unit index -> units it depends on
	Dependents [][]int // unit index -> units depending on it

	unitOf map[string]int
}

// UnitOf returns the unit index holding id
func (p *Partition) UnitOf(id string) (int, bool) {
	u, ok := p.unitOf[id]
	return u, ok
}

// TopologicalOrder returns unit indices dependencies-first. The unit graph
// is acyclic by construction.
func (p *Partition) TopologicalOrder() []int {
	order, err := topoSort(len(p.Units), func(i int) []int { return p.Deps[i] }, func(i int) []int { return p.Dependents[i] })
	if err != nil {
		// Unreachable: strongly connected units were merged in Partition
		panic("graph: unit graph is cyclic after merge")
	}
	return order
}

// Components groups unit indices into weakly connected components,
// ordered by first unit; members keep unit order.
func (p *Partition) Components() [][]int {
	uf := newUnionFind(len(p.Units))
	for u, deps := range p.Deps {
		for _, d := range deps {
			uf.union(u, d)
		}
	}
	slots := make(map[int]int)
	var out [][]int
	for u := range p.Units {
		root := uf.find(u)
		slot, ok := slots[root]
		if !ok {
			slot = len(out)
			slots[root] = slot
			out = append(out, nil)
		}
		out[slot] = append(out[slot], u)
	}
	return out
}

// Partition computes partition units from the co-location relation and
// merges strongly connected unit cycles.
func (g *DependencyGraph) Partition() *Partition {
	// Co-location groups, keyed by union-find root
	groupOf := make([]int, len(g.nodes))
	var groups [][]int
	slots := make(map[int]int)
	for i := range g.nodes {
		root := g.uf.find(i)
		slot, ok := slots[root]
		if !ok {
			slot = len(groups)
			slots[root] = slot
			groups = append(groups, nil)
		}
		groups[slot] = append(groups[slot], i)
		groupOf[i] = slot
	}

	groupDeps := g.contract(groups, groupOf)

	// Merge strongly connected groups
	sccs := tarjan(len(groups), func(i int) []int { return groupDeps[i] })
	merged := make([][]int, 0, len(sccs))
	wasMerged := make([]bool, 0, len(sccs))
	for _, scc := range sccs {
		var members []int
		for _, grp := range scc {
			members = append(members, groups[grp]...)
		}
		sort.Ints(members)
		merged = append(merged, members)
		wasMerged = append(wasMerged, len(scc) > 1)
	}

	// Order units by their first arena index
	idx := make([]int, len(merged))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return merged[idx[a]][0] < merged[idx[b]][0] })

	p := &Partition{unitOf: make(map[string]int, len(g.nodes))}
	unitOfNode := make([]int, len(g.nodes))
	for _, m := range idx {
		members := merged[m]
		u := &Unit{
			Index:      len(p.Units),
			Merged:     wasMerged[m],
			Type:       g.nodes[members[0]].meta.Type,
			Preference: resource.PreferAny,
		}
		for _, i := range members {
			n := g.nodes[i]
			u.Members = append(u.Members, n.id)
			u.Size += n.meta.SizeEstimate
			u.Preference = strongerPreference(u.Preference, n.meta.Preference())
			p.unitOf[n.id] = u.Index
			unitOfNode[i] = u.Index
		}
		p.Units = append(p.Units, u)
	}

	unitGroups := make([][]int, len(p.Units))
	for i, u := range unitOfNode {
		unitGroups[u] = append(unitGroups[u], i)
	}
	p.Deps = g.contract(unitGroups, unitOfNode)
	p.Dependents = make([][]int, len(p.Units))
	for u, deps := range p.Deps {
		for _, d := range deps {
			p.Dependents[d] = append(p.Dependents[d], u)
		}
	}

	return p
}

// contract maps node edges onto group edges, dropping self loops.
// Each adjacency list is sorted and deduplicated.
func (g *DependencyGraph) contract(groups [][]int, groupOf []int) [][]int {
	out := make([][]int, len(groups))
	for grp, members := range groups {
		seen := make(map[int]bool)
		for _, i := range members {
			for _, d := range g.nodes[i].deps {
				target := groupOf[d]
				if target == grp || seen[target] {
					continue
				}
				seen[target] = true
				out[grp] = append(out[grp], target)
			}
		}
		sort.Ints(out[grp])
	}
	return out
}

// strongerPreference resolves member preferences; main beats linked beats any
func strongerPreference(a, b resource.TemplatePreference) resource.TemplatePreference {
	rank := func(p resource.TemplatePreference) int {
		switch p {
		case resource.PreferMain:
			return 2
		case resource.PreferLinked:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// tarjan returns strongly connected components of an index graph
func tarjan(n int, deps func(int) []int) [][]int {
	index := 0
	indices := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range indices {
		indices[i] = -1
	}
	var stack []int
	var out [][]int

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range deps(v) {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			out = append(out, scc)
		}
	}

	for v := 0; v < n; v++ {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}
	return out
}
