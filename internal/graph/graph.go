// Package graph holds the resource dependency graph used by the assigner.
//
// Nodes live in an arena and are addressed by their insertion index; edges
// are adjacency lists over those indices. Insertion order doubles as the
// deterministic tie-break for every traversal.
package graph

import (
	"container/heap"

	"github.com/armforge/armforge/compiler/errors"
	"github.com/armforge/armforge/pkg/resource"
)

// node is an arena slot
type node struct {
	id    string
	meta  resource.Metadata
	deps  []int // indices this node depends on
	rdeps []int // indices depending on this node
}

// DependencyGraph is a directed "depends on" graph plus a symmetric,
// transitively closed co-location relation.
type DependencyGraph struct {
	nodes []node
	index map[string]int
	edges map[[2]int]bool
	uf    *unionFind
}

// New creates an empty graph
func New() *DependencyGraph {
	return &DependencyGraph{
		index: make(map[string]int),
		edges: make(map[[2]int]bool),
		uf:    newUnionFind(0),
	}
}

// Build constructs a graph from collected metadata. Every id named in a
// dependency or co-location set must exist, otherwise a
// *errors.ReferenceIntegrityError is returned before any edge is added.
func Build(metas []resource.Metadata) (*DependencyGraph, error) {
	g := New()
	for _, m := range metas {
		if err := g.AddNode(m.ID, m); err != nil {
			return nil, err
		}
	}

	for _, m := range metas {
		for _, dep := range m.Dependencies {
			if _, ok := g.index[dep]; !ok {
				return nil, &errors.ReferenceIntegrityError{
					Code:       errors.ErrDanglingDependency,
					ResourceID: m.ID,
					Missing:    dep,
					Relation:   "dependency",
				}
			}
		}
		for _, other := range m.RequiresSameTemplate {
			if _, ok := g.index[other]; !ok {
				return nil, &errors.ReferenceIntegrityError{
					Code:       errors.ErrDanglingColocation,
					ResourceID: m.ID,
					Missing:    other,
					Relation:   "co-location constraint",
				}
			}
		}
	}

	for _, m := range metas {
		for _, dep := range m.Dependencies {
			if err := g.AddEdge(m.ID, dep); err != nil {
				return nil, err
			}
		}
		for _, other := range m.RequiresSameTemplate {
			if err := g.AddConstraint(m.ID, other); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// AddNode adds a resource to the arena
func (g *DependencyGraph) AddNode(id string, meta resource.Metadata) error {
	if _, exists := g.index[id]; exists {
		return &errors.ReferenceIntegrityError{
			Code:       errors.ErrDuplicateResource,
			ResourceID: id,
		}
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, node{id: id, meta: meta})
	g.uf.grow()
	return nil
}

// AddEdge records that from depends on to. Duplicate edges are ignored.
func (g *DependencyGraph) AddEdge(from, to string) error {
	fi, ok := g.index[from]
	if !ok {
		return &errors.ReferenceIntegrityError{Code: errors.ErrDanglingDependency, ResourceID: to, Missing: from, Relation: "dependent"}
	}
	ti, ok := g.index[to]
	if !ok {
		return &errors.ReferenceIntegrityError{Code: errors.ErrDanglingDependency, ResourceID: from, Missing: to, Relation: "dependency"}
	}
	if fi == ti {
		return &errors.ReferenceIntegrityError{Code: errors.ErrSelfDependency, ResourceID: from, Missing: to, Relation: "dependency"}
	}

	key := [2]int{fi, ti}
	if g.edges[key] {
		return nil
	}
	g.edges[key] = true
	g.nodes[fi].deps = append(g.nodes[fi].deps, ti)
	g.nodes[ti].rdeps = append(g.nodes[ti].rdeps, fi)
	return nil
}

// AddConstraint records that a and b must share a document
func (g *DependencyGraph) AddConstraint(a, b string) error {
	ai, ok := g.index[a]
	if !ok {
		return &errors.ReferenceIntegrityError{Code: errors.ErrDanglingColocation, ResourceID: b, Missing: a, Relation: "co-location constraint"}
	}
	bi, ok := g.index[b]
	if !ok {
		return &errors.ReferenceIntegrityError{Code: errors.ErrDanglingColocation, ResourceID: a, Missing: b, Relation: "co-location constraint"}
	}
	g.uf.union(ai, bi)
	return nil
}

// Len returns the number of nodes
func (g *DependencyGraph) Len() int {
	return len(g.nodes)
}

// IDs returns node ids in insertion order
func (g *DependencyGraph) IDs() []string {
	out := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.id
	}
	return out
}

// Index returns the arena index of id
func (g *DependencyGraph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// ID returns the id stored at index i
func (g *DependencyGraph) ID(i int) string {
	return g.nodes[i].id
}

// Metadata returns the metadata stored for id
func (g *DependencyGraph) Metadata(id string) (resource.Metadata, bool) {
	i, ok := g.index[id]
	if !ok {
		return resource.Metadata{}, false
	}
	return g.nodes[i].meta, true
}

// Dependencies returns the ids id depends on, in edge insertion order
func (g *DependencyGraph) Dependencies(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, len(g.nodes[i].deps))
	for k, d := range g.nodes[i].deps {
		out[k] = g.nodes[d].id
	}
	return out
}

// Colocated reports whether a and b belong to the same partition unit
func (g *DependencyGraph) Colocated(a, b string) bool {
	ai, aok := g.index[a]
	bi, bok := g.index[b]
	if !aok || !bok {
		return false
	}
	return g.uf.find(ai) == g.uf.find(bi)
}

// TopologicalSort returns ids with every dependency before its dependents.
// Ties are broken by insertion order. A dependency cycle yields *CycleError;
// co-location constraints never take part in the check.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	order, err := topoSort(len(g.nodes), func(i int) []int { return g.nodes[i].deps }, func(i int) []int { return g.nodes[i].rdeps })
	if err != nil {
		cycle := findCycle(len(g.nodes), func(i int) []int { return g.nodes[i].deps })
		ids := make([]string, len(cycle))
		for k, i := range cycle {
			ids[k] = g.nodes[i].id
		}
		return nil, &CycleError[string]{Cycle: ids}
	}

	out := make([]string, len(order))
	for k, i := range order {
		out[k] = g.nodes[i].id
	}
	return out, nil
}

// FindConnectedComponents returns the weakly connected components over
// dependency edges and co-location constraints. Components are ordered by
// their first member; members keep insertion order.
func (g *DependencyGraph) FindConnectedComponents() [][]string {
	uf := newUnionFind(len(g.nodes))
	for i := range g.nodes {
		for _, d := range g.nodes[i].deps {
			uf.union(i, d)
		}
		uf.union(i, g.uf.find(i))
	}

	groups := make(map[int]int)
	var out [][]string
	for i, n := range g.nodes {
		root := uf.find(i)
		slot, ok := groups[root]
		if !ok {
			slot = len(out)
			groups[root] = slot
			out = append(out, nil)
		}
		out[slot] = append(out[slot], n.id)
	}
	return out
}

// errCycle signals that topoSort could not order every node
type errCycle struct{}

func (errCycle) Error() string { return "cycle" }

// topoSort is Kahn's algorithm over an index space; ready nodes are taken
// smallest index first.
func topoSort(n int, deps, rdeps func(int) []int) ([]int, error) {
	pending := make([]int, n)
	ready := &intHeap{}
	for i := 0; i < n; i++ {
		pending[i] = len(deps(i))
		if pending[i] == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]int, 0, n)
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		order = append(order, i)
		for _, dependent := range rdeps(i) {
			pending[dependent]--
			if pending[dependent] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}

	if len(order) != n {
		return nil, errCycle{}
	}
	return order, nil
}

// findCycle returns one cycle as a closed path (first == last), or nil
func findCycle(n int, deps func(int) []int) []int {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, n)
	var stack []int
	var cycle []int

	var visit func(int) bool
	visit = func(i int) bool {
		color[i] = grey
		stack = append(stack, i)
		for _, d := range deps(i) {
			switch color[d] {
			case grey:
				for k, s := range stack {
					if s == d {
						cycle = append(append([]int(nil), stack[k:]...), d)
						return true
					}
				}
			case white:
				if visit(d) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return false
	}

	for i := 0; i < n; i++ {
		if color[i] == white && visit(i) {
			return cycle
		}
	}
	return nil
}

// intHeap is a min-heap of arena indices
type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
