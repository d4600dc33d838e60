// Package ssadestroy implements interference analysis and SSA
// destruction (spec.md §4.7): the ConnectionGraph data structure, the
// interference-graph and φ-unite-graph builders, and the five-step
// destruction algorithm that rewrites φ-assigns into ordinary assigns
// and introduces user-visible locals. Grounded method-for-method on
// original_source/.../FromSSAFormPass.cpp (execute, nameParameterPhis,
// mapParameters, findPhiUnites), rewritten into idiomatic Go rather than
// transliterated from the C++.
package ssadestroy

import (
	"sort"

	"decompcore/internal/expr"
)

// ConnectionGraph is spec.md §3's undirected graph over
// subscripted-references, used for both interference (ig: cannot share a
// local) and φ-unite (pu: should share a local if non-interfering).
// Nodes are identified by a reference's String() form (base location
// plus its defining statement's subscript), which is exactly the form
// every use of that SSA value shares - see expr.SubscriptRef.String().
type ConnectionGraph struct {
	adj  map[string]map[string]bool
	refs map[string]*expr.SubscriptRef
}

// NewConnectionGraph builds an empty graph.
func NewConnectionGraph() *ConnectionGraph {
	return &ConnectionGraph{adj: map[string]map[string]bool{}, refs: map[string]*expr.SubscriptRef{}}
}

// Connect adds a symmetric edge between a and b. A self-edge (a and b
// naming the same SSA value) is a no-op - a reference never interferes
// with, nor needs uniting with, itself.
func (g *ConnectionGraph) Connect(a, b *expr.SubscriptRef) {
	if a == nil || b == nil {
		return
	}
	ka, kb := a.String(), b.String()
	if ka == kb {
		return
	}
	g.register(ka, a)
	g.register(kb, b)
	g.edge(ka, kb)
	g.edge(kb, ka)
}

func (g *ConnectionGraph) register(k string, r *expr.SubscriptRef) {
	if _, ok := g.refs[k]; !ok {
		g.refs[k] = r
	}
}

func (g *ConnectionGraph) edge(a, b string) {
	if g.adj[a] == nil {
		g.adj[a] = map[string]bool{}
	}
	g.adj[a][b] = true
}

// IsConnected reports whether a and b share an edge. Symmetric by
// construction (spec.md §8 property 8: "interference-graph edges are
// symmetric").
func (g *ConnectionGraph) IsConnected(a, b *expr.SubscriptRef) bool {
	if a == nil || b == nil {
		return false
	}
	return g.adj[a.String()][b.String()]
}

// Edges returns every edge exactly once, in a deterministic order (sorted
// by the lexicographically-smaller endpoint's key, then the other), so
// that destruction - which must make the same renaming choices on every
// run over the same input - does not depend on Go's randomized map
// iteration order.
func (g *ConnectionGraph) Edges() [][2]*expr.SubscriptRef {
	keys := make([]string, 0, len(g.adj))
	for k := range g.adj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := map[string]bool{}
	var out [][2]*expr.SubscriptRef
	for _, a := range keys {
		neighbors := make([]string, 0, len(g.adj[a]))
		for b := range g.adj[a] {
			neighbors = append(neighbors, b)
		}
		sort.Strings(neighbors)
		for _, b := range neighbors {
			if seen[a+"\x00"+b] || seen[b+"\x00"+a] {
				continue
			}
			seen[a+"\x00"+b] = true
			out = append(out, [2]*expr.SubscriptRef{g.refs[a], g.refs[b]})
		}
	}
	return out
}
