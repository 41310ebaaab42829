package graph

import (
	"cmp"
	"fmt"
	"slices"
)

// Graph is the read-only connection topology of one run. It is built once
// from accepted edges and never changes afterwards, so it is safe to share.
type Graph struct {
	slaves   []string
	edges    []Edge
	incoming map[string][]int
	outgoing map[string][]int
}

// New builds a graph over slaves (in declaration order) from edges. Every
// edge must reference declared slaves and no input may be fed twice; callers
// normally pass the output of Accepted.
func New(slaves []string, edges []Edge) (*Graph, error) {
	g := &Graph{
		slaves:   append([]string(nil), slaves...),
		edges:    append([]Edge(nil), edges...),
		incoming: make(map[string][]int, len(slaves)),
		outgoing: make(map[string][]int, len(slaves)),
	}
	known := make(map[string]bool, len(slaves))
	for _, s := range slaves {
		if known[s] {
			return nil, fmt.Errorf("slave %q declared more than once", s)
		}
		known[s] = true
	}

	fed := make(map[string]bool, len(edges))
	for i, e := range g.edges {
		if !known[e.From.Slave] {
			return nil, fmt.Errorf("edge %s: source slave not found: %s", e, e.From.Slave)
		}
		if !known[e.To.Slave] {
			return nil, fmt.Errorf("edge %s: target slave not found: %s", e, e.To.Slave)
		}
		if fed[e.To.String()] {
			return nil, fmt.Errorf("edge %s: input %s is already connected", e, e.To)
		}
		fed[e.To.String()] = true
		g.incoming[e.To.Slave] = append(g.incoming[e.To.Slave], i)
		g.outgoing[e.From.Slave] = append(g.outgoing[e.From.Slave], i)
	}
	return g, nil
}

// Slaves returns the slave names in declaration order.
func (g *Graph) Slaves() []string {
	return append([]string(nil), g.slaves...)
}

// Edges returns every edge in declaration order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Incoming returns the edges feeding slave, in declaration order.
func (g *Graph) Incoming(slave string) []Edge {
	return g.pick(g.incoming[slave])
}

// Outgoing returns the edges leaving slave, in declaration order.
func (g *Graph) Outgoing(slave string) []Edge {
	return g.pick(g.outgoing[slave])
}

// IncomingIndices returns the positions in Edges of the edges feeding slave.
// The scheduler uses them to key per-edge caches.
func (g *Graph) IncomingIndices(slave string) []int {
	return append([]int(nil), g.incoming[slave]...)
}

func (g *Graph) pick(idx []int) []Edge {
	out := make([]Edge, len(idx))
	for i, j := range idx {
		out[i] = g.edges[j]
	}
	return out
}

// AlgebraicLoops returns every group of slaves that feed each other in a
// cycle, including a single slave feeding itself. Groups and their members
// follow declaration order so the result is deterministic.
func (g *Graph) AlgebraicLoops() [][]string {
	order := make(map[string]int, len(g.slaves))
	for i, s := range g.slaves {
		order[s] = i
	}
	succ := make(map[string][]string, len(g.slaves))
	selfLoop := make(map[string]bool)
	for _, s := range g.slaves {
		seen := make(map[string]bool)
		for _, j := range g.outgoing[s] {
			to := g.edges[j].To.Slave
			if to == s {
				selfLoop[s] = true
			}
			if !seen[to] {
				seen[to] = true
				succ[s] = append(succ[s], to)
			}
		}
	}

	// Tarjan's strongly connected components over the slave-level graph.
	index := make(map[string]int)
	low := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var loops [][]string
	next := 0

	var visit func(s string)
	visit = func(s string) {
		index[s], low[s] = next, next
		next++
		stack = append(stack, s)
		onStack[s] = true

		for _, t := range succ[s] {
			if _, ok := index[t]; !ok {
				visit(t)
				low[s] = min(low[s], low[t])
			} else if onStack[t] {
				low[s] = min(low[s], index[t])
			}
		}

		if low[s] != index[s] {
			return
		}
		var comp []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			comp = append(comp, top)
			if top == s {
				break
			}
		}
		if len(comp) > 1 || selfLoop[s] {
			slices.SortFunc(comp, func(a, b string) int { return cmp.Compare(order[a], order[b]) })
			loops = append(loops, comp)
		}
	}

	for _, s := range g.slaves {
		if _, ok := index[s]; !ok {
			visit(s)
		}
	}
	slices.SortFunc(loops, func(a, b []string) int { return cmp.Compare(order[a[0]], order[b[0]]) })
	return loops
}
