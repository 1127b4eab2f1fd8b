package graph

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
)

// Graph is an unweighted undirected graph with dense node indices 0..NumNodes-1.
// Adjacency order is insertion order and is the tie-break order used by the
// diffusion engine.
type Graph struct {
	Adjacency [][]int  `json:"-"`
	Labels    []string `json:"labels,omitempty"` // original IDs when loaded from a file
	numEdges  int
}

// NewGraph creates a graph with n isolated nodes
func NewGraph(numNodes int) *Graph {
	return &Graph{
		Adjacency: make([][]int, numNodes),
	}
}

// NumNodes returns the number of nodes
func (g *Graph) NumNodes() int { return len(g.Adjacency) }

// NumEdges returns the number of undirected edges
func (g *Graph) NumEdges() int { return g.numEdges }

// Neighbors returns the neighbours of node in adjacency order.
// The returned slice must not be modified.
func (g *Graph) Neighbors(node int) []int {
	if node < 0 || node >= len(g.Adjacency) {
		return nil
	}
	return g.Adjacency[node]
}

// Degree returns the number of neighbours of node
func (g *Graph) Degree(node int) int {
	return len(g.Neighbors(node))
}

// HasEdge reports whether u and v are adjacent
func (g *Graph) HasEdge(u, v int) bool {
	for _, n := range g.Neighbors(u) {
		if n == v {
			return true
		}
	}
	return false
}

// AddEdge adds the undirected edge u-v. Self loops and parallel edges are
// rejected so the graph stays simple.
func (g *Graph) AddEdge(u, v int) error {
	n := len(g.Adjacency)
	if u < 0 || u >= n || v < 0 || v >= n {
		return fmt.Errorf("node index out of range: u=%d, v=%d, numNodes=%d", u, v, n)
	}
	if u == v {
		return fmt.Errorf("self loop on node %d", u)
	}
	if g.HasEdge(u, v) {
		return fmt.Errorf("duplicate edge %d-%d", u, v)
	}

	g.Adjacency[u] = append(g.Adjacency[u], v)
	g.Adjacency[v] = append(g.Adjacency[v], u)
	g.numEdges++
	return nil
}

// Label returns the original identifier of node, or its index when the graph
// was not loaded from a labelled source.
func (g *Graph) Label(node int) string {
	if node >= 0 && node < len(g.Labels) {
		return g.Labels[node]
	}
	return fmt.Sprintf("%d", node)
}

// Validate checks adjacency consistency
func (g *Graph) Validate() error {
	if len(g.Adjacency) == 0 {
		return fmt.Errorf("graph has no nodes")
	}

	n := len(g.Adjacency)
	for u, neighbors := range g.Adjacency {
		for _, v := range neighbors {
			if v < 0 || v >= n {
				return fmt.Errorf("invalid neighbor %d for node %d", v, u)
			}
			if v == u {
				return fmt.Errorf("self loop on node %d", u)
			}
			if !g.HasEdge(v, u) {
				return fmt.Errorf("graph is not symmetric: edge %d->%d", u, v)
			}
		}
	}
	if g.Labels != nil && len(g.Labels) != n {
		return fmt.Errorf("labels length %d does not match %d nodes", len(g.Labels), n)
	}
	return nil
}

// Gonum converts the graph into a gonum undirected graph whose node IDs are
// the dense indices of g.
func (g *Graph) Gonum() *simple.UndirectedGraph {
	ug := simple.NewUndirectedGraph()
	for i := range g.Adjacency {
		ug.AddNode(simple.Node(int64(i)))
	}
	for u, neighbors := range g.Adjacency {
		for _, v := range neighbors {
			if u < v {
				ug.SetEdge(simple.Edge{F: simple.Node(int64(u)), T: simple.Node(int64(v))})
			}
		}
	}
	return ug
}

// FromGonum builds a Graph from any gonum undirected graph. Nodes are mapped
// to dense indices in ascending gonum ID order and neighbours are inserted in
// ascending order, so the result does not depend on gonum's map iteration.
func FromGonum(ug *simple.UndirectedGraph) *Graph {
	nodes := ug.Nodes()
	ids := make([]int64, 0, nodes.Len())
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	index := make(map[int64]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	g := NewGraph(len(ids))
	for i, id := range ids {
		to := ug.From(id)
		neighbors := make([]int, 0, to.Len())
		for to.Next() {
			neighbors = append(neighbors, index[to.Node().ID()])
		}
		sort.Ints(neighbors)
		for _, j := range neighbors {
			if i < j {
				// cannot fail: indices are in range and gonum graphs are simple
				_ = g.AddEdge(i, j)
			}
		}
	}
	return g
}
