// Package centrality ranks nodes for targeted seeding.
package centrality

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/network"

	"github.com/gilchrisn/influence-diffusion/pkg/graph"
)

// Metric names a centrality measure
type Metric string

const (
	MetricDegree      Metric = "degree"
	MetricBetweenness Metric = "betweenness"
)

// Network is the topology needed for degree ranking
type Network interface {
	NumNodes() int
	Degree(node int) int
}

// Score is the centrality of one node
type Score struct {
	Node  int     `json:"node"`
	Value float64 `json:"value"`
}

// Ranking lists nodes by descending score. Ties are broken by ascending node
// index so rankings are reproducible.
type Ranking []Score

// Top returns the k highest ranked nodes
func (r Ranking) Top(k int) []int {
	if k > len(r) {
		k = len(r)
	}
	if k < 0 {
		k = 0
	}
	nodes := make([]int, k)
	for i := 0; i < k; i++ {
		nodes[i] = r[i].Node
	}
	return nodes
}

func newRanking(scores []float64) Ranking {
	r := make(Ranking, len(scores))
	for node, value := range scores {
		r[node] = Score{Node: node, Value: value}
	}
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Value != r[j].Value {
			return r[i].Value > r[j].Value
		}
		return r[i].Node < r[j].Node
	})
	return r
}

// Degree ranks nodes by number of neighbours
func Degree(g Network) Ranking {
	scores := make([]float64, g.NumNodes())
	for node := range scores {
		scores[node] = float64(g.Degree(node))
	}
	return newRanking(scores)
}

// Betweenness ranks nodes by shortest-path betweenness, normalised the way
// undirected betweenness usually is: divided by (n-1)(n-2)/2 pairs.
func Betweenness(g *graph.Graph) Ranking {
	n := g.NumNodes()
	raw := network.Betweenness(g.Gonum())

	scale := 1.0
	if n > 2 {
		// gonum counts both orientations of every undirected pair
		scale = 1.0 / float64((n-1)*(n-2))
	}

	scores := make([]float64, n)
	for id, value := range raw {
		scores[id] = value * scale
	}
	return newRanking(scores)
}

// Rank computes the ranking for metric
func Rank(g *graph.Graph, metric Metric) (Ranking, error) {
	switch metric {
	case MetricDegree:
		return Degree(g), nil
	case MetricBetweenness:
		return Betweenness(g), nil
	default:
		return nil, fmt.Errorf("unknown centrality metric: %s", metric)
	}
}
