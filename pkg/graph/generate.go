package graph

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/graph/graphs/gen"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErdosRenyi generates a G(n, p) random graph
func ErdosRenyi(n int, p float64, src rand.Source) (*Graph, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative node count: %d", n)
	}
	ug := simple.NewUndirectedGraph()
	if err := gen.Gnp(ug, n, p, src); err != nil {
		return nil, fmt.Errorf("gnp generation failed: %w", err)
	}
	return FromGonum(ug), nil
}

// PowerLawDegrees draws n degrees from a discrete power law with exponent
// gamma and minimum degree 1. The whole sample is redrawn until the degree
// sum is even so it can be realised by a configuration model. Degrees are
// capped at n-1.
func PowerLawDegrees(n int, gamma float64, src rand.Source) ([]int, error) {
	if n <= 0 {
		return nil, fmt.Errorf("node count must be positive: %d", n)
	}
	if !(gamma > 1) {
		return nil, fmt.Errorf("power-law exponent must be > 1: %v", gamma)
	}

	// Continuous Pareto with xmin-0.5 rounded to the nearest integer
	// approximates the discrete power law with xmin=1.
	dist := distuv.Pareto{Xm: 0.5, Alpha: gamma - 1, Src: src}
	maxDegree := n - 1
	if maxDegree < 1 {
		maxDegree = 1
	}

	degrees := make([]int, n)
	for {
		sum := 0
		for i := range degrees {
			x := math.Floor(dist.Rand() + 0.5)
			k := maxDegree
			if x < float64(maxDegree) {
				k = int(x)
			}
			if k < 1 {
				k = 1
			}
			degrees[i] = k
			sum += k
		}
		if sum%2 == 0 {
			return degrees, nil
		}
	}
}

// ConfigurationModel wires a random graph with the given degree sequence by
// shuffling edge stubs and pairing them. Self loops and parallel edges that
// the pairing produces are dropped, so realised degrees can be lower than
// requested.
func ConfigurationModel(degrees []int, rng *rand.Rand) (*Graph, error) {
	total := 0
	for i, d := range degrees {
		if d < 0 {
			return nil, fmt.Errorf("negative degree %d for node %d", d, i)
		}
		total += d
	}
	if total%2 != 0 {
		return nil, fmt.Errorf("degree sum must be even: %d", total)
	}

	stubs := make([]int, 0, total)
	for node, d := range degrees {
		for j := 0; j < d; j++ {
			stubs = append(stubs, node)
		}
	}
	rng.Shuffle(len(stubs), func(i, j int) { stubs[i], stubs[j] = stubs[j], stubs[i] })

	g := NewGraph(len(degrees))
	for i := 0; i+1 < len(stubs); i += 2 {
		u, v := stubs[i], stubs[i+1]
		if u == v || g.HasEdge(u, v) {
			continue
		}
		if err := g.AddEdge(u, v); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// PowerLaw generates a scale-free graph of n nodes with degree exponent gamma
func PowerLaw(n int, gamma float64, src rand.Source) (*Graph, error) {
	degrees, err := PowerLawDegrees(n, gamma, src)
	if err != nil {
		return nil, err
	}
	return ConfigurationModel(degrees, rand.New(src))
}
