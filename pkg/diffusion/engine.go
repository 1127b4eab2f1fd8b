package diffusion

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
)

// Simulate runs the diffusion process for TMax steps and returns TMax+1
// snapshots. Only InfluenceA spreads: an Undecided node scans its neighbours
// in order and, for every neighbour that was InfluenceA at the previous step,
// adopts InfluenceA with probability P. The first success ends the scan.
// InfluenceB nodes never change and never convert anyone.
//
// rng is the only source of randomness, so a fixed stream gives a fixed
// result. ctx is checked once per timestep.
func Simulate(ctx context.Context, network Network, params Params, rng *rand.Rand) (TimeSeries, error) {
	series, _, err := run(ctx, network, params, rng, false)
	return series, err
}

// SimulateWithHistory behaves like Simulate and also returns the state of
// every node at every timestep.
func SimulateWithHistory(ctx context.Context, network Network, params Params, rng *rand.Rand) (TimeSeries, *History, error) {
	return run(ctx, network, params, rng, true)
}

// ValidateParams checks the preconditions of a run against network
func ValidateParams(network Network, params Params) error {
	if network == nil {
		return fmt.Errorf("%w: nil network", ErrInvalidArgument)
	}
	if params.TMax < 0 {
		return fmt.Errorf("%w: negative tMax %d", ErrInvalidArgument, params.TMax)
	}
	if math.IsNaN(params.P) || params.P < 0 || params.P > 1 {
		return fmt.Errorf("%w: probability %v outside [0,1]", ErrInvalidArgument, params.P)
	}

	n := network.NumNodes()
	inA := make(map[int]bool, len(params.GroupA))
	for _, node := range params.GroupA {
		if node < 0 || node >= n {
			return fmt.Errorf("%w: group A node %d outside [0,%d)", ErrInvalidArgument, node, n)
		}
		if inA[node] {
			return fmt.Errorf("%w: node %d listed twice in group A", ErrInvalidArgument, node)
		}
		inA[node] = true
	}
	inB := make(map[int]bool, len(params.GroupB))
	for _, node := range params.GroupB {
		if node < 0 || node >= n {
			return fmt.Errorf("%w: group B node %d outside [0,%d)", ErrInvalidArgument, node, n)
		}
		if inB[node] {
			return fmt.Errorf("%w: node %d listed twice in group B", ErrInvalidArgument, node)
		}
		if inA[node] {
			return fmt.Errorf("%w: node %d is in both groups", ErrInvalidArgument, node)
		}
		inB[node] = true
	}
	return nil
}

func run(ctx context.Context, network Network, params Params, rng *rand.Rand, record bool) (TimeSeries, *History, error) {
	if err := ValidateParams(network, params); err != nil {
		return nil, nil, err
	}
	if rng == nil {
		return nil, nil, fmt.Errorf("%w: nil random source", ErrInvalidArgument)
	}

	n := network.NumNodes()
	current := make([]State, n)
	next := make([]State, n)

	counts := Snapshot{Undecided: n}
	for _, node := range params.GroupA {
		current[node] = InfluenceA
		counts.Undecided--
		counts.A++
	}
	for _, node := range params.GroupB {
		current[node] = InfluenceB
		counts.Undecided--
		counts.B++
	}

	series := make(TimeSeries, 0, params.TMax+1)
	series = append(series, counts)

	var history *History
	if record {
		history = newHistory(n, params.TMax)
		history.record(current)
	}

	for t := 0; t < params.TMax; t++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		copy(next, current)
		for node := 0; node < n; node++ {
			if current[node] != Undecided {
				continue
			}
			for _, neighbor := range network.Neighbors(node) {
				if current[neighbor] != InfluenceA {
					continue
				}
				if rng.Float64() < params.P {
					next[node] = InfluenceA
					counts.Undecided--
					counts.A++
					break
				}
			}
		}

		current, next = next, current
		series = append(series, counts)
		if record {
			history.record(current)
		}
	}

	return series, history, nil
}
