package experiment

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/gilchrisn/influence-diffusion/pkg/diffusion"
)

// Experiment produces one trial: it chooses the seed groups and runs the
// diffusion engine. Implementations must draw all randomness from rng.
type Experiment interface {
	Name() string
	Run(ctx context.Context, network diffusion.Network, tMax int, p float64, rng *rand.Rand) (diffusion.TimeSeries, error)
}

// ExperimentFunc adapts a plain function to the Experiment interface
type ExperimentFunc func(ctx context.Context, network diffusion.Network, tMax int, p float64, rng *rand.Rand) (diffusion.TimeSeries, error)

func (f ExperimentFunc) Name() string { return "custom" }

func (f ExperimentFunc) Run(ctx context.Context, network diffusion.Network, tMax int, p float64, rng *rand.Rand) (diffusion.TimeSeries, error) {
	return f(ctx, network, tMax, p, rng)
}

// Seeder draws the two seed groups of a trial
type Seeder interface {
	Groups(network diffusion.Network, rng *rand.Rand) (groupA, groupB []int, err error)
}

func runSeeded(ctx context.Context, seeder Seeder, network diffusion.Network, tMax int, p float64, rng *rand.Rand) (diffusion.TimeSeries, error) {
	groupA, groupB, err := seeder.Groups(network, rng)
	if err != nil {
		return nil, err
	}
	return diffusion.Simulate(ctx, network, diffusion.Params{TMax: tMax, GroupA: groupA, GroupB: groupB, P: p}, rng)
}

// FullyRandom draws group A from all nodes, then group B from the rest
type FullyRandom struct {
	SizeA int
	SizeB int
}

func (e FullyRandom) Name() string { return "fully_random" }

func (e FullyRandom) Groups(network diffusion.Network, rng *rand.Rand) ([]int, []int, error) {
	groupA, err := Sample(network, e.SizeA, nil, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling group A: %w", err)
	}
	groupB, err := Sample(network, e.SizeB, groupA, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling group B: %w", err)
	}
	return groupA, groupB, nil
}

func (e FullyRandom) Run(ctx context.Context, network diffusion.Network, tMax int, p float64, rng *rand.Rand) (diffusion.TimeSeries, error) {
	return runSeeded(ctx, e, network, tMax, p, rng)
}

// HalfRandomA uses a fixed group A and draws group B from the other nodes
type HalfRandomA struct {
	GroupA []int
	SizeB  int
}

func (e HalfRandomA) Name() string { return "half_random_a" }

func (e HalfRandomA) Groups(network diffusion.Network, rng *rand.Rand) ([]int, []int, error) {
	groupB, err := Sample(network, e.SizeB, e.GroupA, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling group B: %w", err)
	}
	return e.GroupA, groupB, nil
}

func (e HalfRandomA) Run(ctx context.Context, network diffusion.Network, tMax int, p float64, rng *rand.Rand) (diffusion.TimeSeries, error) {
	return runSeeded(ctx, e, network, tMax, p, rng)
}

// HalfRandomB uses a fixed group B and draws group A from the other nodes
type HalfRandomB struct {
	GroupB []int
	SizeA  int
}

func (e HalfRandomB) Name() string { return "half_random_b" }

func (e HalfRandomB) Groups(network diffusion.Network, rng *rand.Rand) ([]int, []int, error) {
	groupA, err := Sample(network, e.SizeA, e.GroupB, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling group A: %w", err)
	}
	return groupA, e.GroupB, nil
}

func (e HalfRandomB) Run(ctx context.Context, network diffusion.Network, tMax int, p float64, rng *rand.Rand) (diffusion.TimeSeries, error) {
	return runSeeded(ctx, e, network, tMax, p, rng)
}
