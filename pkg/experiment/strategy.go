package experiment

import (
	"fmt"
	"math/rand/v2"

	"github.com/gilchrisn/influence-diffusion/pkg/centrality"
	"github.com/gilchrisn/influence-diffusion/pkg/diffusion"
	"github.com/gilchrisn/influence-diffusion/pkg/graph"
)

// Strategy selects the vaccinated (influence B) group
type Strategy string

const (
	StrategyRandom      Strategy = "random"
	StrategyDegree      Strategy = "degree"
	StrategyBetweenness Strategy = "betweenness"
)

// Strategies lists the supported strategies in presentation order
func Strategies() []Strategy {
	return []Strategy{StrategyRandom, StrategyDegree, StrategyBetweenness}
}

// ParseStrategy validates a strategy name
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range Strategies() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown strategy %q", diffusion.ErrInvalidArgument, name)
}

// StrategyExperiment is a vaccination experiment: infected nodes are always
// drawn at random, vaccinated nodes are chosen by the strategy.
type StrategyExperiment struct {
	Experiment
	seeder     Seeder
	strategy   Strategy
	vaccinated []int
}

// Name returns the strategy name
func (e *StrategyExperiment) Name() string { return string(e.strategy) }

// Vaccinated returns the fixed vaccinated group, nil for the random strategy
func (e *StrategyExperiment) Vaccinated() []int { return e.vaccinated }

// Groups draws the infected and vaccinated groups of one trial
func (e *StrategyExperiment) Groups(network diffusion.Network, rng *rand.Rand) ([]int, []int, error) {
	return e.seeder.Groups(network, rng)
}

// NewStrategyExperiment builds the experiment of strategy on g. Centrality
// is ranked once here since the topology does not change between trials.
func NewStrategyExperiment(strategy Strategy, g *graph.Graph, infected, vaccinated int) (*StrategyExperiment, error) {
	if infected < 0 || vaccinated < 0 {
		return nil, fmt.Errorf("%w: negative group size (infected=%d, vaccinated=%d)",
			diffusion.ErrInvalidArgument, infected, vaccinated)
	}

	var metric centrality.Metric
	switch strategy {
	case StrategyRandom:
		seeder := FullyRandom{SizeA: infected, SizeB: vaccinated}
		return &StrategyExperiment{
			Experiment: seeder,
			seeder:     seeder,
			strategy:   strategy,
		}, nil
	case StrategyDegree:
		metric = centrality.MetricDegree
	case StrategyBetweenness:
		metric = centrality.MetricBetweenness
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", diffusion.ErrInvalidArgument, strategy)
	}

	if vaccinated > g.NumNodes() {
		return nil, fmt.Errorf("%w: %d vaccinated requested from %d nodes",
			diffusion.ErrInsufficientPopulation, vaccinated, g.NumNodes())
	}
	ranking, err := centrality.Rank(g, metric)
	if err != nil {
		return nil, err
	}
	group := ranking.Top(vaccinated)
	seeder := HalfRandomB{GroupB: group, SizeA: infected}

	return &StrategyExperiment{
		Experiment: seeder,
		seeder:     seeder,
		strategy:   strategy,
		vaccinated: group,
	}, nil
}
