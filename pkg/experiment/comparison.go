package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/influence-diffusion/pkg/graph"
)

// NamedGraph is a network taking part in a comparison
type NamedGraph struct {
	Name  string
	Graph *graph.Graph
}

// ComparisonParams configures a strategy comparison
type ComparisonParams struct {
	Infected   int
	Vaccinated int
	Repeat     RepeatConfig
}

// StatusCallback is called during a comparison to report progress
type StatusCallback func(percentage int, message string)

// Cell is the outcome of one strategy on one graph
type Cell struct {
	Graph         string         `json:"graph"`
	Strategy      Strategy       `json:"strategy"`
	Vaccinated    []int          `json:"vaccinated,omitempty"`
	Averaged      AveragedSeries `json:"averaged"`
	FinalInfected float64        `json:"final_infected"`
	RuntimeMS     int64          `json:"runtime_ms"`
}

// Comparison holds every (graph, strategy) cell of a study
type Comparison struct {
	TMax      int     `json:"t_max"`
	P         float64 `json:"p"`
	Trials    int     `json:"trials"`
	Cells     []Cell  `json:"cells"`
	RuntimeMS int64   `json:"runtime_ms"`
}

// Cell returns the cell for graph and strategy, or nil
func (c *Comparison) Cell(graphName string, strategy Strategy) *Cell {
	for i := range c.Cells {
		if c.Cells[i].Graph == graphName && c.Cells[i].Strategy == strategy {
			return &c.Cells[i]
		}
	}
	return nil
}

// Compare runs every strategy on every graph and averages the trials of each
// cell over the full series. Cells are ordered graph-major. Any failing cell
// aborts the comparison.
func Compare(ctx context.Context, graphs []NamedGraph, strategies []Strategy, params ComparisonParams, logger zerolog.Logger, status StatusCallback) (*Comparison, error) {
	if len(graphs) == 0 || len(strategies) == 0 {
		return nil, fmt.Errorf("comparison needs at least one graph and one strategy")
	}

	startTime := time.Now()
	result := &Comparison{
		TMax:   params.Repeat.TMax,
		P:      params.Repeat.P,
		Trials: params.Repeat.Trials,
		Cells:  make([]Cell, 0, len(graphs)*len(strategies)),
	}
	total := len(graphs) * len(strategies)

	for _, ng := range graphs {
		for _, strategy := range strategies {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			cellStart := time.Now()
			if status != nil {
				status(100*len(result.Cells)/total, fmt.Sprintf("Running %s strategy on %s", strategy, ng.Name))
			}

			exp, err := NewStrategyExperiment(strategy, ng.Graph, params.Infected, params.Vaccinated)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", ng.Name, strategy, err)
			}

			results, err := Repeat(ctx, exp, ng.Graph, params.Repeat, logger.With().Str("graph", ng.Name).Logger())
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", ng.Name, strategy, err)
			}

			averaged, err := AverageSeries(results)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", ng.Name, strategy, err)
			}

			cell := Cell{
				Graph:         ng.Name,
				Strategy:      strategy,
				Vaccinated:    exp.Vaccinated(),
				Averaged:      averaged,
				FinalInfected: averaged.Final().A,
				RuntimeMS:     time.Since(cellStart).Milliseconds(),
			}
			result.Cells = append(result.Cells, cell)

			logger.Info().
				Str("graph", ng.Name).
				Str("strategy", string(strategy)).
				Float64("final_infected", cell.FinalInfected).
				Int64("runtime_ms", cell.RuntimeMS).
				Msg("Comparison cell completed")
		}
	}

	result.RuntimeMS = time.Since(startTime).Milliseconds()
	if status != nil {
		status(100, "Comparison completed")
	}
	return result, nil
}
