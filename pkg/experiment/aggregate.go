package experiment

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/influence-diffusion/pkg/diffusion"
)

// MeanSnapshot is the mean number of nodes per state at one timestep
type MeanSnapshot struct {
	Undecided float64 `json:"undecided"`
	A         float64 `json:"influence_a"`
	B         float64 `json:"influence_b"`
}

// AveragedSeries is the elementwise mean of several trial series
type AveragedSeries []MeanSnapshot

// At returns the mean snapshot at step t, clamped to the last entry
func (a AveragedSeries) At(t int) MeanSnapshot {
	if len(a) == 0 {
		return MeanSnapshot{}
	}
	if t < 0 {
		t = 0
	}
	if t >= len(a) {
		t = len(a) - 1
	}
	return a[t]
}

// Final returns the last mean snapshot
func (a AveragedSeries) Final() MeanSnapshot {
	return a.At(len(a) - 1)
}

// Average computes the mean of the first steps snapshots across trials. The
// classic call passes tMax, which leaves out the final snapshot of each
// (tMax+1 long) series; AverageSeries covers the full length.
//
// Every series must have the same length and be at least steps long.
func Average(results []diffusion.TimeSeries, steps int) (AveragedSeries, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no trials to average", diffusion.ErrInvalidArgument)
	}
	if steps < 0 {
		return nil, fmt.Errorf("%w: negative step count %d", diffusion.ErrInvalidArgument, steps)
	}

	length := len(results[0])
	for trial, series := range results {
		if len(series) != length {
			return nil, fmt.Errorf("%w: trial %d has %d snapshots, trial 0 has %d",
				diffusion.ErrInconsistentTrialLengths, trial, len(series), length)
		}
	}
	if length < steps {
		return nil, fmt.Errorf("%w: series have %d snapshots, %d requested",
			diffusion.ErrInconsistentTrialLengths, length, steps)
	}

	averaged := make(AveragedSeries, steps)
	values := make([]float64, len(results))
	for t := 0; t < steps; t++ {
		var mean [diffusion.NumStates]float64
		for state := diffusion.State(0); state < diffusion.NumStates; state++ {
			for trial, series := range results {
				values[trial] = float64(series[t].Count(state))
			}
			mean[state] = stat.Mean(values, nil)
		}
		averaged[t] = MeanSnapshot{
			Undecided: mean[diffusion.Undecided],
			A:         mean[diffusion.InfluenceA],
			B:         mean[diffusion.InfluenceB],
		}
	}
	return averaged, nil
}

// AverageSeries averages every snapshot of the trials, initial and final
// included.
func AverageSeries(results []diffusion.TimeSeries) (AveragedSeries, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no trials to average", diffusion.ErrInvalidArgument)
	}
	return Average(results, len(results[0]))
}
