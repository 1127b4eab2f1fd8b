package experiment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/influence-diffusion/pkg/diffusion"
	"github.com/gilchrisn/influence-diffusion/pkg/graph"
)

func ringGraph(n int) *graph.Graph {
	g := graph.NewGraph(n)
	for i := 0; i < n; i++ {
		if err := g.AddEdge(i, (i+1)%n); err != nil {
			panic(err)
		}
	}
	return g
}

func randomGraph(t *testing.T, n int, p float64, seed uint64) *graph.Graph {
	t.Helper()
	g, err := graph.ErdosRenyi(n, p, rand.NewPCG(seed, seed))
	if err != nil {
		t.Fatalf("failed to generate graph: %v", err)
	}
	return g
}

func TestSample(t *testing.T) {
	g := ringGraph(20)
	exclude := []int{0, 5, 10, 15}

	for seed := uint64(0); seed < 50; seed++ {
		sample, err := Sample(g, 8, exclude, rand.New(rand.NewPCG(seed, 1)))
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if len(sample) != 8 {
			t.Fatalf("seed %d: expected 8 nodes, got %d", seed, len(sample))
		}
		seen := make(map[int]bool)
		for _, node := range sample {
			if seen[node] {
				t.Errorf("seed %d: node %d drawn twice", seed, node)
			}
			seen[node] = true
			for _, ex := range exclude {
				if node == ex {
					t.Errorf("seed %d: excluded node %d drawn", seed, node)
				}
			}
			if node < 0 || node >= 20 {
				t.Errorf("seed %d: node %d out of range", seed, node)
			}
		}
	}
}

func TestSampleWholePool(t *testing.T) {
	sample, err := Sample(ringGraph(5), 3, []int{1, 3}, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	seen := map[int]bool{}
	for _, node := range sample {
		seen[node] = true
	}
	if !reflect.DeepEqual(seen, map[int]bool{0: true, 2: true, 4: true}) {
		t.Errorf("expected the whole pool {0 2 4}, got %v", sample)
	}
}

func TestSampleEdgeCases(t *testing.T) {
	g := ringGraph(5)
	rng := rand.New(rand.NewPCG(2, 2))

	sample, err := Sample(g, 4, []int{0, 1}, rng)
	if !errors.Is(err, diffusion.ErrInsufficientPopulation) {
		t.Errorf("expected ErrInsufficientPopulation, got %v", err)
	}
	if sample != nil {
		t.Errorf("expected no result, got %v", sample)
	}

	if _, err := Sample(g, -1, nil, rng); !errors.Is(err, diffusion.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	empty, err := Sample(g, 0, nil, rng)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil sample, got %v (%v)", empty, err)
	}
}

func TestSeedingModes(t *testing.T) {
	ctx := context.Background()
	g := ringGraph(4)

	tests := []struct {
		name     string
		exp      Experiment
		initial  diffusion.Snapshot
		expected diffusion.Snapshot
	}{
		{"FullyRandom", FullyRandom{SizeA: 1, SizeB: 1}, diffusion.Snapshot{Undecided: 2, A: 1, B: 1}, diffusion.Snapshot{}},
		{"HalfRandomA", HalfRandomA{GroupA: []int{0}, SizeB: 1}, diffusion.Snapshot{Undecided: 2, A: 1, B: 1}, diffusion.Snapshot{Undecided: 0, A: 3, B: 1}},
		{"HalfRandomB", HalfRandomB{GroupB: []int{0}, SizeA: 1}, diffusion.Snapshot{Undecided: 2, A: 1, B: 1}, diffusion.Snapshot{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := uint64(0); seed < 10; seed++ {
				series, err := tt.exp.Run(ctx, g, 2, 1.0, rand.New(rand.NewPCG(seed, 3)))
				if err != nil {
					t.Fatal(err)
				}
				if len(series) != 3 {
					t.Fatalf("expected 3 snapshots, got %d", len(series))
				}
				if series[0] != tt.initial {
					t.Errorf("seed %d: expected initial %v, got %v", seed, tt.initial, series[0])
				}
				if tt.expected != (diffusion.Snapshot{}) && series.Final() != tt.expected {
					t.Errorf("seed %d: expected final %v, got %v", seed, tt.expected, series.Final())
				}
			}
		})
	}
}

func TestSeedingFailures(t *testing.T) {
	ctx := context.Background()
	g := ringGraph(4)
	rng := rand.New(rand.NewPCG(1, 1))

	if _, err := (FullyRandom{SizeA: 3, SizeB: 2}).Run(ctx, g, 2, 0.5, rng); !errors.Is(err, diffusion.ErrInsufficientPopulation) {
		t.Errorf("expected ErrInsufficientPopulation for group B, got %v", err)
	}
	if _, err := (FullyRandom{SizeA: 5, SizeB: 0}).Run(ctx, g, 2, 0.5, rng); !errors.Is(err, diffusion.ErrInsufficientPopulation) {
		t.Errorf("expected ErrInsufficientPopulation for group A, got %v", err)
	}
	if _, err := (HalfRandomB{GroupB: []int{0, 1, 2}, SizeA: 2}).Run(ctx, g, 2, 0.5, rng); !errors.Is(err, diffusion.ErrInsufficientPopulation) {
		t.Errorf("expected ErrInsufficientPopulation, got %v", err)
	}
	if _, err := (HalfRandomA{GroupA: []int{9}, SizeB: 1}).Run(ctx, g, 2, 0.5, rng); !errors.Is(err, diffusion.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for out of range seed, got %v", err)
	}
}

func TestRepeatDeterministicAcrossWorkers(t *testing.T) {
	g := randomGraph(t, 150, 0.03, 4)
	exp := FullyRandom{SizeA: 3, SizeB: 3}
	cfg := RepeatConfig{TMax: 20, P: 0.4, Trials: 12, Seed: 99}

	cfg.Workers = 1
	sequential, err := Repeat(context.Background(), exp, g, cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Workers = 4
	parallel, err := Repeat(context.Background(), exp, g, cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if len(sequential) != 12 {
		t.Fatalf("expected 12 trials, got %d", len(sequential))
	}
	if !reflect.DeepEqual(sequential, parallel) {
		t.Error("worker count changed trial results")
	}

	for trial := range sequential {
		direct, err := exp.Run(context.Background(), g, cfg.TMax, cfg.P, TrialSource(cfg.Seed, trial))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(direct, sequential[trial]) {
			t.Errorf("trial %d does not match a direct run with its source", trial)
		}
	}
}

func TestRepeatAbortsOnFailure(t *testing.T) {
	var calls atomic.Int64
	failing := ExperimentFunc(func(ctx context.Context, network diffusion.Network, tMax int, p float64, rng *rand.Rand) (diffusion.TimeSeries, error) {
		if calls.Add(1) == 3 {
			return nil, fmt.Errorf("sampling group A: %w", diffusion.ErrInsufficientPopulation)
		}
		return diffusion.TimeSeries{{Undecided: 1}}, nil
	})

	results, err := Repeat(context.Background(), failing, ringGraph(4), RepeatConfig{Trials: 10, Workers: 1}, zerolog.Nop())
	if !errors.Is(err, diffusion.ErrInsufficientPopulation) {
		t.Errorf("expected the failing trial's error, got %v", err)
	}
	if results != nil {
		t.Errorf("expected no partial results, got %d", len(results))
	}
	if calls.Load() != 3 {
		t.Errorf("expected the batch to stop after the failing trial, got %d calls", calls.Load())
	}
}

func TestRepeatArguments(t *testing.T) {
	g := ringGraph(4)

	results, err := Repeat(context.Background(), FullyRandom{SizeA: 1}, g, RepeatConfig{Trials: 0}, zerolog.Nop())
	if err != nil || len(results) != 0 {
		t.Errorf("expected empty results for zero trials, got %v (%v)", results, err)
	}
	if _, err := Repeat(context.Background(), FullyRandom{}, g, RepeatConfig{Trials: -1}, zerolog.Nop()); !errors.Is(err, diffusion.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := Repeat(context.Background(), nil, g, RepeatConfig{Trials: 1}, zerolog.Nop()); !errors.Is(err, diffusion.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for nil experiment, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Repeat(ctx, FullyRandom{SizeA: 1}, g, RepeatConfig{TMax: 2, Trials: 3}, zerolog.Nop()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRepeatProgress(t *testing.T) {
	var reported atomic.Int64
	cfg := RepeatConfig{
		TMax:    5,
		P:       0.5,
		Trials:  7,
		Workers: 3,
		Seed:    1,
		Progress: func(done, total int) {
			if total != 7 {
				t.Errorf("expected total 7, got %d", total)
			}
			reported.Add(1)
		},
	}
	if _, err := Repeat(context.Background(), FullyRandom{SizeA: 1, SizeB: 1}, ringGraph(6), cfg, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	if reported.Load() != 7 {
		t.Errorf("expected 7 progress reports, got %d", reported.Load())
	}
}
