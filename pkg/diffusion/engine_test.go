package diffusion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"
)

// adjacency is a minimal Network for tests
type adjacency [][]int

func (a adjacency) NumNodes() int            { return len(a) }
func (a adjacency) Neighbors(node int) []int { return a[node] }

func newAdjacency(n int, edges [][2]int) adjacency {
	a := make(adjacency, n)
	for _, e := range edges {
		a[e[0]] = append(a[e[0]], e[1])
		a[e[1]] = append(a[e[1]], e[0])
	}
	return a
}

func ringNetwork() adjacency {
	return newAdjacency(4, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}})
}

func randomNetwork(n int, p float64, seed uint64) adjacency {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	var edges [][2]int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < p {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return newAdjacency(n, edges)
}

// countingSource counts how many values the engine draws
type countingSource struct {
	src   rand.Source
	draws int
}

func (c *countingSource) Uint64() uint64 {
	c.draws++
	return c.src.Uint64()
}

func TestRingScenario(t *testing.T) {
	params := Params{TMax: 2, GroupA: []int{0}, GroupB: []int{2}, P: 1.0}

	series, history, err := SimulateWithHistory(context.Background(), ringNetwork(), params, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatalf("simulation failed: %v", err)
	}

	expected := TimeSeries{
		{Undecided: 2, A: 1, B: 1},
		{Undecided: 0, A: 3, B: 1},
		{Undecided: 0, A: 3, B: 1},
	}
	if !reflect.DeepEqual(series, expected) {
		t.Fatalf("expected %v, got %v", expected, series)
	}
	if series.Final() != (Snapshot{Undecided: 0, A: 3, B: 1}) {
		t.Errorf("unexpected final snapshot %v", series.Final())
	}

	if history.Len() != 3 || history.NumNodes() != 4 {
		t.Fatalf("expected 3 frames of 4 nodes, got %d of %d", history.Len(), history.NumNodes())
	}
	for _, node := range []int{1, 3} {
		if history.StateAt(node, 0) != Undecided || history.StateAt(node, 1) != InfluenceA {
			t.Errorf("node %d should move from undecided to influence A at t=1, trace %v", node, history.Trace(node))
		}
	}
	for step := 0; step < history.Len(); step++ {
		if history.StateAt(2, step) != InfluenceB {
			t.Errorf("node 2 left influence B at t=%d", step)
		}
		if history.Counts(step) != series[step] {
			t.Errorf("t=%d: history counts %v disagree with series %v", step, history.Counts(step), series[step])
		}
	}
}

func TestZeroProbability(t *testing.T) {
	network := randomNetwork(60, 0.1, 3)
	params := Params{TMax: 20, GroupA: []int{0, 1, 2}, GroupB: []int{3, 4}, P: 0}

	series, err := Simulate(context.Background(), network, params, rand.New(rand.NewPCG(9, 9)))
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 21 {
		t.Fatalf("expected 21 snapshots, got %d", len(series))
	}
	for step, s := range series {
		if s != series[0] {
			t.Errorf("t=%d: expected %v, got %v", step, series[0], s)
		}
	}
}

func TestInvariants(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		t.Run(fmt.Sprintf("Seed_%d", seed), func(t *testing.T) {
			network := randomNetwork(80, 0.05, seed)
			params := Params{TMax: 15, GroupA: []int{0, 10, 20}, GroupB: []int{5, 15, 25, 35}, P: 0.4}

			series, err := Simulate(context.Background(), network, params, rand.New(rand.NewPCG(seed, 42)))
			if err != nil {
				t.Fatal(err)
			}
			for step, s := range series {
				if s.Total() != network.NumNodes() {
					t.Errorf("t=%d: conservation violated, %v sums to %d", step, s, s.Total())
				}
				if s.B != len(params.GroupB) {
					t.Errorf("t=%d: influence B changed to %d", step, s.B)
				}
				if step > 0 && s.Undecided > series[step-1].Undecided {
					t.Errorf("t=%d: undecided grew from %d to %d", step, series[step-1].Undecided, s.Undecided)
				}
			}
		})
	}
}

func TestDeterminism(t *testing.T) {
	network := randomNetwork(100, 0.04, 5)
	params := Params{TMax: 30, GroupA: []int{1, 2}, GroupB: []int{3}, P: 0.3}

	first, err := Simulate(context.Background(), network, params, rand.New(rand.NewPCG(77, 78)))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Simulate(context.Background(), network, params, rand.New(rand.NewPCG(77, 78)))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical random streams gave different series:\n%v\n%v", first, second)
	}
}

func TestFirstQualifyingNeighborWins(t *testing.T) {
	// node 0 is undecided with three influence A neighbours
	star := newAdjacency(4, [][2]int{{0, 1}, {0, 2}, {0, 3}})
	params := Params{TMax: 1, GroupA: []int{1, 2, 3}, P: 1.0}

	src := &countingSource{src: rand.NewPCG(1, 2)}
	if _, err := Simulate(context.Background(), star, params, rand.New(src)); err != nil {
		t.Fatal(err)
	}
	if src.draws != 1 {
		t.Errorf("p=1: expected scan to stop after one draw, got %d draws", src.draws)
	}

	src = &countingSource{src: rand.NewPCG(1, 2)}
	params.P = 0
	if _, err := Simulate(context.Background(), star, params, rand.New(src)); err != nil {
		t.Fatal(err)
	}
	if src.draws != 3 {
		t.Errorf("p=0: expected one draw per influence A neighbour, got %d draws", src.draws)
	}
}

func TestSynchronousUpdate(t *testing.T) {
	// chain 0-1-2: node 2 must wait for node 1 to convert at t=1
	chain := newAdjacency(3, [][2]int{{0, 1}, {1, 2}})
	params := Params{TMax: 2, GroupA: []int{0}, P: 1.0}

	series, err := Simulate(context.Background(), chain, params, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	expected := TimeSeries{{Undecided: 2, A: 1}, {Undecided: 1, A: 2}, {Undecided: 0, A: 3}}
	if !reflect.DeepEqual(series, expected) {
		t.Errorf("expected %v, got %v", expected, series)
	}
}

func TestInfluenceBDoesNotSpread(t *testing.T) {
	chain := newAdjacency(3, [][2]int{{0, 1}, {1, 2}})
	params := Params{TMax: 5, GroupB: []int{0}, P: 1.0}

	series, err := Simulate(context.Background(), chain, params, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	for step, s := range series {
		if s != (Snapshot{Undecided: 2, B: 1}) {
			t.Errorf("t=%d: influence B spread: %v", step, s)
		}
	}
}

func TestInvalidArguments(t *testing.T) {
	network := ringNetwork()
	rng := rand.New(rand.NewPCG(1, 1))

	tests := []struct {
		name    string
		network Network
		params  Params
		rng     *rand.Rand
	}{
		{"NegativeTMax", network, Params{TMax: -1, P: 0.5}, rng},
		{"ProbabilityAboveOne", network, Params{TMax: 1, P: 1.5}, rng},
		{"NegativeProbability", network, Params{TMax: 1, P: -0.1}, rng},
		{"NaNProbability", network, Params{TMax: 1, P: math.NaN()}, rng},
		{"OverlappingGroups", network, Params{TMax: 1, GroupA: []int{0, 1}, GroupB: []int{1}, P: 0.5}, rng},
		{"DuplicateSeed", network, Params{TMax: 1, GroupA: []int{0, 0}, P: 0.5}, rng},
		{"OutOfRangeSeed", network, Params{TMax: 1, GroupB: []int{4}, P: 0.5}, rng},
		{"NilNetwork", nil, Params{TMax: 1, P: 0.5}, rng},
		{"NilRandom", network, Params{TMax: 1, P: 0.5}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series, err := Simulate(context.Background(), tt.network, tt.params, tt.rng)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
			if series != nil {
				t.Errorf("expected no output on error, got %v", series)
			}
		})
	}
}

func TestZeroHorizon(t *testing.T) {
	series, err := Simulate(context.Background(), ringNetwork(), Params{TMax: 0, GroupA: []int{0}, P: 1}, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(series, TimeSeries{{Undecided: 3, A: 1}}) {
		t.Errorf("expected only the initial snapshot, got %v", series)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Simulate(ctx, ringNetwork(), Params{TMax: 3, GroupA: []int{0}, P: 1}, rand.New(rand.NewPCG(1, 1)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStateString(t *testing.T) {
	names := map[State]string{Undecided: "undecided", InfluenceA: "influence_a", InfluenceB: "influence_b"}
	for state, name := range names {
		if state.String() != name {
			t.Errorf("expected %s, got %s", name, state.String())
		}
	}
	if State(7).String() != "state(7)" {
		t.Errorf("unexpected name for unknown state: %s", State(7).String())
	}
}
