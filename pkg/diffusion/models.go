package diffusion

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine and the experiment layer. Callers match
// them with errors.Is; returned errors wrap them with context.
var (
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrInsufficientPopulation   = errors.New("insufficient population")
	ErrInconsistentTrialLengths = errors.New("inconsistent trial lengths")
)

// State of a node at one timestep
type State uint8

const (
	Undecided State = iota
	InfluenceA
	InfluenceB
)

// NumStates is the number of distinct node states
const NumStates = 3

func (s State) String() string {
	switch s {
	case Undecided:
		return "undecided"
	case InfluenceA:
		return "influence_a"
	case InfluenceB:
		return "influence_b"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Network is the read-only topology consumed by the engine. Node identifiers
// are the dense indices 0..NumNodes()-1 and Neighbors order is the tie-break
// order of the simulation.
type Network interface {
	NumNodes() int
	Neighbors(node int) []int
}

// Params holds the inputs of one simulation run
type Params struct {
	TMax   int     `json:"t_max"`
	GroupA []int   `json:"group_a"`
	GroupB []int   `json:"group_b"`
	P      float64 `json:"p"`
}

// Snapshot is the number of nodes in each state at one timestep
type Snapshot struct {
	Undecided int `json:"undecided"`
	A         int `json:"influence_a"`
	B         int `json:"influence_b"`
}

// Total returns the number of nodes accounted for by the snapshot
func (s Snapshot) Total() int { return s.Undecided + s.A + s.B }

// Count returns the count for state
func (s Snapshot) Count(state State) int {
	switch state {
	case Undecided:
		return s.Undecided
	case InfluenceA:
		return s.A
	case InfluenceB:
		return s.B
	}
	return 0
}

// TimeSeries holds one snapshot per timestep, index 0 being the initial state
type TimeSeries []Snapshot

// Final returns the last snapshot of the series
func (ts TimeSeries) Final() Snapshot {
	if len(ts) == 0 {
		return Snapshot{}
	}
	return ts[len(ts)-1]
}
