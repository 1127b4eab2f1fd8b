package diffusion

// History is the full per-node state trace of one run. It is only needed by
// animators; aggregation works from the TimeSeries alone.
type History struct {
	numNodes int
	frames   [][]State
}

func newHistory(numNodes, tMax int) *History {
	return &History{
		numNodes: numNodes,
		frames:   make([][]State, 0, tMax+1),
	}
}

func (h *History) record(states []State) {
	frame := make([]State, len(states))
	copy(frame, states)
	h.frames = append(h.frames, frame)
}

// Len returns the number of recorded timesteps
func (h *History) Len() int { return len(h.frames) }

// NumNodes returns the number of nodes per frame
func (h *History) NumNodes() int { return h.numNodes }

// Frame returns the state vector at timestep t. The slice must not be modified.
func (h *History) Frame(t int) []State {
	if t < 0 || t >= len(h.frames) {
		return nil
	}
	return h.frames[t]
}

// StateAt returns the state of node at timestep t
func (h *History) StateAt(node, t int) State {
	return h.frames[t][node]
}

// Counts recomputes the aggregate snapshot of timestep t from the frame
func (h *History) Counts(t int) Snapshot {
	var s Snapshot
	for _, state := range h.Frame(t) {
		switch state {
		case Undecided:
			s.Undecided++
		case InfluenceA:
			s.A++
		case InfluenceB:
			s.B++
		}
	}
	return s
}

// Trace returns the states of node over all recorded timesteps
func (h *History) Trace(node int) []State {
	trace := make([]State, len(h.frames))
	for t, frame := range h.frames {
		trace[t] = frame[node]
	}
	return trace
}
