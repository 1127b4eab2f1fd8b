package experiment

import (
	"fmt"
	"math/rand/v2"

	"github.com/gilchrisn/influence-diffusion/pkg/diffusion"
)

// Sample draws size distinct nodes uniformly from the network, skipping the
// nodes in exclude. Draws are made with rejection of repeats, so the
// expected cost grows as size approaches the pool size. When fewer than size
// candidates remain it returns ErrInsufficientPopulation and no nodes.
func Sample(network diffusion.Network, size int, exclude []int, rng *rand.Rand) ([]int, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative sample size %d", diffusion.ErrInvalidArgument, size)
	}

	excluded := make(map[int]bool, len(exclude))
	for _, node := range exclude {
		excluded[node] = true
	}

	pool := make([]int, 0, network.NumNodes())
	for node := 0; node < network.NumNodes(); node++ {
		if !excluded[node] {
			pool = append(pool, node)
		}
	}
	if len(pool) < size {
		return nil, fmt.Errorf("%w: requested %d nodes from a pool of %d",
			diffusion.ErrInsufficientPopulation, size, len(pool))
	}

	sample := make([]int, 0, size)
	chosen := make(map[int]bool, size)
	for len(sample) < size {
		candidate := pool[rng.IntN(len(pool))]
		if chosen[candidate] {
			continue
		}
		chosen[candidate] = true
		sample = append(sample, candidate)
	}
	return sample, nil
}
