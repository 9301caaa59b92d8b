package universe

import (
	"math/rand"
	"sort"
)

// Partition splits total into 1..maxParts chunks, each at least minUnit.
// Returns nil when total cannot fund a single minimum-unit chunk.
//
// The chunk count is uniform in [1, min(floor(total/minUnit), maxParts)].
// Every chunk gets a minUnit base; the remainder is spread across chunks
// with weights taken from the gaps between n-1 sorted uniform draws (a
// random simplex split), then the chunk order is shuffled since order
// carries no meaning.
func Partition(rng *rand.Rand, total, minUnit float64, maxParts int) []float64 {
	if minUnit <= 0 || total < minUnit {
		return nil
	}
	byEnergy := int(total / minUnit)
	if byEnergy <= 0 {
		return nil
	}
	maxN := byEnergy
	if maxParts > 0 && maxParts < maxN {
		maxN = maxParts
	}
	n := 1 + rng.Intn(maxN)

	chunks := make([]float64, n)
	for i := range chunks {
		chunks[i] = minUnit
	}
	rem := total - float64(n)*minUnit
	if rem <= 1e-12 {
		shuffle(rng, chunks)
		return chunks
	}

	cuts := make([]float64, n-1)
	for i := range cuts {
		cuts[i] = rng.Float64()
	}
	sort.Float64s(cuts)
	last := 0.0
	for i, c := range cuts {
		chunks[i] += rem * (c - last)
		last = c
	}
	chunks[n-1] += rem * (1.0 - last)

	shuffle(rng, chunks)
	return chunks
}

func shuffle(rng *rand.Rand, xs []float64) {
	rng.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
}
