package gameconfig

import "math/rand/v2"

// pcgStream is the fixed second PCG word; the seed alone selects the stream.
const pcgStream = 0x9e3779b97f4a7c15

// RNG is a deterministic random stream. It is not safe for concurrent use.
type RNG struct {
	r    *rand.Rand
	seed uint64
}

// NewRNG returns a stream seeded with *seed, or with process entropy when seed is nil.
func NewRNG(seed *int64) *RNG {
	var s uint64
	if seed != nil {
		s = uint64(*seed)
	} else {
		s = rand.Uint64()
	}
	return &RNG{r: rand.New(rand.NewPCG(s, pcgStream)), seed: s}
}

// Seed returns the seed the stream started from, so an unseeded run can be replayed.
func (g *RNG) Seed() uint64 { return g.seed }

func (g *RNG) Float64() float64 { return g.r.Float64() }

func (g *RNG) IntN(n int) int { return g.r.IntN(n) }
