package nn

import (
	"math/rand"
	"time"
)

// Rand is the random context used for parameter initialisation.
// It is not safe for concurrent use; give each Network its own.
type Rand struct {
	src  *rand.Rand
	seed int64
}

// NewRand creates a deterministic Rand. A zero seed is replaced by the
// current time.
func NewRand(seed int64) *Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Rand{
		src:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the seed the context was created with.
func (r *Rand) Seed() int64 { return r.seed }

// Uniform draws a value uniformly from [-1, 1].
func (r *Rand) Uniform() float64 {
	return r.src.Float64()*2 - 1
}

// UniformVector returns n independent draws from [-1, 1].
func (r *Rand) UniformVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = r.Uniform()
	}
	return v
}
