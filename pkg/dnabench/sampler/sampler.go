// Package sampler picks clip start times inside a padded window of a
// recording. Each Sampler owns its random source, so independently seeded
// samplers never interfere with each other.
package sampler

import (
	"math/rand/v2"
)

type Sampler struct {
	rng    *rand.Rand
	seed   int64
	seeded bool
}

// New returns a Sampler. A non-nil seed makes every draw reproducible; a nil
// seed draws one at random, still available through Seed so a run can be
// replayed later.
func New(seed *int64) *Sampler {
	s := &Sampler{}
	if seed != nil {
		s.seed = *seed
		s.seeded = true
	} else {
		s.seed = rand.Int64()
	}
	s.rng = rand.New(rand.NewPCG(uint64(s.seed), uint64(s.seed)^0x9e3779b97f4a7c15))
	return s
}

// Seed returns the seed the sampler was built from.
func (s *Sampler) Seed() int64 { return s.seed }

// Seeded reports whether the caller supplied the seed.
func (s *Sampler) Seeded() bool { return s.seeded }

// Window returns the inclusive range of valid start times for a clip of
// duration seconds taken from a recording of length seconds with padding
// seconds excluded at both ends. ok is false when the range is empty.
func Window(length, duration, padding int) (lo, hi int, ok bool) {
	hi = length - padding - duration
	if padding > hi {
		return 0, 0, false
	}
	return padding, hi, true
}

// ChooseStartTime draws uniformly from the window described by Window.
// A degenerate window yields 0, which lands inside the padding region;
// callers that care must check Window first.
func (s *Sampler) ChooseStartTime(length, duration, padding int) int {
	lo, hi, ok := Window(length, duration, padding)
	if !ok {
		return 0
	}
	return lo + s.rng.IntN(hi-lo+1)
}
