package analysis

import (
	"math/rand/v2"
	"sync"
)

// RandomSource supplies the randomness used by a Synthesizer.
//
// *rand.Rand from math/rand/v2 satisfies this interface. Implementations need
// not be safe for concurrent use; wrap them with NewLockedSource when a single
// source is shared between goroutines.
type RandomSource interface {
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64

	// IntN returns a value in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// NewSeededSource returns a deterministic PCG-backed source.
func NewSeededSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type lockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

// NewLockedSource wraps src so it can be shared by concurrent invocations.
func NewLockedSource(src RandomSource) RandomSource {
	return &lockedSource{src: src}
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

// intRange returns a value in [lo, hi). Callers guarantee hi > lo.
func intRange(rng RandomSource, lo, hi int) int {
	return lo + rng.IntN(hi-lo)
}
