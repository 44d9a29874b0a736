package utils

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource wraps a seeded generator. A RandSource is not safe for
// concurrent use; give each worker its own.
type RandSource struct {
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	return r.rng.Float64()
}

// NormFloat64 returns a normally distributed random number with mean and stddev
func (r *RandSource) NormFloat64(mean, stddev float64) float64 {
	return r.rng.NormFloat64()*stddev + mean
}

// DeriveSeed mixes a run seed with a stream index (splitmix64 finalizer) so
// that sample i of a run always draws from the same independent stream.
// The result is never zero.
func DeriveSeed(runSeed int64, index uint64) int64 {
	z := uint64(runSeed) + (index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	s := int64(z &^ (1 << 63))
	if s == 0 {
		s = 1
	}
	return s
}

// Global default random source, guarded by defaultMu
var (
	defaultMu   sync.Mutex
	defaultRand = NewRandSource(0)
)

// Float64 returns a random float64 from the default source
func Float64() float64 {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRand.Float64()
}

// Int63 returns a non-negative random int64 from the default source
func Int63() int64 {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRand.rng.Int63()
}
