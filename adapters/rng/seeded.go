package rng

import (
	"context"
	"math/rand"

	"gozunis/ports"
)

// SeededAdapter derives independent deterministic streams from a base seed.
// The same (key, component, seed) triple always yields the same sequence.
type SeededAdapter struct{}

// NewSeededAdapter creates an RNG port backed by math/rand sources
func NewSeededAdapter() *SeededAdapter { return &SeededAdapter{} }

var _ ports.RNGPort = (*SeededAdapter)(nil)

// SeededStream creates a deterministic random number generator for a named operation
func (r *SeededAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(seed)), nil
}

// Stream creates a deterministic RNG stream for one component of a run
func (r *SeededAdapter) Stream(ctx context.Context, runKey, component string, baseSeed int64) (*rand.Rand, error) {
	seed := baseSeed
	if runKey != "" {
		seed = int64(hashString(runKey)) + seed
	}
	if component != "" {
		seed = int64(hashString(component)) + seed
	}
	return rand.New(rand.NewSource(seed)), nil
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
