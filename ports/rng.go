package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic runs
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream derives a generator for one component of one run, so that the
	// posterior and the baseline sampler of a run never share a stream.
	Stream(ctx context.Context, runID, component string, baseSeed int64) (*rand.Rand, error)
}
