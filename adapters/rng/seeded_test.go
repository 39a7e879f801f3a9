package rng

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededAdapter_StreamsAreDeterministicAndDistinct(t *testing.T) {
	r := NewSeededAdapter()
	ctx := context.Background()

	a, err := r.Stream(ctx, "fp-1", "posterior", 42)
	require.NoError(t, err)
	b, err := r.Stream(ctx, "fp-1", "posterior", 42)
	require.NoError(t, err)
	c, err := r.Stream(ctx, "fp-1", "flat-baseline", 42)
	require.NoError(t, err)
	d, err := r.Stream(ctx, "fp-2", "posterior", 42)
	require.NoError(t, err)

	av := a.Float64()
	assert.Equal(t, av, b.Float64())
	assert.NotEqual(t, av, c.Float64())
	assert.NotEqual(t, av, d.Float64())
}

func TestHashString_DJB2(t *testing.T) {
	assert.Equal(t, uint32(5381), hashString(""))
	assert.Equal(t, uint32(5381*33+'a'), hashString("a"))
}
