package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gozunis/domain/integration"
)

func TestZeroDensityPosterior(t *testing.T) {
	z := &ZeroDensityPosterior{D: 2, Healthy: 1}
	x, p, err := z.Sample(context.Background(), integration.ExecContext{Workers: 1}, 3)
	require.NoError(t, err)

	r, c := x.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []float64{1, 0, 0}, p)
}
