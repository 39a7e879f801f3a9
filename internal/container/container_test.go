package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gozunis/adapters/memory"
	"gozunis/app"
	"gozunis/domain/run"
	"gozunis/internal/config"
)

func TestContainer_InMemory(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ZUNIS_N_ITER", "2")
	t.Setenv("ZUNIS_N_POINTS", "500")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := config.Load()
	require.NoError(t, err)

	c, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	defer c.Shutdown(context.Background())

	assert.IsType(t, &memory.RunRepository{}, c.RunRepo)
	assert.Nil(t, c.DB)

	resp, err := c.Integrations.Run(context.Background(), app.RunRequest{
		Integrand: run.IntegrandSpec{Name: "constant", Dims: 2, Params: map[string]float64{"c": 3}},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Run.History, 4)
	assert.Equal(t, cfg.Integrator.Seed, resp.Run.Manifest.Seed)
	assert.InDelta(t, 3.0, resp.Run.Value, 0.3)

	hub := c.EnableProgress()
	assert.Same(t, hub, c.EnableProgress())
}

func TestContainer_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
