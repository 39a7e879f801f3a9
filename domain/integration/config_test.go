package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gozunis/domain/core"
)

func TestConfig_ResolveDefaults(t *testing.T) {
	cfg, err := Config{Dims: 3}.Resolve()
	require.NoError(t, err)

	plan := cfg.Plan()
	assert.Equal(t, DefaultNIter, plan.NIterSurvey)
	assert.Equal(t, DefaultNIter, plan.NIterRefine)
	assert.Equal(t, DefaultNPoints, plan.NPointsSurvey)
	assert.Equal(t, DefaultNPoints, plan.NPointsRefine)
	assert.False(t, plan.UseSurvey)
	assert.Equal(t, "info", cfg.Verbosity)
}

func TestConfig_PhaseOverrides(t *testing.T) {
	cfg, err := Config{
		Dims:          2,
		NIter:         4,
		NIterRefine:   Int(0),
		NPoints:       500,
		NPointsSurvey: Int(2000),
		UseSurvey:     true,
		Verbosity:     " DEBUG ",
		Timeout:       time.Second,
	}.Resolve()
	require.NoError(t, err)

	plan := cfg.Plan()
	assert.Equal(t, 4, plan.NIterSurvey)
	assert.Equal(t, 0, plan.NIterRefine, "explicit zero must not be replaced by the shared count")
	assert.Equal(t, 2000, plan.NPointsSurvey)
	assert.Equal(t, 500, plan.NPointsRefine)
	assert.True(t, plan.UseSurvey)
	assert.Equal(t, time.Second, plan.Timeout)
	assert.Equal(t, "debug", cfg.Verbosity)
	assert.Equal(t, 2000, plan.Points(PhaseSurvey))
	assert.Equal(t, 0, plan.Iterations(PhaseRefine))
}

func TestConfig_ResolveRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dims", Config{}},
		{"negative iterations", Config{Dims: 1, NIter: -1}},
		{"single point", Config{Dims: 1, NPoints: 1}},
		{"negative survey iterations", Config{Dims: 1, NIterSurvey: Int(-2)}},
		{"single refine point", Config{Dims: 1, NPointsRefine: Int(1)}},
		{"unknown verbosity", Config{Dims: 1, Verbosity: "loud"}},
		{"negative timeout", Config{Dims: 1, Timeout: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Resolve()
			assert.ErrorIs(t, err, core.ErrInvalidConfig)
		})
	}
}

func TestConfig_ResolveDoesNotAliasCaller(t *testing.T) {
	survey := 3
	in := Config{Dims: 1, NIterSurvey: &survey}
	out, err := in.Resolve()
	require.NoError(t, err)

	survey = 9
	assert.Equal(t, 3, out.Plan().NIterSurvey)
}
