package profiling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/domain/run"
)

func history() []integration.Record {
	return []integration.Record{
		{Step: 0, Phase: integration.PhaseSurvey, Integral: 1.2, Error: 0.4, NPoints: 100, Training: &integration.TrainingRecord{Loss: 2}},
		{Step: 1, Phase: integration.PhaseSurvey, Integral: 0.9, Error: 0.2, NPoints: 100, Training: &integration.TrainingRecord{Loss: 1}},
		{Step: 2, Phase: integration.PhaseRefine, Integral: 1.0, Error: 0.1, NPoints: 100},
		{Step: 3, Phase: integration.PhaseRefine, Integral: 1.1, Error: 0.1, NPoints: 100},
	}
}

func TestHistoryProfiler_Phases(t *testing.T) {
	p, err := NewHistoryProfiler().Profile(history(), false)
	require.NoError(t, err)
	require.Len(t, p.Phases, 2)

	survey := p.Phases[0]
	assert.Equal(t, integration.PhaseSurvey, survey.Phase)
	assert.Equal(t, 200, survey.Points)
	assert.InDelta(t, 1.05, survey.MeanIntegral, 1e-12)
	assert.InDelta(t, 2.0, survey.Improvement(), 1e-12)
	require.NotNil(t, survey.MeanLoss)
	assert.InDelta(t, 1.5, *survey.MeanLoss, 1e-12)

	refine := p.Phases[1]
	assert.Nil(t, refine.MeanLoss)
	assert.InDelta(t, 1.05, p.Value, 1e-12)

	// pooled refine records: z = ±0.5 each
	require.NotNil(t, p.Consistency)
	assert.Equal(t, 1, p.Consistency.DOF)
	assert.InDelta(t, 0.5, p.Consistency.ChiSquare, 1e-12)
	assert.Greater(t, p.Consistency.PValue, 0.4)
}

func TestHistoryProfiler_Empty(t *testing.T) {
	_, err := NewHistoryProfiler().Profile(history()[:2], false)
	assert.ErrorIs(t, err, core.ErrEmptyHistory)
}

func TestSummarizeBenchmarks(t *testing.T) {
	rows := []run.BenchmarkRow{
		{Pull: 1, Match: true, FlatVarianceRatio: 10},
		{Pull: 2, Match: true, FlatVarianceRatio: 30},
		{Pull: math.Inf(1), Match: false, FlatVarianceRatio: math.Inf(1)},
	}
	s, err := SummarizeBenchmarks(rows)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 2, s.Matches)
	assert.InDelta(t, 2.0/3.0, s.MatchFraction, 1e-12)
	assert.Equal(t, 1.5, s.MeanPull)
	assert.Equal(t, 2.0, s.MaxPull)
	assert.Equal(t, 20.0, s.MedianVarianceRatio)

	empty, err := SummarizeBenchmarks(nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Rows)
}
