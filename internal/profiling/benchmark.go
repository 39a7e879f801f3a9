package profiling

import (
	"math"

	"github.com/montanaflynn/stats"

	"gozunis/domain/run"
)

// BenchmarkSummary aggregates a benchmark suite
type BenchmarkSummary struct {
	Rows                int     `json:"rows"`
	Matches             int     `json:"matches"`
	MatchFraction       float64 `json:"match_fraction"`
	MeanPull            float64 `json:"mean_pull"`
	MaxPull             float64 `json:"max_pull"`
	MedianVarianceRatio float64 `json:"median_variance_ratio"`
	MinVarianceRatio    float64 `json:"min_variance_ratio"`
}

// SummarizeBenchmarks ignores non-finite pulls and ratios in the averages
// but still counts their rows.
func SummarizeBenchmarks(rows []run.BenchmarkRow) (BenchmarkSummary, error) {
	summary := BenchmarkSummary{Rows: len(rows)}
	if len(rows) == 0 {
		return summary, nil
	}

	var pulls, ratios []float64
	for _, r := range rows {
		if r.Match {
			summary.Matches++
		}
		if !math.IsInf(r.Pull, 0) && !math.IsNaN(r.Pull) {
			pulls = append(pulls, r.Pull)
		}
		if !math.IsInf(r.FlatVarianceRatio, 0) && !math.IsNaN(r.FlatVarianceRatio) {
			ratios = append(ratios, r.FlatVarianceRatio)
		}
	}
	summary.MatchFraction = float64(summary.Matches) / float64(len(rows))

	var err error
	if len(pulls) > 0 {
		if summary.MeanPull, err = stats.Mean(pulls); err != nil {
			return summary, err
		}
		if summary.MaxPull, err = stats.Max(pulls); err != nil {
			return summary, err
		}
	}
	if len(ratios) > 0 {
		if summary.MedianVarianceRatio, err = stats.Median(ratios); err != nil {
			return summary, err
		}
		if summary.MinVarianceRatio, err = stats.Min(ratios); err != nil {
			return summary, err
		}
	}
	return summary, nil
}
