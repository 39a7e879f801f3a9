package run

import (
	"math"

	"gozunis/domain/core"
)

// BenchmarkRow compares one adaptive run with flat Monte Carlo on a known integrand
type BenchmarkRow struct {
	ID                core.ID            `json:"id" db:"id"`
	Suite             string             `json:"suite" db:"suite"`
	RunID             core.RunID         `json:"run_id" db:"run_id"`
	Integrand         string             `json:"integrand" db:"integrand"`
	Dims              int                `json:"dims" db:"dims"`
	Params            map[string]float64 `json:"params" db:"-"`
	Target            float64            `json:"target" db:"target"`
	Value             float64            `json:"value" db:"value"`
	Error             float64            `json:"error" db:"error"`
	FlatValue         float64            `json:"flat_value" db:"flat_value"`
	FlatError         float64            `json:"flat_error" db:"flat_error"`
	Pull              float64            `json:"pull" db:"pull"`
	SigmaCutoff       float64            `json:"sigma_cutoff" db:"sigma_cutoff"`
	Match             bool               `json:"match" db:"match"`
	FlatVarianceRatio float64            `json:"flat_variance_ratio" db:"flat_variance_ratio"`
	CreatedAt         core.Timestamp     `json:"created_at" db:"-"`
}

// Pull is the discrepancy to the true value in units of the reported error.
// A zero error with a non-zero discrepancy gives +Inf.
func Pull(value, stdErr, target float64) float64 {
	diff := math.Abs(value - target)
	if stdErr == 0 {
		if diff == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return diff / stdErr
}

// VarianceRatio is (flatErr/err)^2; values above 1 mean the adaptive run was better
func VarianceRatio(flatErr, stdErr float64) float64 {
	if stdErr == 0 {
		return math.Inf(1)
	}
	r := flatErr / stdErr
	return r * r
}
