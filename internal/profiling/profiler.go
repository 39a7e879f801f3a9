package profiling

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"gozunis/domain/integration"
)

// PhaseProfile summarises the records of one phase
type PhaseProfile struct {
	Phase        integration.Phase `json:"phase"`
	Iterations   int               `json:"iterations"`
	Points       int               `json:"points"`
	MeanIntegral float64           `json:"mean_integral"`
	StdIntegral  float64           `json:"std_integral"`
	MinIntegral  float64           `json:"min_integral"`
	MaxIntegral  float64           `json:"max_integral"`
	MedianError  float64           `json:"median_error"`
	FirstError   float64           `json:"first_error"`
	LastError    float64           `json:"last_error"`
	MeanLoss     *float64          `json:"mean_loss,omitempty"`
}

// Improvement is FirstError/LastError; above 1 means later iterations were more precise
func (p PhaseProfile) Improvement() float64 {
	if p.LastError == 0 {
		return math.Inf(1)
	}
	return p.FirstError / p.LastError
}

// Consistency tests whether the pooled iterations agree with each other
// within their reported errors.
type Consistency struct {
	ChiSquare float64 `json:"chi_square"`
	DOF       int     `json:"dof"`
	PValue    float64 `json:"p_value"`
}

// HistoryProfile is the diagnostic view of one run's history
type HistoryProfile struct {
	Phases      []PhaseProfile `json:"phases"`
	Value       float64        `json:"value"`
	Error       float64        `json:"error"`
	Consistency *Consistency   `json:"consistency,omitempty"`
}

// HistoryProfiler computes history profiles
type HistoryProfiler struct{}

// NewHistoryProfiler creates a new history profiler
func NewHistoryProfiler() *HistoryProfiler {
	return &HistoryProfiler{}
}

// Profile summarises each phase present in the history and checks the
// consistency of the records that contribute to the pooled value.
func (hp *HistoryProfiler) Profile(history []integration.Record, useSurvey bool) (*HistoryProfile, error) {
	profile := &HistoryProfile{}

	for _, phase := range []integration.Phase{integration.PhaseSurvey, integration.PhaseRefine} {
		var records []integration.Record
		for _, r := range history {
			if r.Phase == phase {
				records = append(records, r)
			}
		}
		if len(records) == 0 {
			continue
		}
		pp, err := profilePhase(phase, records)
		if err != nil {
			return nil, err
		}
		profile.Phases = append(profile.Phases, pp)
	}

	pooled := integration.SelectRecords(history, useSurvey)
	value, stdErr, err := integration.Pool(pooled)
	if err != nil {
		return nil, err
	}
	profile.Value, profile.Error = value, stdErr
	profile.Consistency = consistency(pooled, value)
	return profile, nil
}

func profilePhase(phase integration.Phase, records []integration.Record) (PhaseProfile, error) {
	integrals := make([]float64, len(records))
	errs := make([]float64, len(records))
	var losses []float64
	points := 0
	for i, r := range records {
		integrals[i] = r.Integral
		errs[i] = r.Error
		points += r.NPoints
		if r.Training != nil {
			losses = append(losses, r.Training.Loss)
		}
	}

	pp := PhaseProfile{
		Phase:      phase,
		Iterations: len(records),
		Points:     points,
		FirstError: errs[0],
		LastError:  errs[len(errs)-1],
	}

	var err error
	if pp.MeanIntegral, err = stats.Mean(integrals); err != nil {
		return pp, err
	}
	if len(integrals) > 1 {
		if pp.StdIntegral, err = stats.StandardDeviationSample(integrals); err != nil {
			return pp, err
		}
	}
	if pp.MinIntegral, err = stats.Min(integrals); err != nil {
		return pp, err
	}
	if pp.MaxIntegral, err = stats.Max(integrals); err != nil {
		return pp, err
	}
	if pp.MedianError, err = stats.Median(errs); err != nil {
		return pp, err
	}
	if len(losses) > 0 {
		meanLoss, err := stats.Mean(losses)
		if err != nil {
			return pp, err
		}
		pp.MeanLoss = &meanLoss
	}
	return pp, nil
}

// consistency is nil when fewer than two records have a positive error
func consistency(records []integration.Record, value float64) *Consistency {
	var chi2 float64
	n := 0
	for _, r := range records {
		if r.Error <= 0 {
			continue
		}
		z := (r.Integral - value) / r.Error
		chi2 += z * z
		n++
	}
	if n < 2 {
		return nil
	}
	dof := n - 1
	dist := distuv.ChiSquared{K: float64(dof)}
	return &Consistency{ChiSquare: chi2, DOF: dof, PValue: dist.Survival(chi2)}
}
