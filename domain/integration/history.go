package integration

import (
	"fmt"
	"math"

	"gozunis/domain/core"
)

// Record is one iteration's entry in the integration history
type Record struct {
	Step     int             `json:"step" db:"step"`
	Phase    Phase           `json:"phase" db:"phase"`
	Integral float64         `json:"integral" db:"integral"`
	Error    float64         `json:"error" db:"error"`
	NPoints  int             `json:"n_points" db:"n_points"`
	Training *TrainingRecord `json:"training_record,omitempty" db:"-"`
}

// History is the append-only ledger of a single run.
// It is owned by one integrator and must not be shared between concurrent runs.
type History struct {
	records []Record
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{}
}

// Append adds a record, assigning its step from the current length
func (h *History) Append(r Record) error {
	if !r.Phase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", core.ErrInvalidConfig, r.Phase)
	}
	if r.NPoints <= 0 {
		return core.NewShapeMismatchError("record n_points", r.NPoints, 1)
	}
	if !(r.Error >= 0) || math.IsInf(r.Error, 0) {
		return fmt.Errorf("%w: record error %g is not a finite non-negative value", core.ErrNonFiniteEstimate, r.Error)
	}
	r.Step = len(h.records)
	h.records = append(h.records, r)
	return nil
}

// Clear drops every record
func (h *History) Clear() {
	h.records = nil
}

// Len returns the number of records
func (h *History) Len() int {
	return len(h.records)
}

// Records returns a copy of the records in iteration order
func (h *History) Records() []Record {
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// Select returns all records, or refine records only when useSurvey is false
func (h *History) Select(useSurvey bool) []Record {
	return SelectRecords(h.records, useSurvey)
}

// SelectRecords filters records the same way History.Select does
func SelectRecords(records []Record, useSurvey bool) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if useSurvey || r.Phase == PhaseRefine {
			out = append(out, r)
		}
	}
	return out
}

// Pool combines independent per-iteration estimates weighted by sample count:
//
//	value = Σ I_i n_i / Σ n_i
//	error = sqrt(Σ (e_i n_i)^2) / Σ n_i
//
// Iterations are treated as independent even though later posteriors were
// trained on earlier batches.
func Pool(records []Record) (value, stdErr float64, err error) {
	if len(records) == 0 {
		return 0, 0, core.ErrEmptyHistory
	}

	var weighted, totalPoints, sq float64
	for _, r := range records {
		n := float64(r.NPoints)
		weighted += r.Integral * n
		totalPoints += n
		sq += (r.Error * n) * (r.Error * n)
	}

	return weighted / totalPoints, math.Sqrt(sq) / totalPoints, nil
}

// Result is what a completed (or interrupted) run returns to callers
type Result struct {
	Value       float64  `json:"value"`
	Error       float64  `json:"error"`
	UseSurvey   bool     `json:"use_survey"`
	Interrupted bool     `json:"interrupted"`
	History     []Record `json:"history"`
}

// PooledRecords returns the records that contributed to Value and Error
func (r *Result) PooledRecords() []Record {
	return SelectRecords(r.History, r.UseSurvey)
}

// PhaseCount counts records of one phase
func (r *Result) PhaseCount(p Phase) int {
	n := 0
	for _, rec := range r.History {
		if rec.Phase == p {
			n++
		}
	}
	return n
}
