package integration

import (
	"runtime"
)

// Phase identifies which half of a run produced a record
type Phase string

const (
	PhaseSurvey Phase = "survey" // posterior is being fit
	PhaseRefine Phase = "refine" // posterior is used as a fixed proposal
)

func (p Phase) String() string { return string(p) }

// Valid reports whether p is one of the known phases
func (p Phase) Valid() bool {
	return p == PhaseSurvey || p == PhaseRefine
}

// State is the position of a run in the INIT → SURVEYING → REFINING → DONE machine.
type State string

const (
	StateInit      State = "init"
	StateSurveying State = "surveying"
	StateRefining  State = "refining"
	StateDone      State = "done"
)

// Variant tags the survey strategy of an integrator
type Variant string

const (
	VariantPosterior Variant = "posterior" // survey samples the trainable posterior
	VariantFlat      Variant = "flat"      // survey samples the uniform distribution
)

// ParseVariant maps a user supplied name onto a variant; empty means posterior
func ParseVariant(s string) (Variant, bool) {
	switch Variant(s) {
	case "", VariantPosterior:
		return VariantPosterior, true
	case VariantFlat:
		return VariantFlat, true
	}
	return "", false
}

// TrainingRecord is the diagnostic payload a trainer attaches to survey records.
type TrainingRecord struct {
	Loss         float64   `json:"loss"`
	Losses       []float64 `json:"losses,omitempty"` // one per epoch
	Epochs       int       `json:"epochs"`
	LearningRate float64   `json:"learning_rate"`
	NSamples     int       `json:"n_samples"`
}

// ExecContext carries execution settings into every integrand and posterior call.
// It replaces any notion of a device stored on the integrand itself.
type ExecContext struct {
	Workers   int `json:"workers" yaml:"workers"`       // goroutines used to evaluate one batch
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"` // rows handed to a worker at a time
}

// DefaultExecContext uses every CPU with moderately sized chunks
func DefaultExecContext() ExecContext {
	return ExecContext{Workers: runtime.GOMAXPROCS(0), ChunkSize: 1024}
}

// Normalized fills in zero fields with usable values
func (e ExecContext) Normalized() ExecContext {
	if e.Workers < 1 {
		e.Workers = 1
	}
	if e.ChunkSize < 1 {
		e.ChunkSize = 1024
	}
	return e
}
