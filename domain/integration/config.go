package integration

import (
	"fmt"
	"strings"
	"time"

	"gozunis/domain/core"
)

// Defaults shared by every integrator
const (
	DefaultNIter     = 10
	DefaultNPoints   = 100000
	DefaultVerbosity = "info"

	// MinPoints is the smallest batch with a defined sample variance
	MinPoints = 2
)

var verbosityLevels = map[string]bool{
	"error": true, "warn": true, "info": true, "debug": true, "trace": true,
}

// Config holds the immutable per-run parameters of an integrator.
//
// NIter and NPoints are shared defaults. The phase-specific fields override them
// when non-nil, so an explicit zero (for example NIterSurvey = Int(0)) is kept.
type Config struct {
	Dims          int           `json:"dims" yaml:"dims"`
	NIter         int           `json:"n_iter,omitempty" yaml:"n_iter,omitempty"`                   // default 10
	NIterSurvey   *int          `json:"n_iter_survey,omitempty" yaml:"n_iter_survey,omitempty"`     // default NIter
	NIterRefine   *int          `json:"n_iter_refine,omitempty" yaml:"n_iter_refine,omitempty"`     // default NIter
	NPoints       int           `json:"n_points,omitempty" yaml:"n_points,omitempty"`               // default 100000
	NPointsSurvey *int          `json:"n_points_survey,omitempty" yaml:"n_points_survey,omitempty"` // default NPoints
	NPointsRefine *int          `json:"n_points_refine,omitempty" yaml:"n_points_refine,omitempty"` // default NPoints
	UseSurvey     bool          `json:"use_survey" yaml:"use_survey"`                               // pool survey iterations too
	Verbosity     string        `json:"verbosity,omitempty" yaml:"verbosity,omitempty"`             // error|warn|info|debug|trace, default info
	Timeout       time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`                 // 0 disables the budget
}

// Int returns a pointer to v, for the optional phase-specific fields
func Int(v int) *int { return &v }

// Resolve applies defaults and validates the configuration
func (c Config) Resolve() (Config, error) {
	if c.Dims < 1 {
		return c, core.NewInvalidConfigError("dims", "must be at least 1")
	}
	if c.NIter == 0 {
		c.NIter = DefaultNIter
	}
	if c.NPoints == 0 {
		c.NPoints = DefaultNPoints
	}
	if c.NIter < 0 {
		return c, core.NewInvalidConfigError("n_iter", "must not be negative")
	}
	if c.NPoints < MinPoints {
		return c, core.NewInvalidConfigError("n_points", fmt.Sprintf("must be at least %d", MinPoints))
	}

	c.NIterSurvey = inherit(c.NIterSurvey, c.NIter)
	c.NIterRefine = inherit(c.NIterRefine, c.NIter)
	c.NPointsSurvey = inherit(c.NPointsSurvey, c.NPoints)
	c.NPointsRefine = inherit(c.NPointsRefine, c.NPoints)

	c.Verbosity = strings.ToLower(strings.TrimSpace(c.Verbosity))
	if c.Verbosity == "" {
		c.Verbosity = DefaultVerbosity
	}
	if !verbosityLevels[c.Verbosity] {
		return c, core.NewInvalidConfigError("verbosity", fmt.Sprintf("unknown level %q", c.Verbosity))
	}
	if c.Timeout < 0 {
		return c, core.NewInvalidConfigError("timeout", "must not be negative")
	}

	if err := c.Plan().Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Plan returns the iteration plan of a resolved configuration
func (c Config) Plan() Plan {
	return Plan{
		NIterSurvey:   deref(c.NIterSurvey, c.NIter),
		NIterRefine:   deref(c.NIterRefine, c.NIter),
		NPointsSurvey: deref(c.NPointsSurvey, c.NPoints),
		NPointsRefine: deref(c.NPointsRefine, c.NPoints),
		UseSurvey:     c.UseSurvey,
		Timeout:       c.Timeout,
	}
}

// Plan is the fully resolved iteration schedule handed to the driver
type Plan struct {
	NIterSurvey   int           `json:"n_iter_survey"`
	NIterRefine   int           `json:"n_iter_refine"`
	NPointsSurvey int           `json:"n_points_survey"`
	NPointsRefine int           `json:"n_points_refine"`
	UseSurvey     bool          `json:"use_survey"`
	Timeout       time.Duration `json:"timeout"`
}

// Validate checks iteration counts and batch sizes
func (p Plan) Validate() error {
	if p.NIterSurvey < 0 {
		return core.NewInvalidConfigError("n_iter_survey", "must not be negative")
	}
	if p.NIterRefine < 0 {
		return core.NewInvalidConfigError("n_iter_refine", "must not be negative")
	}
	if p.NIterSurvey > 0 && p.NPointsSurvey < MinPoints {
		return core.NewInvalidConfigError("n_points_survey", fmt.Sprintf("must be at least %d", MinPoints))
	}
	if p.NIterRefine > 0 && p.NPointsRefine < MinPoints {
		return core.NewInvalidConfigError("n_points_refine", fmt.Sprintf("must be at least %d", MinPoints))
	}
	return nil
}

// Iterations returns the number of iterations planned for a phase
func (p Plan) Iterations(phase Phase) int {
	if phase == PhaseSurvey {
		return p.NIterSurvey
	}
	return p.NIterRefine
}

// Points returns the batch size planned for a phase
func (p Plan) Points(phase Phase) int {
	if phase == PhaseSurvey {
		return p.NPointsSurvey
	}
	return p.NPointsRefine
}

func inherit(v *int, shared int) *int {
	if v != nil {
		return Int(*v)
	}
	return Int(shared)
}

func deref(v *int, shared int) int {
	if v != nil {
		return *v
	}
	return shared
}
