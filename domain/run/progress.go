package run

import (
	"gozunis/domain/core"
	"gozunis/domain/integration"
)

// ProgressKind tags a progress event
type ProgressKind string

const (
	ProgressStarted   ProgressKind = "started"
	ProgressIteration ProgressKind = "iteration"
	ProgressFinished  ProgressKind = "finished"
)

// ProgressEvent reports the advance of a run while it is integrating
type ProgressEvent struct {
	RunID     core.RunID          `json:"run_id"`
	Kind      ProgressKind        `json:"kind"`
	Integrand string              `json:"integrand"`
	Planned   int                 `json:"planned"` // survey + refine iterations
	Record    *integration.Record `json:"record,omitempty"`
	Value     float64             `json:"value,omitempty"`
	Error     float64             `json:"error,omitempty"`
	Timestamp core.Timestamp      `json:"timestamp"`
}
