package api

import (
	"gozunis/app"
	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/domain/run"
	"gozunis/internal/profiling"
)

type runSummary struct {
	RunID       core.RunID          `json:"run_id"`
	Integrand   string              `json:"integrand"`
	Dims        int                 `json:"dims"`
	Variant     integration.Variant `json:"variant"`
	Value       *float64            `json:"value"`
	Error       *float64            `json:"error"`
	Interrupted bool                `json:"interrupted"`
	Iterations  int                 `json:"iterations"`
	Fingerprint core.Hash           `json:"fingerprint"`
	CreatedAt   core.Timestamp      `json:"created_at"`
}

func newRunSummary(r *run.Run) runSummary {
	return runSummary{
		RunID:       r.Manifest.RunID,
		Integrand:   r.Manifest.Integrand.Name,
		Dims:        r.Manifest.Integrand.Dims,
		Variant:     r.Manifest.Variant,
		Value:       finite(r.Value),
		Error:       finite(r.Error),
		Interrupted: r.Interrupted,
		Iterations:  len(r.History),
		Fingerprint: r.Manifest.Fingerprint.Fingerprint,
		CreatedAt:   r.Manifest.CreatedAt,
	}
}

type runView struct {
	Manifest    run.Manifest              `json:"manifest"`
	Value       *float64                  `json:"value"`
	Error       *float64                  `json:"error"`
	Interrupted bool                      `json:"interrupted"`
	History     []integration.Record      `json:"history"`
	Target      *float64                  `json:"target,omitempty"`
	Pull        *float64                  `json:"pull,omitempty"`
	Match       *bool                     `json:"match,omitempty"`
	Profile     *profiling.HistoryProfile `json:"profile,omitempty"`
}

// newRunView renders a stored run; resp adds the diagnostics of a fresh run
func newRunView(r *run.Run, resp *app.RunResponse) runView {
	view := runView{
		Manifest:    r.Manifest,
		Value:       finite(r.Value),
		Error:       finite(r.Error),
		Interrupted: r.Interrupted,
		History:     r.History,
	}
	if resp != nil {
		view.Target = finite(resp.Target)
		view.Pull = resp.Pull
		match := resp.Match
		view.Match = &match
		view.Profile = resp.Profile
	}
	return view
}

type benchmarkView struct {
	ID                core.ID            `json:"id"`
	Suite             string             `json:"suite"`
	RunID             core.RunID         `json:"run_id"`
	Integrand         string             `json:"integrand"`
	Dims              int                `json:"dims"`
	Params            map[string]float64 `json:"params"`
	Target            float64            `json:"target"`
	Value             float64            `json:"value"`
	Error             float64            `json:"error"`
	FlatValue         float64            `json:"flat_value"`
	FlatError         float64            `json:"flat_error"`
	Pull              *float64           `json:"pull"`
	SigmaCutoff       float64            `json:"sigma_cutoff"`
	Match             bool               `json:"match"`
	FlatVarianceRatio *float64           `json:"flat_variance_ratio"`
	CreatedAt         core.Timestamp     `json:"created_at"`
}

func newBenchmarkViews(rows []run.BenchmarkRow) []benchmarkView {
	out := make([]benchmarkView, 0, len(rows))
	for _, r := range rows {
		out = append(out, benchmarkView{
			ID:                r.ID,
			Suite:             r.Suite,
			RunID:             r.RunID,
			Integrand:         r.Integrand,
			Dims:              r.Dims,
			Params:            r.Params,
			Target:            r.Target,
			Value:             r.Value,
			Error:             r.Error,
			FlatValue:         r.FlatValue,
			FlatError:         r.FlatError,
			Pull:              finite(r.Pull),
			SigmaCutoff:       r.SigmaCutoff,
			Match:             r.Match,
			FlatVarianceRatio: finite(r.FlatVarianceRatio),
			CreatedAt:         r.CreatedAt,
		})
	}
	return out
}
