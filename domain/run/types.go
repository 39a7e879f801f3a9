package run

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"gozunis/domain/core"
	"gozunis/domain/integration"
)

// IntegrandSpec names an integrand and its parameters
type IntegrandSpec struct {
	Name   string             `json:"name" yaml:"name"`
	Dims   int                `json:"dims" yaml:"dims"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// RunFingerprint ensures deterministic replay
type RunFingerprint struct {
	Integrand   string              `json:"integrand"`
	ParamsHash  core.Hash           `json:"params_hash"`
	Variant     integration.Variant `json:"variant"`
	ConfigHash  core.Hash           `json:"config_hash"`
	Seed        int64               `json:"seed"`
	CodeVersion string              `json:"code_version"`
	Fingerprint core.Hash           `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(spec IntegrandSpec, variant integration.Variant, cfg integration.Config, seed int64, codeVersion string) RunFingerprint {
	paramsHash := core.ComputeParamsHash(spec.Params)
	configHash := computeConfigHash(cfg)

	return RunFingerprint{
		Integrand:   spec.Name,
		ParamsHash:  paramsHash,
		Variant:     variant,
		ConfigHash:  configHash,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: computeRunFingerprint(spec, paramsHash, variant, configHash, seed, codeVersion),
	}
}

// computeRunFingerprint generates deterministic hash from all determinism parameters
func computeRunFingerprint(spec IntegrandSpec, paramsHash core.Hash, variant integration.Variant,
	configHash core.Hash, seed int64, codeVersion string) core.Hash {

	data := fmt.Sprintf("integrand:%s|dims:%d|params:%s|variant:%s|config:%s|seed:%d|code:%s",
		spec.Name, spec.Dims, paramsHash, variant, configHash, seed, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}

// computeConfigHash hashes the resolved plan; verbosity does not change results
// and is left out.
func computeConfigHash(cfg integration.Config) core.Hash {
	data, _ := json.Marshal(struct {
		Dims int              `json:"dims"`
		Plan integration.Plan `json:"plan"`
	}{cfg.Dims, cfg.Plan()})
	return core.NewHash(data)
}

// Run is a finished integration as stored in the run ledger
type Run struct {
	Manifest    Manifest             `json:"manifest"`
	Value       float64              `json:"value"`
	Error       float64              `json:"error"`
	Interrupted bool                 `json:"interrupted"`
	History     []integration.Record `json:"history"`
}

// NewRun attaches a result to its manifest
func NewRun(m Manifest, res *integration.Result) *Run {
	history := make([]integration.Record, len(res.History))
	copy(history, res.History)
	return &Run{
		Manifest:    m,
		Value:       res.Value,
		Error:       res.Error,
		Interrupted: res.Interrupted,
		History:     history,
	}
}

// Result rebuilds the integration result view of a stored run
func (r *Run) Result() *integration.Result {
	return &integration.Result{
		Value:       r.Value,
		Error:       r.Error,
		UseSurvey:   r.Manifest.Config.UseSurvey,
		Interrupted: r.Interrupted,
		History:     r.History,
	}
}
