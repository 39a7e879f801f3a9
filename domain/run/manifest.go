package run

import (
	"gozunis/domain/core"
	"gozunis/domain/integration"
)

// Manifest records everything needed to replay a run.
// It is the "truth source" for replay and is written before the iterations.
type Manifest struct {
	RunID       core.RunID          `json:"run_id"`
	Integrand   IntegrandSpec       `json:"integrand"`
	Variant     integration.Variant `json:"variant"`
	Config      integration.Config  `json:"config"`
	Seed        int64               `json:"seed"`
	CodeVersion string              `json:"code_version"`
	Fingerprint RunFingerprint      `json:"fingerprint"`
	CreatedAt   core.Timestamp      `json:"created_at"`
}

// NewManifest creates a run manifest; cfg must already be resolved
func NewManifest(spec IntegrandSpec, variant integration.Variant, cfg integration.Config, seed int64, codeVersion string) *Manifest {
	return &Manifest{
		RunID:       core.NewRunID(),
		Integrand:   spec,
		Variant:     variant,
		Config:      cfg,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: NewRunFingerprint(spec, variant, cfg, seed, codeVersion),
		CreatedAt:   core.Now(),
	}
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewInvalidConfigError("run_id", "cannot be empty")
	}
	if m.Integrand.Name == "" {
		return core.NewInvalidConfigError("integrand", "name cannot be empty")
	}
	if m.Integrand.Dims != m.Config.Dims {
		return core.NewShapeMismatchError("integrand dims", m.Integrand.Dims, m.Config.Dims)
	}
	if _, ok := integration.ParseVariant(string(m.Variant)); !ok {
		return core.ErrUnknownVariant
	}
	if m.CodeVersion == "" {
		return core.NewInvalidConfigError("code_version", "cannot be empty")
	}
	return nil
}
