package run

import (
	"testing"

	"gozunis/domain/core"
	"gozunis/domain/integration"
)

func resolved(t *testing.T, cfg integration.Config) integration.Config {
	t.Helper()
	out, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return out
}

func TestRunFingerprint_Deterministic(t *testing.T) {
	spec := IntegrandSpec{Name: "camel", Dims: 2, Params: map[string]float64{"s1": 0.1, "s2": 0.1}}
	cfg := resolved(t, integration.Config{Dims: 2, NIter: 5, NPoints: 1000})

	fp1 := NewRunFingerprint(spec, integration.VariantPosterior, cfg, 42, "1.0.0")
	fp2 := NewRunFingerprint(spec, integration.VariantPosterior, cfg, 42, "1.0.0")

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if fp1.Seed != 42 {
		t.Errorf("Seed mismatch: %d", fp1.Seed)
	}
	if fp1.Integrand != "camel" {
		t.Errorf("Integrand mismatch: %s", fp1.Integrand)
	}
}

func TestRunFingerprint_Unique(t *testing.T) {
	spec := IntegrandSpec{Name: "camel", Dims: 2, Params: map[string]float64{"s1": 0.1}}
	cfg := resolved(t, integration.Config{Dims: 2, NIter: 5, NPoints: 1000})
	base := NewRunFingerprint(spec, integration.VariantPosterior, cfg, 42, "1.0.0")

	otherParams := IntegrandSpec{Name: "camel", Dims: 2, Params: map[string]float64{"s1": 0.2}}
	otherCfg := resolved(t, integration.Config{Dims: 2, NIter: 5, NPoints: 1000, UseSurvey: true})
	verbose := resolved(t, integration.Config{Dims: 2, NIter: 5, NPoints: 1000, Verbosity: "trace"})

	testCases := []struct {
		name string
		fp   RunFingerprint
	}{
		{"different params", NewRunFingerprint(otherParams, integration.VariantPosterior, cfg, 42, "1.0.0")},
		{"different variant", NewRunFingerprint(spec, integration.VariantFlat, cfg, 42, "1.0.0")},
		{"different config", NewRunFingerprint(spec, integration.VariantPosterior, otherCfg, 42, "1.0.0")},
		{"different seed", NewRunFingerprint(spec, integration.VariantPosterior, cfg, 43, "1.0.0")},
		{"different code", NewRunFingerprint(spec, integration.VariantPosterior, cfg, 42, "1.0.1")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.fp.Fingerprint == base.Fingerprint {
				t.Errorf("Fingerprint should differ for %s", tc.name)
			}
		})
	}

	if fp := NewRunFingerprint(spec, integration.VariantPosterior, verbose, 42, "1.0.0"); fp.Fingerprint != base.Fingerprint {
		t.Error("verbosity must not change the fingerprint")
	}
}

func TestManifest_Validate(t *testing.T) {
	spec := IntegrandSpec{Name: "hypersphere", Dims: 3}
	cfg := resolved(t, integration.Config{Dims: 3})

	m := NewManifest(spec, integration.VariantFlat, cfg, 1, "dev")
	if err := m.Validate(); err != nil {
		t.Fatalf("valid manifest rejected: %v", err)
	}

	bad := *m
	bad.Integrand.Dims = 2
	if err := bad.Validate(); err == nil {
		t.Error("dimension mismatch should be rejected")
	}

	bad = *m
	bad.Variant = "vegas"
	if err := bad.Validate(); err != core.ErrUnknownVariant {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestNewRun_CopiesHistory(t *testing.T) {
	cfg := resolved(t, integration.Config{Dims: 1, UseSurvey: true})
	m := NewManifest(IntegrandSpec{Name: "gaussian", Dims: 1}, integration.VariantPosterior, cfg, 1, "dev")
	res := &integration.Result{
		Value: 1, Error: 0.1, UseSurvey: true,
		History: []integration.Record{{Phase: integration.PhaseRefine, Integral: 1, Error: 0.1, NPoints: 10}},
	}

	r := NewRun(*m, res)
	res.History[0].Integral = 5
	if r.History[0].Integral != 1 {
		t.Error("stored run must not alias the result history")
	}
	if !r.Result().UseSurvey {
		t.Error("UseSurvey should come from the manifest config")
	}
}
