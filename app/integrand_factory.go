package app

import (
	"fmt"
	"sort"

	"gozunis/adapters/integrands"
	"gozunis/domain/core"
	"gozunis/domain/run"
	"gozunis/ports"
)

// builder constructs an integrand from dims and a parameter reader
type builder func(d int, p params) (ports.KnownIntegrand, error)

// IntegrandFactory builds the known test integrands by name
type IntegrandFactory struct {
	builders map[string]builder
}

// NewIntegrandFactory registers every built-in integrand
func NewIntegrandFactory() *IntegrandFactory {
	return &IntegrandFactory{builders: map[string]builder{
		"gaussian": func(d int, p params) (ports.KnownIntegrand, error) {
			return integrands.NewDiagonalGaussian(d, p.vector("mu", d, 0.5), p.vector("s", d, 0.1), p.get("norm", 1))
		},
		"camel": func(d int, p params) (ports.KnownIntegrand, error) {
			return integrands.NewCamel(d, p.get("s1", 0.1), p.get("norm1", 1), p.get("s2", 0.1), p.get("norm2", 1))
		},
		"symmetric_camel": func(d int, p params) (ports.KnownIntegrand, error) {
			return integrands.NewSymmetricCamel(d, p.get("s", 0.1), p.get("norm", 1))
		},
		"hypersphere": func(d int, p params) (ports.KnownIntegrand, error) {
			return integrands.NewHypersphereVolume(d, p.get("r", 0.3), p.vector("c", d, 0.5))
		},
		"hyperrectangle": func(d int, p params) (ports.KnownIntegrand, error) {
			return integrands.NewHyperrectangleVolume(d, int(p.get("split_dim", 0)), p.get("frac", 0.5))
		},
		"constant": func(d int, p params) (ports.KnownIntegrand, error) {
			return integrands.NewConstant(d, p.get("c", 1))
		},
	}}
}

// Names lists the registered integrands
func (f *IntegrandFactory) Names() []string {
	names := make([]string, 0, len(f.builders))
	for name := range f.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the integrand described by spec. A positive "reg" parameter
// wraps the result in a Regulated integrand.
func (f *IntegrandFactory) Build(spec run.IntegrandSpec) (ports.KnownIntegrand, error) {
	build, ok := f.builders[spec.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", core.ErrUnknownIntegrand, spec.Name, f.Names())
	}
	if spec.Dims < 1 {
		return nil, core.NewInvalidConfigError("dims", "must be at least 1")
	}

	p := params(spec.Params)
	integrand, err := build(spec.Dims, p)
	if err != nil {
		return nil, err
	}
	if reg, ok := spec.Params["reg"]; ok && reg != 0 {
		return integrands.NewRegulated(integrand, reg)
	}
	return integrand, nil
}

// params reads scalar parameters, with per-axis overrides named "<key>_<axis>"
type params map[string]float64

func (p params) get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func (p params) vector(key string, d int, def float64) []float64 {
	base := p.get(key, def)
	out := make([]float64, d)
	for i := range out {
		out[i] = p.get(fmt.Sprintf("%s_%d", key, i), base)
	}
	return out
}
