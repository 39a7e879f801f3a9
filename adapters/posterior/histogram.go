package posterior

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"gozunis/domain/core"
	"gozunis/domain/integration"
)

// HistogramConfig controls the shape and learning behaviour of a Histogram
type HistogramConfig struct {
	Bins         int     `json:"bins" yaml:"bins"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"` // weight of the new batch in (0, 1]
	Epochs       int     `json:"epochs" yaml:"epochs"`
	Floor        float64 `json:"floor" yaml:"floor"` // uniform mass mixed in after every update
}

// DefaultHistogramConfig returns the settings used when none are given
func DefaultHistogramConfig() HistogramConfig {
	return HistogramConfig{
		Bins:         50,
		LearningRate: 0.5,
		Epochs:       1,
		Floor:        0.05,
	}
}

// Validate checks the configuration
func (c HistogramConfig) Validate() error {
	if c.Bins < 1 {
		return core.NewInvalidConfigError("bins", "must be at least 1")
	}
	if !(c.LearningRate > 0 && c.LearningRate <= 1) {
		return core.NewInvalidConfigError("learning_rate", "must be in (0, 1]")
	}
	if c.Epochs < 1 {
		return core.NewInvalidConfigError("epochs", "must be at least 1")
	}
	if !(c.Floor > 0 && c.Floor <= 1) {
		return core.NewInvalidConfigError("floor", "must be in (0, 1]")
	}
	return nil
}

// Histogram is a trainable product of per-axis piecewise constant densities.
// Every bin keeps at least Floor/Bins of the probability mass, so the joint
// density never drops below Floor^d.
type Histogram struct {
	d   int
	cfg HistogramConfig

	mu    sync.RWMutex
	probs [][]float64 // d rows of bin probabilities, each summing to 1
	cdf   [][]float64
	rng   *rand.Rand
}

// NewHistogram starts from the uniform distribution
func NewHistogram(d int, cfg HistogramConfig, rng *rand.Rand) (*Histogram, error) {
	if d < 1 {
		return nil, core.NewInvalidConfigError("dims", "must be at least 1")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("histogram posterior: nil random source")
	}

	h := &Histogram{d: d, cfg: cfg, rng: rng}
	h.probs = make([][]float64, d)
	h.cdf = make([][]float64, d)
	for i := range h.probs {
		h.probs[i] = make([]float64, cfg.Bins)
		for k := range h.probs[i] {
			h.probs[i][k] = 1 / float64(cfg.Bins)
		}
		h.cdf[i] = make([]float64, cfg.Bins)
	}
	h.rebuildCDF()
	return h, nil
}

func (h *Histogram) Dims() int { return h.d }

// Config returns the settings the histogram was built with
func (h *Histogram) Config() HistogramConfig { return h.cfg }

// Marginals returns a copy of the per-axis bin probabilities
func (h *Histogram) Marginals() [][]float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([][]float64, h.d)
	for i, p := range h.probs {
		out[i] = append([]float64(nil), p...)
	}
	return out
}

func (h *Histogram) bin(v float64) int {
	k := int(v * float64(h.cfg.Bins))
	if k < 0 {
		return 0
	}
	if k >= h.cfg.Bins {
		return h.cfg.Bins - 1
	}
	return k
}

// density of one row; caller holds the lock
func (h *Histogram) at(row []float64) float64 {
	bins := float64(h.cfg.Bins)
	p := 1.0
	for i, v := range row {
		p *= h.probs[i][h.bin(v)] * bins
	}
	return p
}

func (h *Histogram) Sample(ctx context.Context, exec integration.ExecContext, n int) (*mat.Dense, []float64, error) {
	if n < 1 {
		return nil, nil, core.NewInvalidConfigError("n_points", "must be positive")
	}
	bins := float64(h.cfg.Bins)
	data := make([]float64, n*h.d)
	density := make([]float64, n)

	h.mu.Lock()
	defer h.mu.Unlock()
	for r := 0; r < n; r++ {
		p := 1.0
		for i := 0; i < h.d; i++ {
			cdf := h.cdf[i]
			u := h.rng.Float64()
			k := sort.Search(len(cdf), func(j int) bool { return cdf[j] > u })
			if k == len(cdf) {
				k--
			}
			data[r*h.d+i] = (float64(k) + h.rng.Float64()) / bins
			p *= h.probs[i][k] * bins
		}
		density[r] = p
	}
	return mat.NewDense(n, h.d, data), density, nil
}

func (h *Histogram) Density(x *mat.Dense) ([]float64, error) {
	if err := checkPoints(x, h.d); err != nil {
		return nil, err
	}
	rows, _ := x.Dims()
	out := make([]float64, rows)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for r := 0; r < rows; r++ {
		out[r] = h.at(x.RawRowView(r))
	}
	return out, nil
}

// Fit moves each marginal toward the weighted marginal histogram of x.
// The reported loss is the weighted cross-entropy -Σ w log q(x) / Σ w,
// measured before each epoch's update.
func (h *Histogram) Fit(ctx context.Context, x *mat.Dense, weights []float64) (*integration.TrainingRecord, error) {
	if err := checkPoints(x, h.d); err != nil {
		return nil, err
	}
	rows, _ := x.Dims()
	if len(weights) != rows {
		return nil, core.NewShapeMismatchError("weight count", len(weights), rows)
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("training weight %d is %g, expected a finite non-negative value", i, w)
		}
	}

	record := &integration.TrainingRecord{
		Epochs:       h.cfg.Epochs,
		LearningRate: h.cfg.LearningRate,
		NSamples:     rows,
	}
	total := floats.Sum(weights)
	if total == 0 {
		// nothing to learn from a batch where f vanished everywhere
		return record, nil
	}

	target := make([][]float64, h.d)
	for i := range target {
		target[i] = make([]float64, h.cfg.Bins)
	}
	for r := 0; r < rows; r++ {
		row := x.RawRowView(r)
		for i, v := range row {
			target[i][h.bin(v)] += weights[r]
		}
	}
	for i := range target {
		floats.Scale(1/total, target[i])
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	lr, floor := h.cfg.LearningRate, h.cfg.Floor
	uniform := floor / float64(h.cfg.Bins)
	for epoch := 0; epoch < h.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record.Losses = append(record.Losses, h.crossEntropy(x, weights, total))
		for i, p := range h.probs {
			for k := range p {
				p[k] = (1-floor)*((1-lr)*p[k]+lr*target[i][k]) + uniform
			}
			floats.Scale(1/floats.Sum(p), p)
		}
	}
	h.rebuildCDF()
	record.Loss = record.Losses[len(record.Losses)-1]
	return record, nil
}

func (h *Histogram) crossEntropy(x *mat.Dense, weights []float64, total float64) float64 {
	var loss float64
	for r, w := range weights {
		if w == 0 {
			continue
		}
		loss -= w * math.Log(h.at(x.RawRowView(r)))
	}
	return loss / total
}

func (h *Histogram) rebuildCDF() {
	for i, p := range h.probs {
		floats.CumSum(h.cdf[i], p)
		h.cdf[i][len(p)-1] = 1
	}
}
