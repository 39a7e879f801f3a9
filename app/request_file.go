package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gozunis/internal/errors"
)

// RequestFile is a batch of runs and camel benchmarks read from disk
type RequestFile struct {
	Runs       []RunRequest       `json:"runs" yaml:"runs"`
	Benchmarks []BenchmarkRequest `json:"benchmarks" yaml:"benchmarks"`
}

// BatchResult holds what a request file produced, in file order
type BatchResult struct {
	Runs       []*RunResponse     `json:"runs"`
	Benchmarks []*BenchmarkReport `json:"benchmarks"`
}

// LoadRequestFile reads a YAML or JSON request file
func LoadRequestFile(path string) (*RequestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read request file %s", path)
	}
	return ParseRequestFile(data)
}

// ParseRequestFile decodes YAML first and falls back to JSON
func ParseRequestFile(data []byte) (*RequestFile, error) {
	var file RequestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		file = RequestFile{}
		if jsonErr := json.Unmarshal(data, &file); jsonErr != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("parse request file (tried YAML and JSON): YAML error: %v, JSON error: %v", err, jsonErr))
		}
	}
	if len(file.Runs) == 0 && len(file.Benchmarks) == 0 {
		return nil, errors.InvalidInput("request file has no runs or benchmarks")
	}
	return &file, nil
}

// RunBatch executes every request in order and stops at the first failure.
// An interrupted run stops the batch and its partial response is kept.
func RunBatch(ctx context.Context, runs *IntegrationService, benchmarks *BenchmarkService, file *RequestFile) (*BatchResult, error) {
	result := &BatchResult{}
	for i, req := range file.Runs {
		resp, err := runs.Run(ctx, req)
		if resp != nil {
			result.Runs = append(result.Runs, resp)
		}
		if err != nil {
			return result, fmt.Errorf("run %d (%s): %w", i, req.Integrand.Name, err)
		}
	}
	for i, req := range file.Benchmarks {
		report, err := benchmarks.Camel(ctx, req)
		if err != nil {
			return result, fmt.Errorf("benchmark %d: %w", i, err)
		}
		result.Benchmarks = append(result.Benchmarks, report)
	}
	return result, nil
}
