package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gozunis/internal/errors"
	"gozunis/internal/testkit"
)

const yamlRequests = `
runs:
  - integrand:
      name: gaussian
      dims: 2
      params:
        s: 0.2
    variant: flat
    config:
      n_iter: 2
      n_points: 1500
      verbosity: error
      timeout: 30s
    seed: 11
  - integrand:
      name: constant
      dims: 1
benchmarks:
  - suite: batch
    dims: [2]
    widths: [0.3]
    config:
      n_iter: 2
      n_points: 1500
      verbosity: error
`

func TestParseRequestFile_YAML(t *testing.T) {
	file, err := ParseRequestFile([]byte(yamlRequests))
	require.NoError(t, err)
	require.Len(t, file.Runs, 2)
	require.Len(t, file.Benchmarks, 1)

	first := file.Runs[0]
	assert.Equal(t, "gaussian", first.Integrand.Name)
	assert.Equal(t, 0.2, first.Integrand.Params["s"])
	assert.Equal(t, "flat", first.Variant)
	require.NotNil(t, first.Config)
	assert.Equal(t, 30*time.Second, first.Config.Timeout)
	require.NotNil(t, first.Seed)
	assert.Equal(t, int64(11), *first.Seed)
	assert.Nil(t, file.Runs[1].Config)

	assert.Equal(t, []int{2}, file.Benchmarks[0].Dims)
	assert.Equal(t, []float64{0.3}, file.Benchmarks[0].Widths)
}

func TestParseRequestFile_JSON(t *testing.T) {
	file, err := ParseRequestFile([]byte(`{"runs":[{"integrand":{"name":"camel","dims":3},"variant":"posterior"}]}`))
	require.NoError(t, err)
	require.Len(t, file.Runs, 1)
	assert.Equal(t, 3, file.Runs[0].Integrand.Dims)
}

func TestParseRequestFile_Errors(t *testing.T) {
	_, err := ParseRequestFile([]byte("runs: [unterminated"))
	require.Error(t, err)
	assert.Equal(t, "INVALID_INPUT", errors.GetCode(err))

	_, err = ParseRequestFile([]byte("runs: []\n"))
	require.Error(t, err)

	_, err = LoadRequestFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlRequests), 0o644))
	file, err := LoadRequestFile(path)
	require.NoError(t, err)

	kit := testkit.NewTestKit()
	svc := newTestService(kit)
	bench := NewBenchmarkService(svc, kit.Repository(), kit.RNGAdapter(), kit.Logger())

	result, err := RunBatch(context.Background(), svc, bench, file)
	require.NoError(t, err)
	require.Len(t, result.Runs, 2)
	require.Len(t, result.Benchmarks, 1)
	assert.Len(t, result.Runs[0].Run.History, 4)
	assert.Equal(t, int64(11), result.Runs[0].Run.Manifest.Seed)
	assert.Len(t, result.Benchmarks[0].Rows, 1)
}

func TestRunBatch_StopsAtFirstFailure(t *testing.T) {
	file, err := ParseRequestFile([]byte(`
runs:
  - integrand: {name: nope, dims: 2}
  - integrand: {name: constant, dims: 1}
`))
	require.NoError(t, err)

	kit := testkit.NewTestKit()
	svc := newTestService(kit)
	bench := NewBenchmarkService(svc, kit.Repository(), kit.RNGAdapter(), kit.Logger())

	result, err := RunBatch(context.Background(), svc, bench, file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 0 (nope)")
	assert.Empty(t, result.Runs)
}
