package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/domain/run"
	"gozunis/internal/testkit"
)

func newTestService(kit *testkit.TestKit) *IntegrationService {
	defaults := BuiltinDefaults()
	defaults.Config = integration.Config{NIter: 3, NPoints: 2000, Verbosity: "error"}
	return NewIntegrationService(NewIntegrandFactory(), kit.Repository(), kit.RNGAdapter(), defaults, kit.Logger())
}

func gaussianRequest() RunRequest {
	return RunRequest{Integrand: run.IntegrandSpec{Name: "gaussian", Dims: 2, Params: map[string]float64{"s": 0.2}}}
}

func TestIntegrationService_RunPersists(t *testing.T) {
	kit := testkit.NewTestKit()
	svc := newTestService(kit)

	resp, err := svc.Run(context.Background(), gaussianRequest())
	require.NoError(t, err)

	r := resp.Run
	assert.Len(t, r.History, 6)
	assert.False(t, r.Interrupted)
	assert.Equal(t, CodeVersion, r.Manifest.CodeVersion)
	assert.Equal(t, int64(1), r.Manifest.Seed)
	assert.NotEmpty(t, r.Manifest.Fingerprint.Fingerprint)
	require.NotNil(t, resp.Pull)
	assert.Less(t, *resp.Pull, 5.0)
	require.NotNil(t, resp.Profile)
	assert.Len(t, resp.Profile.Phases, 2)

	stored, err := svc.GetRun(context.Background(), r.Manifest.RunID)
	require.NoError(t, err)
	assert.Equal(t, r.Value, stored.Value)

	runs, err := svc.ListRuns(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestIntegrationService_ReplayIsDeterministic(t *testing.T) {
	kit := testkit.NewTestKit()
	svc := newTestService(kit)
	seed := int64(7)
	req := gaussianRequest()
	req.Seed = &seed

	first, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Run.Manifest.RunID, second.Run.Manifest.RunID)
	assert.Equal(t, first.Run.Manifest.Fingerprint, second.Run.Manifest.Fingerprint)
	assert.Equal(t, first.Run.Value, second.Run.Value)
	assert.Equal(t, first.Run.Error, second.Run.Error)
	for i := range first.Run.History {
		assert.Equal(t, first.Run.History[i].Integral, second.Run.History[i].Integral, "step %d", i)
	}

	other := int64(8)
	req.Seed = &other
	third, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.Run.Value, third.Run.Value)
}

func TestIntegrationService_FlatVariant(t *testing.T) {
	kit := testkit.NewTestKit()
	svc := newTestService(kit)
	req := RunRequest{
		Integrand: run.IntegrandSpec{Name: "hyperrectangle", Dims: 3, Params: map[string]float64{"frac": 0.4}},
		Variant:   "flat",
		Config:    &integration.Config{NIter: 2, NPoints: 4000, UseSurvey: true, Verbosity: "error"},
	}

	resp, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, integration.VariantFlat, resp.Run.Manifest.Variant)
	assert.True(t, resp.Run.Manifest.Config.UseSurvey)
	assert.InDelta(t, 0.4, resp.Run.Value, 5*resp.Run.Error+1e-9)
}

func TestIntegrationService_InterruptedRunIsStored(t *testing.T) {
	kit := testkit.NewTestKit()
	svc := newTestService(kit)
	req := gaussianRequest()
	req.Config = &integration.Config{NIter: 1000, NPoints: 20000, UseSurvey: true, Timeout: 50 * time.Millisecond, Verbosity: "error"}

	resp, err := svc.Run(context.Background(), req)
	require.ErrorIs(t, err, core.ErrInterrupted)
	assert.True(t, IsInterrupted(err))
	require.NotNil(t, resp)
	assert.True(t, resp.Run.Interrupted)

	stored, getErr := svc.GetRun(context.Background(), resp.Run.Manifest.RunID)
	require.NoError(t, getErr)
	assert.True(t, stored.Interrupted)
}

func TestIntegrationService_RejectsBadRequests(t *testing.T) {
	kit := testkit.NewTestKit()
	svc := newTestService(kit)
	ctx := context.Background()

	req := gaussianRequest()
	req.Variant = "vegas"
	_, err := svc.Run(ctx, req)
	assert.ErrorIs(t, err, core.ErrUnknownVariant)

	_, err = svc.Run(ctx, RunRequest{Integrand: run.IntegrandSpec{Name: "nope", Dims: 1}})
	assert.ErrorIs(t, err, core.ErrUnknownIntegrand)

	req = gaussianRequest()
	req.Config = &integration.Config{NPoints: 1}
	_, err = svc.Run(ctx, req)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	runs, err := svc.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "rejected requests must not be stored")
}

type collectingPublisher struct {
	events []run.ProgressEvent
}

func (c *collectingPublisher) Publish(event run.ProgressEvent) {
	c.events = append(c.events, event)
}

func TestIntegrationService_PublishesProgress(t *testing.T) {
	kit := testkit.NewTestKit()
	svc := newTestService(kit)
	pub := &collectingPublisher{}
	svc.SetProgressPublisher(pub)

	resp, err := svc.Run(context.Background(), gaussianRequest())
	require.NoError(t, err)

	require.Len(t, pub.events, 8)
	assert.Equal(t, run.ProgressStarted, pub.events[0].Kind)
	assert.Equal(t, 6, pub.events[0].Planned)
	for i, ev := range pub.events[1:7] {
		assert.Equal(t, run.ProgressIteration, ev.Kind)
		require.NotNil(t, ev.Record)
		assert.Equal(t, i, ev.Record.Step)
		assert.Equal(t, resp.Run.Manifest.RunID, ev.RunID)
	}
	last := pub.events[7]
	assert.Equal(t, run.ProgressFinished, last.Kind)
	assert.Equal(t, resp.Run.Value, last.Value)
}
