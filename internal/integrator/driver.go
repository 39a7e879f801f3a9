package integrator

import (
	"context"
	"fmt"

	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/internal"
)

// Sample is what a strategy hands back for one iteration
type Sample struct {
	Batch    integration.Batch
	Training *integration.TrainingRecord // set by survey iterations that trained
}

// Strategy supplies the variant-specific steps of a survey/refine run.
// The driver owns the loop; a strategy never calls itself back.
type Strategy interface {
	// Begin resets accumulated state before the first iteration
	Begin(ctx context.Context) error
	Sample(ctx context.Context, phase integration.Phase, n int) (Sample, error)
	Process(phase integration.Phase, sample Sample, estimate integration.Estimate) error
	Finalize(useSurvey bool) (*integration.Result, error)
}

// PhaseHooks is implemented by strategies that need to act at phase boundaries
type PhaseHooks interface {
	BeginPhase(ctx context.Context, phase integration.Phase) error
	EndPhase(ctx context.Context, phase integration.Phase) error
}

var phaseStates = map[integration.Phase]integration.State{
	integration.PhaseSurvey: integration.StateSurveying,
	integration.PhaseRefine: integration.StateRefining,
}

// Integrate runs plan.NIterSurvey survey iterations followed by plan.NIterRefine
// refine iterations, then pools the history.
//
// Cancellation of ctx, or plan.Timeout elapsing, is only observed between
// iterations. When that happens the run stops, the records gathered so far are
// still pooled, and the partial result is returned together with an error
// wrapping core.ErrInterrupted.
func Integrate(ctx context.Context, s Strategy, plan integration.Plan, logger *internal.Logger) (*integration.Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if plan.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, plan.Timeout)
		defer cancel()
	}
	// iteration work is never aborted halfway
	work := context.WithoutCancel(ctx)

	hooks, hasHooks := s.(PhaseHooks)
	state := integration.StateInit
	logger.Debug("state %s", state)

	if err := s.Begin(work); err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}

	var stopped error
	for _, phase := range []integration.Phase{integration.PhaseSurvey, integration.PhaseRefine} {
		state = phaseStates[phase]
		logger.Debug("state %s: %d iterations of %d points", state, plan.Iterations(phase), plan.Points(phase))

		if hasHooks {
			if err := hooks.BeginPhase(work, phase); err != nil {
				return nil, fmt.Errorf("begin %s phase: %w", phase, err)
			}
		}

		for step := 0; step < plan.Iterations(phase); step++ {
			if err := ctx.Err(); err != nil {
				stopped = err
				break
			}
			if err := iterate(work, s, phase, step, plan.Points(phase)); err != nil {
				return nil, err
			}
		}

		if hasHooks {
			if err := hooks.EndPhase(work, phase); err != nil {
				return nil, fmt.Errorf("end %s phase: %w", phase, err)
			}
		}
		if stopped != nil {
			logger.Warn("run interrupted during %s phase: %v", phase, stopped)
			break
		}
	}

	state = integration.StateDone
	logger.Debug("state %s", state)

	result, err := s.Finalize(plan.UseSurvey)
	if stopped != nil {
		if err != nil {
			return nil, fmt.Errorf("%w: %w: %w", core.ErrInterrupted, stopped, err)
		}
		result.Interrupted = true
		return result, fmt.Errorf("%w: %w", core.ErrInterrupted, stopped)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func iterate(ctx context.Context, s Strategy, phase integration.Phase, step, n int) error {
	sample, err := s.Sample(ctx, phase, n)
	if err != nil {
		return fmt.Errorf("%s iteration %d: %w", phase, step, err)
	}
	estimate, err := sample.Batch.Estimate()
	if err != nil {
		return fmt.Errorf("%s iteration %d: %w", phase, step, err)
	}
	if err := s.Process(phase, sample, estimate); err != nil {
		return fmt.Errorf("%s iteration %d: %w", phase, step, err)
	}
	return nil
}
