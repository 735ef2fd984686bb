package coordinator

import (
	"context"
	"errors"
	"fmt"

	"codenerd/internal/logging"
	"codenerd/internal/model"
	"codenerd/internal/phase"
	"codenerd/internal/pipelineerr"
)

// Run drives Step to quiescence, cancellation, or completion,
// returning the terminal status (spec.md §4.1 "run(project_dir,
// config)"). A FatalStateError from any Step aborts the loop and is
// returned to the caller; every other phase error is already absorbed
// by Step and reflected only in the StepResult.
func (c *Coordinator) Run(ctx context.Context) (Status, error) {
	for {
		select {
		case <-ctx.Done():
			return StatusCancelled, nil
		default:
		}

		res, err := c.Step(ctx)
		if err != nil {
			return "", err
		}
		if res.Terminated {
			return res.Status, nil
		}
	}
}

// Step executes exactly one coordinator iteration (spec.md §4.1,
// steps 1-8), exposed standalone for testing. It returns a non-nil
// error only for a FatalStateError; ordinary phase failures are
// reflected in the returned StepResult and the loop is expected to
// continue.
func (c *Coordinator) Step(ctx context.Context) (StepResult, error) {
	c.mu.Lock()
	cancelled := c.cancelled
	c.mu.Unlock()
	if cancelled {
		return StepResult{Status: StatusCancelled, Terminated: true}, nil
	}

	// Steps 1-2: load state, classify tasks.
	snap := c.store.Snapshot()

	// Step 4: decide next phase by the ordered rule table.
	selected, terminate := selectPhase(snap)
	if terminate {
		logging.Coordinator("all objectives satisfied and documentation already ran; pipeline done")
		return StepResult{Status: StatusDone, Terminated: true}, nil
	}

	// Step 5: stagnation check and forced transition.
	forced := false
	if c.stagnant(snap, selected) {
		next := forcedTransition(selected)
		logging.Coordinator("phase %s stagnant (no_update_count >= %d); forcing %s", selected, c.cfg.StagnationThreshold, next)
		selected = next
		forced = true
		if err := c.store.ResetNoUpdateCount(selected); err != nil {
			return StepResult{}, err
		}
	}

	// Step 3: advisory recommendations, logged only, never gating.
	if c.advisor != nil {
		if recs, err := c.advisor.RecommendationsFor(ctx, selected); err != nil {
			logging.CoordinatorDebug("phase %s: recommendations_for failed (non-fatal): %v", selected, err)
		} else if len(recs) > 0 {
			logging.CoordinatorDebug("phase %s: %d advisory pattern recommendation(s) available", selected, len(recs))
		}
	}

	spec, ok := c.registry.Get(selected)
	if !ok {
		return StepResult{}, fmt.Errorf("coordinator: phase %q is not registered", selected)
	}

	if c.loops != nil {
		c.loops.ResetInvocation(selected)
	}

	thread, err := c.threadFor(ctx, spec)
	if err != nil {
		return StepResult{}, err
	}

	// Step 6: execute the chosen phase.
	inv, runErr := c.runner.Run(ctx, spec, thread)
	if perr := c.persistThread(selected, thread); perr != nil {
		logging.Get(logging.CategoryCoordinator).Error("phase %s: persist conversation: %v", selected, perr)
	}

	if runErr != nil {
		if errors.Is(runErr, pipelineerr.ErrFatalState) {
			return StepResult{}, runErr
		}
		logging.Get(logging.CategoryCoordinator).Error("phase %s failed: %v", selected, runErr)
		return c.finishIteration(selected, forced, model.PhaseFailure)
	}

	result := model.PhaseNoOp
	switch {
	case inv.LoopBroken:
		result = model.PhaseFailure
	case phaseChanged(inv):
		result = model.PhaseSuccess
	}

	if c.advisor != nil {
		c.advisor.NoteExecution(ctx)
	}

	return c.finishIteration(selected, forced, result)
}

// finishIteration records the phase's outcome, updates the stagnation
// counter, bumps the pipeline-wide iteration count, persists state
// (steps 6-7), and evaluates quiescence (step 8).
func (c *Coordinator) finishIteration(phaseName string, forced bool, result model.PhaseResult) (StepResult, error) {
	if err := c.store.RecordPhaseRun(phaseName, result); err != nil {
		return StepResult{}, err
	}

	if result == model.PhaseSuccess {
		if err := c.store.ResetNoUpdateCount(phaseName); err != nil {
			return StepResult{}, err
		}
	} else if err := c.store.IncrementNoUpdateCount(phaseName); err != nil {
		return StepResult{}, err
	}

	if err := c.store.IncrementIteration(); err != nil {
		return StepResult{}, err
	}

	c.mu.Lock()
	if result == model.PhaseNoOp {
		c.noOpStreak++
	} else {
		c.noOpStreak = 0
	}
	streak := c.noOpStreak
	c.mu.Unlock()

	res := StepResult{Phase: phaseName, Result: toOutcome(result), Forced: forced, Status: StatusRunning}

	if streak >= c.cfg.QuiescenceWindow && hasNoPendingWork(c.store.Snapshot()) {
		logging.Coordinator("quiescent: %d consecutive NO_OP iterations with no pending work", streak)
		res.Status = StatusQuiescent
		res.Terminated = true
	}
	return res, nil
}

// phaseChanged reports whether an invocation produced observable state
// change: a successful tool call (file write, task creation, QA
// verdict, ...), or a non-empty final summary that an ipc_sender
// result handler will have written to a WRITE document section
// (spec.md §4.1 step 6: "tasks added/changed, files touched, IPC
// sections updated").
func phaseChanged(inv *phase.Invocation) bool {
	for _, ec := range inv.ToolResults {
		if ec.Result.Success {
			return true
		}
	}
	if inv.FinalText == "" {
		return false
	}
	for _, h := range inv.Spec.ResultHandlers {
		if h == "ipc_sender" {
			return true
		}
	}
	return false
}

func toOutcome(r model.PhaseResult) PhaseOutcome {
	switch r {
	case model.PhaseSuccess:
		return OutcomeSuccess
	case model.PhaseFailure:
		return OutcomeFailure
	default:
		return OutcomeNoOp
	}
}
