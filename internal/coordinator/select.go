package coordinator

import (
	"fmt"
	"strings"

	"codenerd/internal/model"
)

// taskCounts is the classification step 2 produces.
type taskCounts struct {
	needsFixes int
	qaPending  int
	pending    int // NEW or IN_PROGRESS
	completed  int
	total      int
}

// classifyTasks buckets every task in snap by the categories the
// ordered rule table in selectPhase inspects (spec.md §4.1 step 2).
func classifyTasks(snap model.PipelineState) taskCounts {
	var c taskCounts
	for _, t := range snap.Tasks {
		c.total++
		switch t.Status {
		case model.TaskNeedsFixes, model.TaskQAFailed:
			c.needsFixes++
		case model.TaskQAPending:
			c.qaPending++
		case model.TaskNew, model.TaskInProgress:
			c.pending++
		case model.TaskCompleted:
			c.completed++
		}
	}
	return c
}

// objectivesExhausted reports whether every declared objective across
// all three levels has reached a terminal "satisfied" status. Zero
// objectives is treated as not-exhausted: with nothing declared yet,
// project_planning is the phase responsible for declaring them.
func objectivesExhausted(snap model.PipelineState) bool {
	all := snap.Objectives.AllObjectives()
	if len(all) == 0 {
		return false
	}
	for _, o := range all {
		if !strings.EqualFold(strings.TrimSpace(o.Status), "satisfied") {
			return false
		}
	}
	return true
}

// documentationAlreadyRan reports whether the documentation phase has
// completed at least one successful invocation, used to implement
// rule f's "once, then terminate" (spec.md §4.1 step 4f).
func documentationAlreadyRan(snap model.PipelineState) bool {
	ps, ok := snap.Phases["documentation"]
	return ok && ps.Iterations > 0 && ps.LastResult == model.PhaseSuccess
}

// selectPhase applies the ordered rule table (first match wins). It
// returns the chosen phase name and whether the pipeline should
// terminate instead of running anything (rule f, once documentation
// has already run).
func selectPhase(snap model.PipelineState) (phaseName string, terminate bool) {
	counts := classifyTasks(snap)

	switch {
	case counts.needsFixes > 0:
		return "debugging", false
	case counts.qaPending > 0:
		return "qa", false
	case counts.pending > 0:
		return "coding", false
	case counts.total == 0:
		return "planning", false
	case !objectivesExhausted(snap):
		// all tasks COMPLETED (none needs_fixes/qa_pending/pending) and
		// objectives remain open.
		return "project_planning", false
	default:
		// all objectives satisfied.
		if documentationAlreadyRan(snap) {
			return "", true
		}
		return "documentation", false
	}
}

// Explain reproduces the rule-table decision selectPhase would make
// against the store's current snapshot, without running anything, for
// the `nerd why` command (spec.md §6's "Glass Box" requirement that the
// pipeline's next move be inspectable).
func (c *Coordinator) Explain() string {
	snap := c.store.Snapshot()
	counts := classifyTasks(snap)
	selected, terminate := selectPhase(snap)

	var b strings.Builder
	fmt.Fprintf(&b, "tasks: %d needs_fixes, %d qa_pending, %d pending, %d completed, %d total\n",
		counts.needsFixes, counts.qaPending, counts.pending, counts.completed, counts.total)

	if terminate {
		fmt.Fprintln(&b, "decision: terminate (all objectives satisfied and documentation already ran)")
		return b.String()
	}

	switch {
	case counts.needsFixes > 0:
		fmt.Fprintln(&b, "rule: needs_fixes > 0 -> debugging")
	case counts.qaPending > 0:
		fmt.Fprintln(&b, "rule: qa_pending > 0 -> qa")
	case counts.pending > 0:
		fmt.Fprintln(&b, "rule: pending (NEW/IN_PROGRESS) > 0 -> coding")
	case counts.total == 0:
		fmt.Fprintln(&b, "rule: no tasks yet -> planning")
	case !objectivesExhausted(snap):
		fmt.Fprintln(&b, "rule: all tasks resolved but objectives remain open -> project_planning")
	default:
		fmt.Fprintln(&b, "rule: all objectives satisfied, documentation has not yet run -> documentation")
	}
	fmt.Fprintf(&b, "selected phase: %s\n", selected)

	if c.stagnant(snap, selected) {
		next := forcedTransition(selected)
		fmt.Fprintf(&b, "stagnation: %s has no_update_count >= %d; would force a transition to %s instead\n",
			selected, c.cfg.StagnationThreshold, next)
	}
	return b.String()
}

// stagnant reports whether phaseName's recorded no_update_count has
// reached the stagnation threshold (spec.md §4.1 step 5).
func (c *Coordinator) stagnant(snap model.PipelineState, phaseName string) bool {
	return snap.Phases[phaseName].NoUpdateCount >= c.cfg.StagnationThreshold
}

// forcedTransition rotates to the next phase in the fixed fallback
// order that differs from selected (spec.md §4.1 step 5).
func forcedTransition(selected string) string {
	idx := -1
	for i, p := range fallbackOrder {
		if p == selected {
			idx = i
			break
		}
	}
	for i := 1; i <= len(fallbackOrder); i++ {
		candidate := fallbackOrder[(idx+i)%len(fallbackOrder)]
		if candidate != selected {
			return candidate
		}
	}
	return selected // unreachable: fallbackOrder has more than one entry
}

// hasNoPendingWork reports whether there is no task actively awaiting
// a phase (spec.md §4.1 step 8's "no pending work exists"): none are
// NEEDS_FIXES, QA_FAILED, QA_PENDING, NEW or IN_PROGRESS. This is
// independent of rule f's objectives-satisfied terminate path: it is
// the safety net for a coordinator that keeps selecting a phase (e.g.
// planning with nothing to seed, or project_planning stuck unable to
// make progress) that keeps returning NO_OP.
func hasNoPendingWork(snap model.PipelineState) bool {
	counts := classifyTasks(snap)
	return counts.needsFixes == 0 && counts.qaPending == 0 && counts.pending == 0
}
