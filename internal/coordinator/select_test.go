package coordinator

import (
	"testing"

	"codenerd/internal/model"
)

func taskState(status model.TaskStatus) model.TaskState {
	return model.TaskState{ID: string(status) + "-id", Status: status}
}

func snapWithTasks(statuses ...model.TaskStatus) model.PipelineState {
	snap := model.PipelineState{Tasks: make(map[string]model.TaskState)}
	for i, s := range statuses {
		t := taskState(s)
		t.ID = t.ID + string(rune('a'+i))
		snap.Tasks[t.ID] = t
	}
	return snap
}

func TestSelectPhaseNeedsFixesTakesPriority(t *testing.T) {
	snap := snapWithTasks(model.TaskNeedsFixes, model.TaskQAPending, model.TaskNew)
	phase, terminate := selectPhase(snap)
	if terminate || phase != "debugging" {
		t.Errorf("got phase=%q terminate=%v, want debugging", phase, terminate)
	}
}

func TestSelectPhaseQAFailedAlsoRoutesToDebugging(t *testing.T) {
	snap := snapWithTasks(model.TaskQAFailed)
	phase, _ := selectPhase(snap)
	if phase != "debugging" {
		t.Errorf("got phase=%q, want debugging", phase)
	}
}

func TestSelectPhaseQAPendingSecond(t *testing.T) {
	snap := snapWithTasks(model.TaskQAPending, model.TaskNew)
	phase, _ := selectPhase(snap)
	if phase != "qa" {
		t.Errorf("got phase=%q, want qa", phase)
	}
}

func TestSelectPhaseNewOrInProgressThird(t *testing.T) {
	snap := snapWithTasks(model.TaskNew, model.TaskCompleted)
	phase, _ := selectPhase(snap)
	if phase != "coding" {
		t.Errorf("got phase=%q, want coding", phase)
	}
}

func TestSelectPhaseNoTasksAtAllIsPlanning(t *testing.T) {
	snap := model.PipelineState{Tasks: map[string]model.TaskState{}}
	phase, terminate := selectPhase(snap)
	if terminate || phase != "planning" {
		t.Errorf("got phase=%q terminate=%v, want planning", phase, terminate)
	}
}

func TestSelectPhaseAllCompletedWithOpenObjectiveGoesToProjectPlanning(t *testing.T) {
	snap := snapWithTasks(model.TaskCompleted)
	snap.Objectives.Primary = []model.ObjectiveRecord{{ID: "primary_001", Status: "in_progress"}}
	phase, terminate := selectPhase(snap)
	if terminate || phase != "project_planning" {
		t.Errorf("got phase=%q terminate=%v, want project_planning", phase, terminate)
	}
}

func TestSelectPhaseAllCompletedNoObjectivesGoesToProjectPlanning(t *testing.T) {
	snap := snapWithTasks(model.TaskCompleted)
	phase, terminate := selectPhase(snap)
	if terminate || phase != "project_planning" {
		t.Errorf("zero declared objectives should not count as exhausted, got phase=%q terminate=%v", phase, terminate)
	}
}

func TestSelectPhaseAllObjectivesSatisfiedRunsDocumentationOnce(t *testing.T) {
	snap := snapWithTasks(model.TaskCompleted)
	snap.Objectives.Primary = []model.ObjectiveRecord{{ID: "primary_001", Status: "satisfied"}}
	phase, terminate := selectPhase(snap)
	if terminate || phase != "documentation" {
		t.Errorf("got phase=%q terminate=%v, want documentation", phase, terminate)
	}
}

func TestSelectPhaseTerminatesAfterDocumentationAlreadyRan(t *testing.T) {
	snap := snapWithTasks(model.TaskCompleted)
	snap.Objectives.Primary = []model.ObjectiveRecord{{ID: "primary_001", Status: "SATISFIED"}}
	snap.Phases = map[string]model.PhaseState{
		"documentation": {Name: "documentation", Iterations: 1, LastResult: model.PhaseSuccess},
	}
	_, terminate := selectPhase(snap)
	if !terminate {
		t.Error("expected terminate=true once documentation already succeeded and objectives are satisfied")
	}
}

func TestForcedTransitionSkipsTheSelectedPhase(t *testing.T) {
	next := forcedTransition("planning")
	if next == "planning" || next != "coding" {
		t.Errorf("forcedTransition(planning) = %q, want coding", next)
	}
}

func TestForcedTransitionWrapsAroundTheFallbackOrder(t *testing.T) {
	next := forcedTransition("project_planning")
	if next != "planning" {
		t.Errorf("forcedTransition(project_planning) = %q, want planning (wraps to start)", next)
	}
}

func TestForcedTransitionOnUnlistedPhaseStartsFromFront(t *testing.T) {
	next := forcedTransition("documentation")
	if next != "planning" {
		t.Errorf("forcedTransition(documentation) = %q, want planning", next)
	}
}

func TestHasNoPendingWorkFalseWithActiveTask(t *testing.T) {
	snap := snapWithTasks(model.TaskNew)
	if hasNoPendingWork(snap) {
		t.Error("expected pending work with a NEW task present")
	}
}

func TestHasNoPendingWorkTrueWithOnlyCompletedTasks(t *testing.T) {
	snap := snapWithTasks(model.TaskCompleted, model.TaskSkipped)
	if !hasNoPendingWork(snap) {
		t.Error("expected no pending work when no task is in an active status")
	}
}

func TestHasNoPendingWorkTrueWithNoTasksAtAll(t *testing.T) {
	snap := model.PipelineState{Tasks: map[string]model.TaskState{}}
	if !hasNoPendingWork(snap) {
		t.Error("expected no pending work with zero tasks")
	}
}

func TestObjectivesExhaustedFalseWithMixedStatuses(t *testing.T) {
	snap := model.PipelineState{Objectives: model.Objectives{
		Primary: []model.ObjectiveRecord{{ID: "p1", Status: "satisfied"}, {ID: "p2", Status: "in_progress"}},
	}}
	if objectivesExhausted(snap) {
		t.Error("expected not exhausted while one objective remains open")
	}
}

func TestObjectivesExhaustedTrueCaseInsensitive(t *testing.T) {
	snap := model.PipelineState{Objectives: model.Objectives{
		Primary:   []model.ObjectiveRecord{{ID: "p1", Status: "Satisfied"}},
		Secondary: []model.ObjectiveRecord{{ID: "s1", Status: "SATISFIED"}},
	}}
	if !objectivesExhausted(snap) {
		t.Error("expected exhausted when every objective across levels is satisfied, case-insensitively")
	}
}
