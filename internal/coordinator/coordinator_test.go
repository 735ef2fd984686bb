package coordinator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"codenerd/internal/ipc"
	"codenerd/internal/loopdetect"
	"codenerd/internal/model"
	"codenerd/internal/pattern"
	"codenerd/internal/phase"
	"codenerd/internal/statestore"
	"codenerd/internal/tools"
)

// TestMain verifies every statestore writer goroutine this package's
// tests start is gone by the time the package exits, the way the
// teacher guards its own single-writer/queue goroutines.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubLLM implements phase.LLMCaller. Every call returns the next
// queued ChatResult (or an empty one once the queue is drained), and
// records how many times it was invoked so tests can assert the
// terminate-before-running-anything path never reaches the LLM.
type stubLLM struct {
	responses []phase.ChatResult
	calls     int
}

func (s *stubLLM) ModelFor(ctx context.Context, role string) (string, string, error) {
	return "local", "test-model", nil
}

func (s *stubLLM) Chat(ctx context.Context, server, model string, messages []phase.ChatMessage, toolDescs []phase.ToolDescriptor) (phase.ChatResult, error) {
	s.calls++
	if s.calls-1 < len(s.responses) {
		return s.responses[s.calls-1], nil
	}
	return phase.ChatResult{}, nil
}

func newTestCoordinator(t *testing.T, llm phase.LLMCaller, cfg Config) (*Coordinator, *statestore.Store) {
	t.Helper()
	dir := t.TempDir()

	store, err := statestore.Open(dir)
	if err != nil {
		t.Fatalf("statestore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ipcStore, err := ipc.NewStore(dir)
	if err != nil {
		t.Fatalf("ipc.NewStore: %v", err)
	}

	toolReg := tools.NewRegistry()
	dispatcher := tools.NewDispatcher(toolReg, dir, nil)
	gatherer := phase.NewGatherer(store, ipcStore)
	registry := phase.NewRegistry()
	loops := loopdetect.NewDetector()

	handlers := []phase.ResultHandler{
		phase.NewTaskCreatorHandler(store),
		phase.NewFileWriterHandler(store),
		phase.NewIPCSenderHandler(ipcStore),
	}
	runner := phase.NewRunner(store, gatherer, toolReg, dispatcher, llm, phase.LoopDetectorAdapter{Detector: loops}, handlers, cfg.ContextWindowTokens)

	advisor := pattern.NewAdvisor(store)

	c := New(store, registry, runner, loops, advisor, ipcStore, toolReg, nil, cfg)
	return c, store
}

func TestStepSelectsPlanningOnEmptyStateAndRecordsNoOp(t *testing.T) {
	llm := &stubLLM{}
	c, store := newTestCoordinator(t, llm, Config{})

	res, err := c.Step(context.Background())
	if err != nil {
		t.Fatalf("Step returned error: %v", err)
	}
	if res.Phase != "planning" {
		t.Errorf("got phase=%q, want planning", res.Phase)
	}
	if res.Result != OutcomeNoOp {
		t.Errorf("got result=%q, want NO_OP (stub LLM produced no tool calls/text)", res.Result)
	}
	if res.Forced {
		t.Error("first iteration should not be a forced transition")
	}

	ps := store.PhaseState("planning")
	if ps.NoUpdateCount != 1 {
		t.Errorf("planning no_update_count = %d, want 1", ps.NoUpdateCount)
	}
}

func TestStepForcesTransitionAfterStagnationThreshold(t *testing.T) {
	llm := &stubLLM{}
	c, _ := newTestCoordinator(t, llm, Config{StagnationThreshold: 2, QuiescenceWindow: 100})

	var last StepResult
	for i := 0; i < 3; i++ {
		res, err := c.Step(context.Background())
		if err != nil {
			t.Fatalf("Step %d returned error: %v", i, err)
		}
		last = res
	}

	if !last.Forced {
		t.Error("expected the 3rd iteration to be a forced transition out of planning's stagnation")
	}
	if last.Phase != "coding" {
		t.Errorf("forced phase = %q, want coding", last.Phase)
	}
}

func TestStepTerminatesImmediatelyWhenObjectivesSatisfiedAndDocumentationRan(t *testing.T) {
	dir := t.TempDir()
	stateDir := filepath.Join(dir, "state")
	if err := os.MkdirAll(filepath.Join(stateDir, "logs"), 0o755); err != nil {
		t.Fatalf("mkdir state dir: %v", err)
	}

	snap := model.PipelineState{
		Tasks: map[string]model.TaskState{
			"T1": {ID: "T1", Status: model.TaskCompleted, Priority: model.PriorityNormal},
		},
		Files: map[string]model.FileState{},
		Phases: map[string]model.PhaseState{
			"documentation": {Name: "documentation", Iterations: 1, LastResult: model.PhaseSuccess},
		},
		Objectives: model.Objectives{
			Primary: []model.ObjectiveRecord{{ID: "primary_001", Status: "satisfied"}},
		},
		StartedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal seed state: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, "state.json"), raw, 0o644); err != nil {
		t.Fatalf("write seed state: %v", err)
	}

	store, err := statestore.Open(dir)
	if err != nil {
		t.Fatalf("statestore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ipcStore, err := ipc.NewStore(dir)
	if err != nil {
		t.Fatalf("ipc.NewStore: %v", err)
	}

	toolReg := tools.NewRegistry()
	dispatcher := tools.NewDispatcher(toolReg, dir, nil)
	gatherer := phase.NewGatherer(store, ipcStore)
	registry := phase.NewRegistry()
	loops := loopdetect.NewDetector()
	llm := &stubLLM{}
	runner := phase.NewRunner(store, gatherer, toolReg, dispatcher, llm, phase.LoopDetectorAdapter{Detector: loops}, nil, 8000)
	advisor := pattern.NewAdvisor(store)

	c := New(store, registry, runner, loops, advisor, ipcStore, toolReg, nil, Config{})

	res, err := c.Step(context.Background())
	if err != nil {
		t.Fatalf("Step returned error: %v", err)
	}
	if !res.Terminated || res.Status != StatusDone {
		t.Errorf("got terminated=%v status=%q, want terminated with StatusDone", res.Terminated, res.Status)
	}
	if llm.calls != 0 {
		t.Errorf("LLM was called %d times, want 0 (rule f should terminate before running any phase)", llm.calls)
	}
}

func TestCancelStopsTheNextStep(t *testing.T) {
	llm := &stubLLM{}
	c, _ := newTestCoordinator(t, llm, Config{})
	c.Cancel()

	res, err := c.Step(context.Background())
	if err != nil {
		t.Fatalf("Step returned error: %v", err)
	}
	if !res.Terminated || res.Status != StatusCancelled {
		t.Errorf("got terminated=%v status=%q, want cancelled", res.Terminated, res.Status)
	}
	if llm.calls != 0 {
		t.Errorf("LLM was called %d times after Cancel, want 0", llm.calls)
	}
}

func TestShutdownIsIdempotentPerInstance(t *testing.T) {
	llm := &stubLLM{}
	c, _ := newTestCoordinator(t, llm, Config{})

	c.Shutdown()
	c.Shutdown() // must not panic or double-close the store

	if !c.Cancelled() {
		t.Error("expected Cancelled() to be true after Shutdown")
	}
}
