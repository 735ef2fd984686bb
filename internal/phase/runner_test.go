package phase

import (
	"context"
	"testing"

	"codenerd/internal/ipc"
	"codenerd/internal/model"
	"codenerd/internal/statestore"
	"codenerd/internal/tools"
)

type fakeLLM struct {
	calls     int
	responses []ChatResult
}

func (f *fakeLLM) ModelFor(ctx context.Context, role string) (string, string, error) {
	return "http://localhost:9", "fake-model", nil
}

func (f *fakeLLM) Chat(ctx context.Context, server, model string, messages []ChatMessage, toolDescs []ToolDescriptor) (ChatResult, error) {
	r := f.responses[f.calls]
	f.calls++
	return r, nil
}

type fakeLoopChecker struct {
	verdict LoopVerdict
}

func (f *fakeLoopChecker) Observe(phase, tool string, args map[string]any, output any, success bool) LoopVerdict {
	return f.verdict
}

type recordingHandler struct {
	name  string
	calls int
}

func (h *recordingHandler) Name() string { return h.name }
func (h *recordingHandler) Handle(ctx context.Context, inv *Invocation) error {
	h.calls++
	return nil
}

func newTestRunner(t *testing.T, llm LLMCaller, loops LoopChecker, handlers []ResultHandler) (*Runner, *statestore.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := statestore.Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := tools.NewRegistry()
	registry.MustRegister(&tools.Tool{
		Name:        "noop_tool",
		Description: "does nothing, always succeeds",
		Category:    tools.CategoryGeneral,
		SafetyClass: tools.SAFE,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "ok", nil
		},
	})
	dispatcher := tools.NewDispatcher(registry, dir, nil)
	ipcStore, err := ipc.NewStore(dir)
	if err != nil {
		t.Fatalf("new ipc store: %v", err)
	}
	gatherer := NewGatherer(store, ipcStore)

	runner := NewRunner(store, gatherer, registry, dispatcher, llm, loops, handlers, 2000)
	return runner, store
}

func TestRunnerExecutesToolCallsAndRunsResultHandlers(t *testing.T) {
	llm := &fakeLLM{responses: []ChatResult{
		{
			Content: "calling the tool now",
			ToolCalls: []model.ToolCall{
				{CallID: "1", Name: "noop_tool", Arguments: map[string]any{}},
			},
		},
	}}
	handler := &recordingHandler{name: "task_creator"}
	loops := &fakeLoopChecker{verdict: LoopVerdict{Detected: false}}

	runner, _ := newTestRunner(t, llm, loops, []ResultHandler{handler})
	spec := Spec{
		Name:           "coding",
		ToolCategories: []string{"TOOLS_GENERAL"},
		ResultHandlers: []string{"task_creator"},
		ModelRole:      "coding",
	}
	thread := NewThread("coding", "fake-model", 2000)

	inv, err := runner.Run(context.Background(), spec, thread)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(inv.ToolResults) != 1 || !inv.ToolResults[0].Result.Success {
		t.Fatalf("expected one successful tool result, got %+v", inv.ToolResults)
	}
	if handler.calls != 1 {
		t.Errorf("result handler called %d times, want 1", handler.calls)
	}
}

func TestRunnerStopsOnMustInterveneAndSkipsHandlers(t *testing.T) {
	llm := &fakeLLM{responses: []ChatResult{
		{
			Content: "looping",
			ToolCalls: []model.ToolCall{
				{CallID: "1", Name: "noop_tool", Arguments: map[string]any{}},
			},
		},
	}}
	handler := &recordingHandler{name: "task_creator"}
	loops := &fakeLoopChecker{verdict: LoopVerdict{Detected: true, MustIntervene: true, Kind: "action_repeat", Severity: "critical"}}

	runner, _ := newTestRunner(t, llm, loops, []ResultHandler{handler})
	spec := Spec{
		Name:           "coding",
		ToolCategories: []string{"TOOLS_GENERAL"},
		ResultHandlers: []string{"task_creator"},
		ModelRole:      "coding",
	}
	thread := NewThread("coding", "fake-model", 2000)

	inv, err := runner.Run(context.Background(), spec, thread)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !inv.LoopBroken {
		t.Error("expected LoopBroken to be set")
	}
	if handler.calls != 0 {
		t.Errorf("result handlers must not run after a must-intervene verdict, got %d calls", handler.calls)
	}
}

func TestRunnerCoercesBlankQAToolName(t *testing.T) {
	llm := &fakeLLM{responses: []ChatResult{
		{
			Content: "",
			ToolCalls: []model.ToolCall{
				{CallID: "1", Name: "", Arguments: map[string]any{"issue_type": "bug", "description": "off by one", "line_number": 10}},
			},
		},
	}}
	loops := &fakeLoopChecker{verdict: LoopVerdict{Detected: false}}

	runner, _ := newTestRunner(t, llm, loops, nil)
	spec := Spec{
		Name:           "qa",
		ToolCategories: []string{"TOOLS_GENERAL"},
		ModelRole:      "qa",
	}
	thread := NewThread("qa", "fake-model", 2000)

	inv, err := runner.Run(context.Background(), spec, thread)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(inv.ToolResults) != 1 {
		t.Fatalf("expected one tool result, got %d", len(inv.ToolResults))
	}
	if inv.ToolResults[0].Call.Name != "report_issue" {
		t.Errorf("blank qa tool name not coerced, got %q", inv.ToolResults[0].Call.Name)
	}
}
