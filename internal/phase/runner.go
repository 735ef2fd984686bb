package phase

import (
	"context"
	"fmt"
	"time"

	"codenerd/internal/logging"
	"codenerd/internal/model"
	"codenerd/internal/statestore"
	"codenerd/internal/tools"
)

// LLMCaller is the subset of llm.Client the runner depends on, kept
// narrow so phase does not need to import the llm package's transport
// details directly.
type LLMCaller interface {
	ModelFor(ctx context.Context, role string) (server, model string, err error)
	Chat(ctx context.Context, server, model string, messages []ChatMessage, tools []ToolDescriptor) (ChatResult, error)
}

// ChatMessage is the subset of llm.Message the runner builds from a
// Thread; kept local to avoid a phase -> llm import for a single shape.
type ChatMessage struct {
	Role    string
	Content string
}

// ToolDescriptor is the subset of llm.ToolSpec the runner builds from
// the resolved tool set.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  any
}

// ChatResult is the subset of llm.ChatResponse the runner consumes.
type ChatResult struct {
	Content   string
	ToolCalls []model.ToolCall
}

// LoopChecker is the narrow interface the runner uses to invoke the
// loop detector after each tool call (spec.md §4.2 step 6, §4.7). output
// is the tool's result payload, needed for signal-bearing kinds like
// circular_dependency that key off what an analysis tool reported, not
// just which tool was called.
type LoopChecker interface {
	Observe(phase, tool string, args map[string]any, output any, success bool) LoopVerdict
}

// LoopVerdict mirrors loopdetect.Verdict's fields the runner acts on,
// duplicated here (rather than imported) to keep phase decoupled from
// the concrete detector package; the two shapes are kept in lockstep.
type LoopVerdict struct {
	Detected      bool
	Kind          string
	Severity      string
	Suggestion    string
	MustIntervene bool
}

// ResultHandler runs after a phase invocation completes, with the
// chance to create tasks, write IPC sections, or otherwise react to
// what happened (spec.md §4.2 step 7). Handlers run in the order
// listed in the Spec.
type ResultHandler interface {
	Name() string
	Handle(ctx context.Context, inv *Invocation) error
}

// Invocation carries everything one phase run produced, available to
// its result handlers and to the caller for pattern recording.
type Invocation struct {
	Phase       string
	Spec        Spec
	Thread      *Thread
	ToolResults []ExecutedCall
	FinalText   string
	LoopBroken  bool
	LoopVerdict LoopVerdict
}

// ExecutedCall pairs a dispatched tool call with its result.
type ExecutedCall struct {
	Call   model.ToolCall
	Result model.ToolResult
}

// Runner executes the 8-step phase invocation (spec.md §4.2) against
// one phase's Spec, wiring together context gathering, the
// ConversationThread, the LLM client, the tool dispatcher, the loop
// detector, and the configured result handlers.
type Runner struct {
	store      *statestore.Store
	gatherer   *Gatherer
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	llm        LLMCaller
	loops      LoopChecker
	handlers   map[string]ResultHandler
	tokenBudget int
}

// NewRunner assembles a Runner from its collaborators. handlers is
// keyed by the result_handlers identifiers a Spec may list
// (task_creator, file_writer, ipc_sender, ...).
func NewRunner(
	store *statestore.Store,
	gatherer *Gatherer,
	registry *tools.Registry,
	dispatcher *tools.Dispatcher,
	llmCaller LLMCaller,
	loops LoopChecker,
	handlers []ResultHandler,
	tokenBudget int,
) *Runner {
	h := make(map[string]ResultHandler, len(handlers))
	for _, rh := range handlers {
		h[rh.Name()] = rh
	}
	return &Runner{
		store:       store,
		gatherer:    gatherer,
		registry:    registry,
		dispatcher:  dispatcher,
		llm:         llmCaller,
		loops:       loops,
		handlers:    h,
		tokenBudget: tokenBudget,
	}
}

// toolCategories converts a Spec's string category names to
// tools.ToolCategory values.
func toolCategories(names []string) []tools.ToolCategory {
	out := make([]tools.ToolCategory, 0, len(names))
	for _, n := range names {
		out = append(out, tools.ToolCategory(n))
	}
	return out
}

// Run executes one phase invocation end to end.
func (r *Runner) Run(ctx context.Context, spec Spec, thread *Thread) (*Invocation, error) {
	inv := &Invocation{Phase: spec.Name, Spec: spec, Thread: thread}

	// Step 1: gather context.
	blocks := r.gatherer.Gather(spec, r.tokenBudget)
	contextText := RenderContextBlocks(blocks)

	// Step 2: build user message.
	userMsg := Message{Role: RoleUser, Content: contextText}
	thread.Append(userMsg)

	// Step 3: select tools (the only callable surface this turn).
	available := r.registry.ToolsFor(toolCategories(spec.ToolCategories), nil)
	descriptors := make([]ToolDescriptor, 0, len(available))
	for _, t := range available {
		descriptors = append(descriptors, ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema,
		})
	}

	// Step 4: call the LLM.
	server, modelID, err := r.llm.ModelFor(ctx, spec.ModelRole)
	if err != nil {
		return inv, fmt.Errorf("phase %s: resolve model: %w", spec.Name, err)
	}
	result, err := r.llm.Chat(ctx, server, modelID, toChatMessages(thread), descriptors)
	if err != nil {
		return inv, fmt.Errorf("phase %s: chat: %w", spec.Name, err)
	}
	inv.FinalText = result.Content
	thread.Append(Message{Role: RoleAssistant, Content: result.Content})

	// Step 5 + 6: dispatch tool calls sequentially, loop-checking after each.
	for _, call := range result.ToolCalls {
		if spec.Name == "qa" {
			call.Name = CoerceQAToolName(call.Name, call.Arguments)
		}

		toolResult := r.dispatcher.Dispatch(ctx, spec.Name, call)
		inv.ToolResults = append(inv.ToolResults, ExecutedCall{Call: call, Result: toolResult})
		thread.Append(Message{Role: RoleTool, Content: toolResult.Error + toolResultText(toolResult)})

		if r.loops != nil {
			verdict := r.loops.Observe(spec.Name, call.Name, call.Arguments, toolResult.Output, toolResult.Success)
			if verdict.MustIntervene {
				inv.LoopBroken = true
				inv.LoopVerdict = verdict
				logging.LoopDebug("phase %s broke on loop kind=%s severity=%s: %s", spec.Name, verdict.Kind, verdict.Severity, verdict.Suggestion)
				break
			}
		}
	}

	// Step 7: run result handlers in the configured order.
	if !inv.LoopBroken {
		for _, name := range spec.ResultHandlers {
			handler, ok := r.handlers[name]
			if !ok {
				logging.Get(logging.CategoryPhase).Warn("phase %s: no result handler registered for %q", spec.Name, name)
				continue
			}
			if err := handler.Handle(ctx, inv); err != nil {
				logging.Get(logging.CategoryPhase).Error("phase %s: result handler %s failed: %v", spec.Name, name, err)
			}
		}
	}

	// Step 8: record pattern.
	r.recordPattern(ctx, inv)

	return inv, nil
}

func toChatMessages(thread *Thread) []ChatMessage {
	msgs := thread.Messages(time.Now().UTC())
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func toolResultText(r model.ToolResult) string {
	if r.Success {
		if s, ok := r.Output.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", r.Output)
	}
	return r.Error
}

func (r *Runner) recordPattern(ctx context.Context, inv *Invocation) {
	kind := model.PatternSuccess
	if inv.LoopBroken {
		kind = model.PatternFailure
	}
	pattern := model.ExecutionPattern{
		Kind:       kind,
		Signature:  "phase:" + inv.Phase,
		Confidence: 0.5,
		Attributes: map[string]string{
			"phase":      inv.Phase,
			"tool_calls": fmt.Sprintf("%d", len(inv.ToolResults)),
		},
	}
	if err := r.store.AddPattern(ctx, pattern); err != nil {
		logging.Get(logging.CategoryPattern).Error("phase %s: record pattern: %v", inv.Phase, err)
	}
}
