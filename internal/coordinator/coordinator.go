// Package coordinator implements the pipeline's main control loop
// (spec.md §4.1): classify tasks, pick the next phase by the ordered
// rule table, force a transition out of stagnation, run the phase, and
// persist the outcome.
//
// The orchestration surface is split across a few files, mirroring the
// teacher's own practice of splitting a large stateful controller by
// concern rather than one monolithic file:
//   - coordinator.go   - type definitions, constructor, collaborators
//   - select.go        - phase classification, rule table, stagnation
//   - loop.go          - Run/Step, quiescence detection, state-change
//                        bookkeeping
//   - signals.go       - SIGINT/SIGTERM handling, cancellation, cleanup
package coordinator

import (
	"context"
	"sync"

	"codenerd/internal/ipc"
	"codenerd/internal/loopdetect"
	"codenerd/internal/pattern"
	"codenerd/internal/phase"
	"codenerd/internal/statestore"
	"codenerd/internal/tools"
)

// fallbackOrder is the fixed rotation used by the stagnation forced
// transition (spec.md §4.1 step 5).
var fallbackOrder = []string{"planning", "coding", "qa", "debugging", "refactoring", "project_planning"}

// defaultStagnationThreshold is used when Config.StagnationThreshold
// is left at zero.
const defaultStagnationThreshold = 3

// defaultQuiescenceWindow is how many consecutive NO_OP iterations with
// no pending work terminate the loop (spec.md §4.1 step 8).
const defaultQuiescenceWindow = 3

// defaultContextWindowTokens mirrors config.DefaultConfig's
// [limits].context_window_tokens default.
const defaultContextWindowTokens = 8000

// ProcessKiller is the narrow interface the coordinator uses to tear
// down an in-flight long-running tool handler's process group on
// cancellation (spec.md §5c). Wired to internal/tools/proc's process
// supervisor; nil is a valid "nothing active" no-op.
type ProcessKiller interface {
	KillActive()
}

// Config carries the coordinator's tunables, sourced from the INI
// [limits] section (internal/config.LimitsConfig).
type Config struct {
	StagnationThreshold int
	QuiescenceWindow    int
	ContextWindowTokens int
}

// Status is the terminal state Run() or Step() reports once the
// pipeline stops iterating.
type Status string

const (
	StatusRunning   Status = "running"
	StatusQuiescent Status = "quiescent"
	StatusDone      Status = "done" // all objectives satisfied, documentation ran
	StatusCancelled Status = "cancelled"
)

// StepResult summarizes one iteration, returned by Step for testing
// and logged by Run.
type StepResult struct {
	Phase      string
	Result     PhaseOutcome
	Forced     bool // true if the stagnation rule overrode the natural selection
	Status     Status
	Terminated bool
}

// PhaseOutcome mirrors model.PhaseResult so callers outside this
// package don't need to import internal/model just to inspect a
// StepResult.
type PhaseOutcome string

const (
	OutcomeSuccess PhaseOutcome = "SUCCESS"
	OutcomeNoOp    PhaseOutcome = "NO_OP"
	OutcomeFailure PhaseOutcome = "FAILURE"
)

// Coordinator owns the phase-selection decision and drives the phase
// runner, wiring together every other collaborator the spec assigns to
// it (StateStore, ToolRegistry/Dispatcher via the Runner, LoopDetector,
// PatternStore's advisory half, and IPC).
type Coordinator struct {
	store      *statestore.Store
	registry   *phase.Registry
	runner     *phase.Runner
	loops      *loopdetect.Detector
	advisor    *pattern.Advisor
	ipcStore   *ipc.Store
	toolReg    *tools.Registry
	procKiller ProcessKiller

	cfg Config

	mu         sync.Mutex
	cancelled  bool
	noOpStreak int
	threads    map[string]*phase.Thread // one ConversationThread per phase, persisted across iterations

	signalOnce   sync.Once
	shutdownOnce sync.Once
}

// New assembles a Coordinator. procKiller may be nil, in which case
// shutdown kills no process group.
func New(
	store *statestore.Store,
	registry *phase.Registry,
	runner *phase.Runner,
	loops *loopdetect.Detector,
	advisor *pattern.Advisor,
	ipcStore *ipc.Store,
	toolReg *tools.Registry,
	procKiller ProcessKiller,
	cfg Config,
) *Coordinator {
	if cfg.StagnationThreshold <= 0 {
		cfg.StagnationThreshold = defaultStagnationThreshold
	}
	if cfg.QuiescenceWindow <= 0 {
		cfg.QuiescenceWindow = defaultQuiescenceWindow
	}
	if cfg.ContextWindowTokens <= 0 {
		cfg.ContextWindowTokens = defaultContextWindowTokens
	}
	return &Coordinator{
		store:      store,
		registry:   registry,
		runner:     runner,
		loops:      loops,
		advisor:    advisor,
		ipcStore:   ipcStore,
		toolReg:    toolReg,
		procKiller: procKiller,
		cfg:        cfg,
		threads:    make(map[string]*phase.Thread),
	}
}

// threadFor returns the persisted ConversationThread for phaseName,
// loading it from state/phase/<name>.md on first use this process
// (spec.md §4.2: conversation history survives across iterations of
// the same phase).
func (c *Coordinator) threadFor(ctx context.Context, spec phase.Spec) (*phase.Thread, error) {
	if t, ok := c.threads[spec.Name]; ok {
		return t, nil
	}
	raw, err := c.store.ReadPhaseMarkdown(spec.Name)
	if err != nil {
		return nil, err
	}
	t := phase.ThreadFromMarkdown(spec.ModelRole, "", c.cfg.ContextWindowTokens, raw)
	c.threads[spec.Name] = t
	return t, nil
}

// persistThread flushes a phase's conversation back to its markdown
// state file after the invocation completes.
func (c *Coordinator) persistThread(name string, t *phase.Thread) error {
	return c.store.WritePhaseMarkdown(name, t.ToMarkdown())
}
