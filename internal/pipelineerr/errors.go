// Package pipelineerr defines the engine's error taxonomy (spec.md §7).
// Tool-level errors stay local and are returned as model.ToolResult;
// only FatalStateError and unrecoverable configuration errors propagate
// out of the Coordinator.
package pipelineerr

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the taxonomy's broad classes. Use
// errors.Is against these after wrapping with fmt.Errorf("%w", ...).
var (
	// ErrFatalState marks an unrecoverable state store failure.
	ErrFatalState = errors.New("fatal state error")

	// ErrTransport marks an LLM network failure after retries exhausted.
	ErrTransport = errors.New("transport error")

	// ErrArgument marks a tool schema validation failure.
	ErrArgument = errors.New("argument error")

	// ErrPathEscape marks a tool argument that referenced a path outside
	// the project root.
	ErrPathEscape = errors.New("path escape error")

	// ErrUnknownTool marks a tool call naming an unregistered tool.
	ErrUnknownTool = errors.New("unknown tool error")

	// ErrAskUserRequired marks an escalation to a human operator.
	ErrAskUserRequired = errors.New("ask user required")
)

// Diagnostic is the structured, user-visible shape every propagated
// error carries: phase, tool (if any), the normalized path(s), a
// one-line summary, and a diagnostic id that indexes the log.
type Diagnostic struct {
	Phase     string   `json:"phase"`
	Tool      string   `json:"tool,omitempty"`
	Paths     []string `json:"paths,omitempty"`
	Summary   string   `json:"summary"`
	Diagnostic string  `json:"diagnostic_id"`
}

func (d Diagnostic) Error() string {
	if d.Tool != "" {
		return fmt.Sprintf("[%s] %s (tool=%s, id=%s)", d.Phase, d.Summary, d.Tool, d.Diagnostic)
	}
	return fmt.Sprintf("[%s] %s (id=%s)", d.Phase, d.Summary, d.Diagnostic)
}

// FatalStateError wraps ErrFatalState with a diagnostic.
func FatalStateError(phase, summary, diagID string) error {
	return fmt.Errorf("%w: %s", ErrFatalState, Diagnostic{Phase: phase, Summary: summary, Diagnostic: diagID})
}

// TransportError wraps ErrTransport with a diagnostic.
func TransportError(phase, summary, diagID string) error {
	return fmt.Errorf("%w: %s", ErrTransport, Diagnostic{Phase: phase, Summary: summary, Diagnostic: diagID})
}

// ArgumentError wraps ErrArgument with a diagnostic naming the tool.
func ArgumentError(phase, tool, summary, diagID string) error {
	return fmt.Errorf("%w: %s", ErrArgument, Diagnostic{Phase: phase, Tool: tool, Summary: summary, Diagnostic: diagID})
}

// PathEscapeError wraps ErrPathEscape, naming the offending paths.
func PathEscapeError(phase, tool string, paths []string, diagID string) error {
	return fmt.Errorf("%w: %s", ErrPathEscape, Diagnostic{
		Phase: phase, Tool: tool, Paths: paths,
		Summary:    "path argument escapes project root",
		Diagnostic: diagID,
	})
}

// UnknownToolError wraps ErrUnknownTool, listing available names so the
// model can recover.
func UnknownToolError(phase, tool string, available []string, diagID string) error {
	return fmt.Errorf("%w: %s (available: %v)", ErrUnknownTool,
		Diagnostic{Phase: phase, Tool: tool, Summary: "tool not registered", Diagnostic: diagID}, available)
}
