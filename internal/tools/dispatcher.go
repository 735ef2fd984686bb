package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"codenerd/internal/logging"
	"codenerd/internal/model"
	"codenerd/internal/pipelineerr"
)

const defaultDeadlineSeconds = 120

// PatternRecorder is the narrow interface the dispatcher uses to record
// an unknown-tool call as a soft-fail pattern, without importing
// internal/pattern (which would create an import cycle back into tools).
type PatternRecorder interface {
	RecordUnknownTool(toolName string, phase string)
}

// Dispatcher is the single path through which the pipeline executes a
// tool call: validate, normalize, bound, execute, record.
type Dispatcher struct {
	registry   *Registry
	projectDir string
	recorder   PatternRecorder
	now        func() time.Time
}

// NewDispatcher builds a Dispatcher bound to registry and projectDir,
// the root against which GUARDED path arguments are contained.
func NewDispatcher(registry *Registry, projectDir string, recorder PatternRecorder) *Dispatcher {
	absRoot, err := filepath.Abs(projectDir)
	if err != nil {
		absRoot = projectDir
	}
	return &Dispatcher{registry: registry, projectDir: absRoot, recorder: recorder, now: time.Now}
}

// Dispatch runs one tool call end-to-end per spec.md §4.3:
//  1. Look up handler by name; unknown tool is a soft-fail, not an error.
//  2. Normalize the argument map (arguments arrive as a map; the
//     multi-dialect object-or-JSON-string handling lives in the LLM
//     client, which always hands Dispatch a parsed map).
//  3. Validate against the schema (missing required arg -> ArgumentError).
//  4. Normalize path arguments; GUARDED tools enforce containment.
//  5. Execute with a per-call deadline.
//  6. Recover from panics as success=false results.
//  7. Record usage metrics and return a ToolResult.
func (d *Dispatcher) Dispatch(ctx context.Context, phase string, call model.ToolCall) model.ToolResult {
	start := d.now()
	toolName := call.Name

	tool := d.registry.Get(toolName)
	if tool == nil {
		logging.ToolsDebug("unknown tool requested: %s (phase=%s)", toolName, phase)
		if d.recorder != nil {
			d.recorder.RecordUnknownTool(toolName, phase)
		}
		return model.ToolResult{
			CallID:  call.CallID,
			Success: false,
			Error:   fmt.Sprintf("%s: %s", pipelineerr.ErrUnknownTool, toolName),
		}
	}

	if tool.SafetyClass == DENIED {
		return d.record(tool, phase, start, model.ToolResult{
			CallID:  call.CallID,
			Success: false,
			Error:   fmt.Sprintf("%s: %s", ErrToolDenied, toolName),
		})
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	if err := validateSchema(tool.Schema, args); err != nil {
		return d.record(tool, phase, start, model.ToolResult{
			CallID:  call.CallID,
			Success: false,
			Error:   fmt.Sprintf("argument error: %v", err),
		})
	}

	if tool.SafetyClass == GUARDED {
		if err := d.normalizeAndContain(tool, args); err != nil {
			return d.record(tool, phase, start, model.ToolResult{
				CallID:  call.CallID,
				Success: false,
				Error:   fmt.Sprintf("path escape: %v", err),
			})
		}
	} else {
		for _, key := range tool.PathArgs {
			if str, ok := args[key].(string); ok {
				args[key] = normalizePath(str)
			}
		}
	}

	deadline := time.Duration(defaultDeadlineSeconds) * time.Second
	if tool.Deadline > 0 {
		deadline = time.Duration(tool.Deadline) * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	output, execErr := d.safeExecute(callCtx, tool, args)

	result := model.ToolResult{CallID: call.CallID, Success: execErr == nil, Output: output}
	if execErr != nil {
		result.Error = execErr.Error()
	}
	return d.record(tool, phase, start, result)
}

func (d *Dispatcher) record(tool *Tool, phase string, start time.Time, result model.ToolResult) model.ToolResult {
	elapsed := d.now().Sub(start).Milliseconds()
	result.ElapsedMs = elapsed
	d.registry.RecordUsage(tool.Name, phase, result.Success, elapsed, d.now().UnixMilli())
	if !result.Success {
		logging.ToolsDebug("tool %s failed (phase=%s): %s", tool.Name, phase, result.Error)
	}
	return result
}

// safeExecute runs the tool's handler, converting a panic into a
// success=false result so a single misbehaving tool can never crash the
// coordinator loop.
func (d *Dispatcher) safeExecute(ctx context.Context, tool *Tool, args map[string]any) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()

	type execOutcome struct {
		output string
		err    error
	}
	done := make(chan execOutcome, 1)
	go func() {
		out, execErr := tool.Execute(ctx, args)
		done <- execOutcome{out, execErr}
	}()

	select {
	case outcome := <-done:
		return outcome.output, outcome.err
	case <-ctx.Done():
		return "", fmt.Errorf("tool %s exceeded deadline: %w", tool.Name, ctx.Err())
	}
}

// validateSchema checks only that required properties are present;
// argument type coercion is deliberately lenient (int64 vs float64 from
// JSON numbers, etc.) since vendor dialects vary.
func validateSchema(schema ToolSchema, args map[string]any) error {
	for _, req := range schema.Required {
		if _, ok := args[req]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, req)
		}
	}
	return nil
}

// normalizeAndContain rewrites each path argument named in tool.PathArgs
// to an absolute, cleaned path and rejects any that escapes the project
// root (boundary behavior B4: "../outside" -> PathEscapeError).
func (d *Dispatcher) normalizeAndContain(tool *Tool, args map[string]any) error {
	for _, key := range tool.PathArgs {
		raw, ok := args[key]
		if !ok {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		normalized := normalizePath(str)
		candidate := normalized
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(d.projectDir, candidate)
		}
		candidate = filepath.Clean(candidate)

		rel, err := filepath.Rel(d.projectDir, candidate)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w: %s escapes project root", pipelineerr.ErrPathEscape, str)
		}
		args[key] = candidate
	}
	return nil
}

// normalizePath trims whitespace, converts Windows separators, and
// collapses repeated "./" prefixes before containment is checked.
func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}
