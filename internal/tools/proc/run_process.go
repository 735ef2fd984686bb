package proc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"codenerd/internal/logging"
	"codenerd/internal/tools"
)

const (
	defaultTimeoutSeconds = 120
	maxOutputBytes        = 50000
)

// RunProcessTool returns a tool the coding, debugging, and refactoring
// phases use to run an external command (builds, test suites, linters)
// and capture its combined output. sup tracks the spawned process so
// the coordinator can kill it on shutdown.
func RunProcessTool(sup *Supervisor) *tools.Tool {
	return &tools.Tool{
		Name:        "run_process",
		Description: "Run an external command and capture its combined stdout/stderr",
		Category:    tools.CategoryProcess,
		SafetyClass: tools.GUARDED,
		PathArgs:    []string{"working_dir"},
		Priority:    60,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeRunProcess(ctx, sup, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {
					Type:        "string",
					Description: "The command line to execute via sh -c",
				},
				"working_dir": {
					Type:        "string",
					Description: "Working directory for the command",
				},
				"timeout_seconds": {
					Type:        "integer",
					Description: "Timeout in seconds",
					Default:     defaultTimeoutSeconds,
				},
			},
		},
	}
}

func executeRunProcess(ctx context.Context, sup *Supervisor, args map[string]any) (string, error) {
	command, _ := args["command"].(string)
	if command == "" {
		return "", fmt.Errorf("command is required")
	}
	workingDir, _ := args["working_dir"].(string)

	timeout := defaultTimeoutSeconds
	if t, ok := asInt(args["timeout_seconds"]); ok && t > 0 {
		timeout = t
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	logging.ToolsDebug("run_process: cmd=%q dir=%q timeout=%ds", command, workingDir, timeout)

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	if workingDir != "" {
		cmd.Dir = workingDir
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("run_process: start: %w", err)
	}
	sup.track(cmd)
	defer sup.untrack(cmd)

	err := cmd.Wait()
	output := truncate(out.String(), maxOutputBytes)

	if runCtx.Err() == context.DeadlineExceeded {
		return output, fmt.Errorf("run_process: timed out after %ds", timeout)
	}
	if err != nil {
		return output, fmt.Errorf("run_process: %w", err)
	}
	return output, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("\n... truncated (%d bytes total)", len(s))
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
