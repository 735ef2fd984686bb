package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codenerd/internal/model"
)

func testRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	reg := NewRegistry()
	reg.MustRegister(&Tool{
		Name:        "write_file",
		Category:    CategoryCoding,
		SafetyClass: GUARDED,
		PathArgs:    []string{"path"},
		Schema: ToolSchema{
			Required: []string{"path", "content"},
			Properties: map[string]Property{
				"path":    {Type: "string"},
				"content": {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "wrote " + args["path"].(string), nil
		},
	})
	reg.MustRegister(&Tool{
		Name:        "read_notes",
		Category:    CategoryGeneral,
		SafetyClass: SAFE,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "ok", nil
		},
	})
	reg.MustRegister(&Tool{
		Name:        "slow_tool",
		Category:    CategoryGeneral,
		SafetyClass: SAFE,
		Deadline:    1,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			select {
			case <-time.After(5 * time.Second):
				return "done", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
	})
	return reg, dir
}

func TestDispatchUnknownToolSoftFails(t *testing.T) {
	reg, dir := testRegistry(t)
	var recorded string
	d := NewDispatcher(reg, dir, recorderFunc(func(name, phase string) { recorded = name }))

	result := d.Dispatch(context.Background(), "coding", model.ToolCall{Name: "does_not_exist"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown tool")
	assert.Equal(t, "does_not_exist", recorded)
}

func TestDispatchPathEscapeRejected(t *testing.T) {
	reg, dir := testRegistry(t)
	d := NewDispatcher(reg, dir, nil)

	result := d.Dispatch(context.Background(), "coding", model.ToolCall{
		Name:      "write_file",
		Arguments: map[string]any{"path": "../outside", "content": "x"},
	})
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "path escape")
}

func TestDispatchMissingRequiredArg(t *testing.T) {
	reg, dir := testRegistry(t)
	d := NewDispatcher(reg, dir, nil)

	result := d.Dispatch(context.Background(), "coding", model.ToolCall{
		Name:      "write_file",
		Arguments: map[string]any{"path": "a.go"},
	})
	require.False(t, result.Success)
	assert.Contains(t, result.Error, "argument error")
}

func TestDispatchNormalizesRelativePath(t *testing.T) {
	reg, dir := testRegistry(t)
	d := NewDispatcher(reg, dir, nil)

	result := d.Dispatch(context.Background(), "coding", model.ToolCall{
		Name:      "write_file",
		Arguments: map[string]any{"path": "./sub/a.go", "content": "x"},
	})
	require.True(t, result.Success)
	assert.Contains(t, result.Output, "sub/a.go")
}

func TestDispatchSucceedsForSafeTool(t *testing.T) {
	reg, dir := testRegistry(t)
	d := NewDispatcher(reg, dir, nil)

	result := d.Dispatch(context.Background(), "qa", model.ToolCall{Name: "read_notes"})
	require.True(t, result.Success)
	assert.Equal(t, "ok", result.Output)
}

func TestDispatchEnforcesDeadline(t *testing.T) {
	reg, dir := testRegistry(t)
	d := NewDispatcher(reg, dir, nil)

	start := time.Now()
	result := d.Dispatch(context.Background(), "coding", model.ToolCall{Name: "slow_tool"})
	elapsed := time.Since(start)

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "deadline")
	assert.Less(t, elapsed, 3*time.Second)
}

func TestDispatchRecordsUsageCounters(t *testing.T) {
	reg, dir := testRegistry(t)
	d := NewDispatcher(reg, dir, nil)

	d.Dispatch(context.Background(), "qa", model.ToolCall{Name: "read_notes"})
	d.Dispatch(context.Background(), "qa", model.ToolCall{Name: "read_notes"})

	usage := reg.Usage("read_notes")
	assert.Equal(t, 2, usage.Calls)
	assert.Equal(t, 2, usage.Successes)
	assert.Equal(t, 2, usage.ByPhase["qa"])
}

type recorderFunc func(toolName, phase string)

func (f recorderFunc) RecordUnknownTool(toolName, phase string) { f(toolName, phase) }
