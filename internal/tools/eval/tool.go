package eval

import (
	"context"
	"fmt"
	"time"

	"codenerd/internal/logging"
	"codenerd/internal/tools"
)

// EvalSnippetTool returns a tool that interprets a Go snippet through
// yaegi rather than compiling it, for quick verification code the
// debugging and tool_evaluation phases want to run without the cost
// and failure modes of go build.
func EvalSnippetTool() *tools.Tool {
	return &tools.Tool{
		Name:        "eval_snippet",
		Description: "Interpret a Go snippet (must define func RunTool(input string) (string, error)) against an input string",
		Category:    tools.CategoryEval,
		SafetyClass: tools.SAFE,
		Priority:    50,
		Deadline:    10,
		Execute:     executeEvalSnippet,
		Schema: tools.ToolSchema{
			Required: []string{"code"},
			Properties: map[string]tools.Property{
				"code": {
					Type:        "string",
					Description: "Go source defining func RunTool(input string) (string, error)",
				},
				"input": {
					Type:        "string",
					Description: "The string passed to RunTool",
				},
			},
		},
	}
}

func executeEvalSnippet(ctx context.Context, args map[string]any) (string, error) {
	code, _ := args["code"].(string)
	if code == "" {
		return "", fmt.Errorf("code is required")
	}
	input, _ := args["input"].(string)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	logging.ToolsDebug("eval_snippet: running %d-byte snippet", len(code))
	result, err := runSnippet(ctx, code, input)
	if err != nil {
		return "", fmt.Errorf("eval_snippet: %w", err)
	}
	return result, nil
}
