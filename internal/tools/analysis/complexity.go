package analysis

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"codenerd/internal/logging"
	"codenerd/internal/tools"
)

// AnalyzeComplexityTool returns a tool reporting per-function
// cyclomatic complexity for a single Go source file.
func AnalyzeComplexityTool() *tools.Tool {
	return &tools.Tool{
		Name:        "analyze_complexity",
		Description: "Report cyclomatic complexity per function in a Go source file",
		Category:    tools.CategoryAnalysis,
		SafetyClass: tools.SAFE,
		PathArgs:    []string{"path"},
		Priority:    60,
		Execute:     executeAnalyzeComplexity,
		Schema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The Go file to analyze",
				},
			},
		},
	}
}

func executeAnalyzeComplexity(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("analyze_complexity: read %s: %w", path, err)
	}

	p := newGoParser()
	defer p.Close()
	tree, err := p.parse(ctx, content)
	if err != nil {
		return "", err
	}
	defer tree.Close()

	funcs := walkFunctions(tree.RootNode(), content)
	if len(funcs) == 0 {
		return fmt.Sprintf("%s: no functions found", path), nil
	}

	sort.Slice(funcs, func(i, j int) bool { return funcs[i].name < funcs[j].name })

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d function(s)\n", path, len(funcs))
	for _, fn := range funcs {
		score := cyclomaticComplexity(fn.node, content)
		flag := ""
		if score > 10 {
			flag = " (high)"
		}
		fmt.Fprintf(&b, "  %s: complexity=%d%s\n", fn.name, score, flag)
	}

	logging.ToolsDebug("analyze_complexity: %s (%d functions)", path, len(funcs))
	return b.String(), nil
}
