package analysis

import (
	"context"
	"fmt"
	"os"
	"strings"

	"codenerd/internal/logging"
	"codenerd/internal/tools"
)

// DetectDeadCodeTool returns a tool flagging top-level Go functions
// declared in a file with no reference to their name elsewhere in that
// same file. This is a single-file heuristic, not a whole-module call
// graph: a function only ever called from another file will be flagged
// and the caller must use judgment before deleting it.
func DetectDeadCodeTool() *tools.Tool {
	return &tools.Tool{
		Name:        "detect_dead_code",
		Description: "List top-level functions in a Go file with no in-file references to their name",
		Category:    tools.CategoryAnalysis,
		SafetyClass: tools.SAFE,
		PathArgs:    []string{"path"},
		Priority:    60,
		Execute:     executeDetectDeadCode,
		Schema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The Go file to scan",
				},
			},
		},
	}
}

func executeDetectDeadCode(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("detect_dead_code: read %s: %w", path, err)
	}

	p := newGoParser()
	defer p.Close()
	tree, err := p.parse(ctx, content)
	if err != nil {
		return "", err
	}
	defer tree.Close()

	funcs := walkFunctions(tree.RootNode(), content)
	var dead []string
	for _, fn := range funcs {
		if fn.name == "main" || fn.name == "init" {
			continue
		}
		if countOccurrences(content, fn.name) <= 1 {
			dead = append(dead, fn.name)
		}
	}

	if len(dead) == 0 {
		return fmt.Sprintf("%s: no unreferenced functions found", path), nil
	}

	logging.ToolsDebug("detect_dead_code: %s found %d candidate(s)", path, len(dead))
	return fmt.Sprintf("%s: possibly unused: %s", path, strings.Join(dead, ", ")), nil
}

// countOccurrences counts non-overlapping occurrences of name as a
// standalone identifier in content. A declaration site plus zero call
// sites counts as one occurrence.
func countOccurrences(content []byte, name string) int {
	count := 0
	rest := content
	for {
		idx := indexIdentifier(rest, name)
		if idx < 0 {
			break
		}
		count++
		rest = rest[idx+len(name):]
	}
	return count
}

// indexIdentifier finds name in content bounded by non-identifier
// characters on both sides, so "Run" doesn't match inside "RunTests".
func indexIdentifier(content []byte, name string) int {
	s := string(content)
	search := s
	offset := 0
	for {
		i := strings.Index(search, name)
		if i < 0 {
			return -1
		}
		start := offset + i
		before := byte(' ')
		if start > 0 {
			before = s[start-1]
		}
		after := byte(' ')
		if end := start + len(name); end < len(s) {
			after = s[end]
		}
		if !isIdentChar(before) && !isIdentChar(after) {
			return start
		}
		search = search[i+len(name):]
		offset = start + len(name)
	}
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
