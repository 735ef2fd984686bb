package analysis

import (
	"codenerd/internal/tools"
)

// RegisterAll registers the tree-sitter-backed analysis tools with registry.
func RegisterAll(registry *tools.Registry) error {
	allTools := []*tools.Tool{
		AnalyzeComplexityTool(),
		DetectDeadCodeTool(),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}
