package eval

import (
	"codenerd/internal/tools"
)

// RegisterAll registers the yaegi-backed eval tool with registry.
func RegisterAll(registry *tools.Registry) error {
	return registry.Register(EvalSnippetTool())
}
