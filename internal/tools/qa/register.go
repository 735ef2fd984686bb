package qa

import (
	"codenerd/internal/tools"
)

// RegisterAll registers report_issue and approve_code with registry.
func RegisterAll(registry *tools.Registry) error {
	allTools := []*tools.Tool{
		ReportIssueTool(),
		ApproveCodeTool(),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}
