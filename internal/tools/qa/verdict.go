package qa

import (
	"context"
	"fmt"

	"codenerd/internal/logging"
	"codenerd/internal/tools"
)

// ReportIssueTool returns a tool the qa phase calls to flag a defect in
// a file under review. It performs no filesystem mutation itself; the
// qa_verdict result handler reads the executed call back off the
// invocation to route the owning task to NEEDS_FIXES.
func ReportIssueTool() *tools.Tool {
	return &tools.Tool{
		Name:        "report_issue",
		Description: "Report a defect found while reviewing a file",
		Category:    tools.CategoryQA,
		SafetyClass: tools.SAFE,
		Priority:    70,
		Execute:     executeReportIssue,
		Schema: tools.ToolSchema{
			Required: []string{"filepath", "issue_type", "description"},
			Properties: map[string]tools.Property{
				"filepath": {
					Type:        "string",
					Description: "The file the issue was found in",
				},
				"issue_type": {
					Type:        "string",
					Description: "Short classification of the defect (e.g. bug, style, missing_test)",
				},
				"description": {
					Type:        "string",
					Description: "What is wrong and why it fails review",
				},
				"line_number": {
					Type:        "integer",
					Description: "The line the issue is anchored to, if applicable",
				},
			},
		},
	}
}

func executeReportIssue(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["filepath"].(string)
	issueType, _ := args["issue_type"].(string)
	if path == "" || issueType == "" {
		return "", fmt.Errorf("filepath and issue_type are required")
	}
	logging.ToolsDebug("report_issue: filepath=%s issue_type=%s", path, issueType)
	return fmt.Sprintf("issue recorded against %s (%s)", path, issueType), nil
}

// ApproveCodeTool returns a tool the qa phase calls when a file under
// review has no defects worth reporting.
func ApproveCodeTool() *tools.Tool {
	return &tools.Tool{
		Name:        "approve_code",
		Description: "Approve a file under review with no defects found",
		Category:    tools.CategoryQA,
		SafetyClass: tools.SAFE,
		Priority:    70,
		Execute:     executeApproveCode,
		Schema: tools.ToolSchema{
			Required: []string{"filepath"},
			Properties: map[string]tools.Property{
				"filepath": {
					Type:        "string",
					Description: "The file being approved",
				},
				"notes": {
					Type:        "string",
					Description: "Optional reviewer notes",
				},
			},
		},
	}
}

func executeApproveCode(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["filepath"].(string)
	if path == "" {
		return "", fmt.Errorf("filepath is required")
	}
	logging.ToolsDebug("approve_code: filepath=%s", path)
	return fmt.Sprintf("%s approved", path), nil
}
