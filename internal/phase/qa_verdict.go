package phase

import (
	"context"
	"fmt"
	"time"

	"codenerd/internal/model"
	"codenerd/internal/statestore"
)

// QAVerdictHandler applies the qa phase's review verdict to the tasks
// it was run against (spec.md §4.2a): a QA_PENDING task with no
// report_issue call against any of its files moves to COMPLETED and
// every one of its files is marked VERIFIED; a task with at least one
// report_issue call against one of its files moves to NEEDS_FIXES with
// the issues recorded as TaskErrors, so the next iteration routes it to
// debugging.
type QAVerdictHandler struct {
	store *statestore.Store
}

// NewQAVerdictHandler binds a QAVerdictHandler to store.
func NewQAVerdictHandler(store *statestore.Store) *QAVerdictHandler {
	return &QAVerdictHandler{store: store}
}

func (h *QAVerdictHandler) Name() string { return "qa_verdict" }

func (h *QAVerdictHandler) Handle(ctx context.Context, inv *Invocation) error {
	issuesByFile := make(map[string][]string)
	for _, ec := range inv.ToolResults {
		if ec.Call.Name != "report_issue" || !ec.Result.Success {
			continue
		}
		path, _ := ec.Call.Arguments["filepath"].(string)
		if path == "" {
			continue
		}
		issueType, _ := ec.Call.Arguments["issue_type"].(string)
		desc, _ := ec.Call.Arguments["description"].(string)
		issuesByFile[path] = append(issuesByFile[path], fmt.Sprintf("%s: %s", issueType, desc))
	}

	for _, task := range h.store.TasksByStatus(model.TaskQAPending) {
		reported := reportedFiles(task.Files, issuesByFile)
		if len(reported) > 0 {
			if err := h.failTask(task, reported, issuesByFile); err != nil {
				return err
			}
			continue
		}
		if err := h.passTask(task); err != nil {
			return err
		}
	}
	return nil
}

func (h *QAVerdictHandler) failTask(task model.TaskState, reported []string, issuesByFile map[string][]string) error {
	task.Status = model.TaskNeedsFixes
	for _, path := range reported {
		for _, msg := range issuesByFile[path] {
			task.AddError(model.TaskError{
				Phase:     "qa",
				Kind:      "review_issue",
				Message:   msg,
				File:      path,
				Timestamp: time.Now().UTC(),
			})
		}
	}
	if err := h.store.PutTask(task); err != nil {
		return fmt.Errorf("qa_verdict: put task %s: %w", task.ID, err)
	}
	return nil
}

func (h *QAVerdictHandler) passTask(task model.TaskState) error {
	task.Status = model.TaskCompleted
	if err := h.store.PutTask(task); err != nil {
		return fmt.Errorf("qa_verdict: put task %s: %w", task.ID, err)
	}
	for _, path := range task.Files {
		if err := h.store.SetFileStatus(path, model.FileVerified, "qa"); err != nil {
			return fmt.Errorf("qa_verdict: set file status %s: %w", path, err)
		}
	}
	return nil
}

// reportedFiles returns the subset of files that have at least one
// reported issue against them.
func reportedFiles(files []string, issuesByFile map[string][]string) []string {
	var out []string
	for _, f := range files {
		if len(issuesByFile[f]) > 0 {
			out = append(out, f)
		}
	}
	return out
}
