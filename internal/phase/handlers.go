package phase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codenerd/internal/ipc"
	"codenerd/internal/model"
	"codenerd/internal/statestore"
)

// TaskCreatorHandler inspects an invocation's tool results for
// create_task-shaped outputs and persists new TaskState records,
// applying planning's Jaccard duplicate-rejection rule when invoked
// from the planning phase (spec.md §4.2a).
type TaskCreatorHandler struct {
	store *statestore.Store
}

// NewTaskCreatorHandler binds a TaskCreatorHandler to store.
func NewTaskCreatorHandler(store *statestore.Store) *TaskCreatorHandler {
	return &TaskCreatorHandler{store: store}
}

func (h *TaskCreatorHandler) Name() string { return "task_creator" }

// Handle scans executed create_task calls, skipping any the planning
// phase's duplicate-detection rule rejects, and persists the rest.
func (h *TaskCreatorHandler) Handle(ctx context.Context, inv *Invocation) error {
	existing := h.existingCandidates()

	for _, ec := range inv.ToolResults {
		if ec.Call.Name != "create_task" || !ec.Result.Success {
			continue
		}
		args := ec.Call.Arguments
		desc, _ := args["description"].(string)
		files := stringSlice(args["files"])
		priority, _ := args["priority"].(string)
		effort, hasEffort := args["estimated_effort"]

		if inv.Phase == "planning" {
			if IsDuplicatePlanningTask(candidateTask{Files: files, Description: desc}, existing) {
				continue
			}
		}

		now := time.Now().UTC()
		task := model.TaskState{
			ID:          newTaskID(),
			Description: desc,
			Files:       files,
			Status:      model.TaskNew,
			Priority:    model.Priority(orDefault(priority, string(model.PriorityNormal))),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if hasEffort {
			// refactoring's estimated_effort is carried as an initial
			// error-free attempts annotation in the description, since
			// TaskState has no dedicated field for it; the wire name
			// stays estimated_effort at the tool-call boundary per spec.
			task.Description = fmt.Sprintf("%s (estimated_effort=%v min)", task.Description, effort)
		}
		if err := h.store.PutTask(task); err != nil {
			return fmt.Errorf("task_creator: put task: %w", err)
		}
		existing = append(existing, candidateTask{Files: files, Description: desc})
	}
	return nil
}

func (h *TaskCreatorHandler) existingCandidates() []candidateTask {
	live := h.store.TasksByStatus(model.TaskNew, model.TaskInProgress, model.TaskQAPending, model.TaskNeedsFixes)
	out := make([]candidateTask, 0, len(live))
	for _, t := range live {
		out = append(out, candidateTask{Files: t.Files, Description: t.Description})
	}
	return out
}

// FileWriterHandler marks files touched by successful write_file/
// edit_file/delete_file tool calls as modified in the StateStore (the dispatcher
// already performed the actual write; this handler only updates the
// tracking record, per spec.md's "phases never mutate files directly"
// rule — the dispatcher mutated, this records that it happened).
type FileWriterHandler struct {
	store *statestore.Store
}

// NewFileWriterHandler binds a FileWriterHandler to store.
func NewFileWriterHandler(store *statestore.Store) *FileWriterHandler {
	return &FileWriterHandler{store: store}
}

func (h *FileWriterHandler) Name() string { return "file_writer" }

func (h *FileWriterHandler) Handle(ctx context.Context, inv *Invocation) error {
	for _, ec := range inv.ToolResults {
		if !ec.Result.Success {
			continue
		}
		if ec.Call.Name != "write_file" && ec.Call.Name != "edit_file" && ec.Call.Name != "delete_file" {
			continue
		}
		path, _ := ec.Call.Arguments["path"].(string)
		if path == "" {
			continue
		}
		if err := h.store.FileModified(path, inv.Phase); err != nil {
			return fmt.Errorf("file_writer: %w", err)
		}
	}
	return nil
}

// IPCSenderHandler writes the phase's final text into its WRITE
// document, under its "Summary" section so downstream
// phases and the operator have a stable place to read it from.
type IPCSenderHandler struct {
	ipcStore *ipc.Store
}

// NewIPCSenderHandler binds an IPCSenderHandler to ipcStore.
func NewIPCSenderHandler(ipcStore *ipc.Store) *IPCSenderHandler {
	return &IPCSenderHandler{ipcStore: ipcStore}
}

func (h *IPCSenderHandler) Name() string { return "ipc_sender" }

func (h *IPCSenderHandler) Handle(ctx context.Context, inv *Invocation) error {
	if strings.TrimSpace(inv.FinalText) == "" {
		return nil
	}
	return h.ipcStore.UpdatePhaseOutputSection(inv.Phase, "Summary", inv.FinalText)
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var taskIDCounter int

// newTaskID generates a sequential task id. A monotonically increasing
// in-process counter is sufficient here since TaskCreatorHandler runs
// behind the StateStore's single-writer serialization.
func newTaskID() string {
	taskIDCounter++
	return fmt.Sprintf("T%04d", taskIDCounter)
}
