package phase

import (
	"fmt"
	"sort"
	"strings"

	"codenerd/internal/ipc"
	"codenerd/internal/model"
	"codenerd/internal/statestore"
)

// maxSectionChars bounds one gathered context section before it is
// truncated with a "(truncated)" marker — context size must fit the
// model's context window minus prompt headroom (spec.md §4.2 step 1).
const maxSectionChars = 4000

// Gatherer resolves a Spec's context_sources into the text blocks fed
// into the phase's user message.
type Gatherer struct {
	store    *statestore.Store
	ipcStore *ipc.Store
}

// NewGatherer binds a Gatherer to the project's StateStore and IPC Store.
func NewGatherer(store *statestore.Store, ipcStore *ipc.Store) *Gatherer {
	return &Gatherer{store: store, ipcStore: ipcStore}
}

// Gather resolves every context source in spec, in order, applying its
// configured filter, and returns one labeled, bounded text block per
// source. Each read is itself bounded (no unbounded recursive walks),
// so a badly configured source degrades to an empty section rather
// than hanging the phase.
func (g *Gatherer) Gather(spec Spec, tokenBudget int) []ContextBlock {
	var blocks []ContextBlock
	charBudget := tokenBudget * 4
	spent := 0

	for _, src := range spec.ContextSources {
		if spent >= charBudget {
			blocks = append(blocks, ContextBlock{Source: src, Body: "(omitted: context budget exhausted)"})
			continue
		}
		body := g.resolve(src, spec.ContextFilters)
		body = truncateSection(body, maxSectionChars)
		spent += len(body)
		blocks = append(blocks, ContextBlock{Source: src, Body: body})
	}
	return blocks
}

// ContextBlock is one resolved, labeled, bounded context source.
type ContextBlock struct {
	Source ContextSource
	Body   string
}

// RenderContextBlocks concatenates blocks into the template-ready context text.
func RenderContextBlocks(blocks []ContextBlock) string {
	var b strings.Builder
	for _, blk := range blocks {
		b.WriteString("### ")
		b.WriteString(string(blk.Source))
		b.WriteString("\n\n")
		b.WriteString(blk.Body)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (g *Gatherer) resolve(src ContextSource, filters map[string]ContextFilter) string {
	name := string(src)
	switch {
	case name == "architecture":
		doc, err := g.ipcStore.ReadStrategic("ARCHITECTURE.md")
		if err != nil {
			return fmt.Sprintf("(architecture unavailable: %v)", err)
		}
		return doc.Render()
	case strings.HasPrefix(name, "ipc."):
		doc, err := g.ipcStore.ReadStrategic(strings.TrimPrefix(name, "ipc.") + ".md")
		if err != nil {
			return fmt.Sprintf("(%s unavailable: %v)", name, err)
		}
		return doc.Render()
	case name == "state.tasks":
		return g.tasksSection(filters["tasks"])
	case name == "state.files":
		return g.filesSection(filters["files"])
	case strings.HasPrefix(name, "analysis."):
		// Analysis result sets are produced by tool calls during the
		// phase itself (refactoring's duplicate/dead-code/complexity/
		// drift sets); there is nothing to gather ahead of the call.
		return "(populated via analysis tool calls during this phase)"
	default:
		return ""
	}
}

func (g *Gatherer) tasksSection(filter ContextFilter) string {
	statuses := statusesFromFilter(filter)
	var tasks []model.TaskState
	if len(statuses) == 0 {
		snap := g.store.Snapshot()
		for _, t := range snap.Tasks {
			tasks = append(tasks, t)
		}
	} else {
		tasks = g.store.TasksByStatus(statuses...)
	}
	if len(tasks) == 0 {
		return "(no matching tasks)"
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	var b strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&b, "- %s [%s/%s] %s (files: %s)\n", t.ID, t.Status, t.Priority, t.Description, strings.Join(t.Files, ", "))
	}
	return b.String()
}

func (g *Gatherer) filesSection(filter ContextFilter) string {
	snap := g.store.Snapshot()
	want := filter["status"]
	var paths []string
	for path, f := range snap.Files {
		if want != "" && !statusMatches(want, string(f.Status)) {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return "(no matching files)"
	}
	var b strings.Builder
	for _, p := range paths {
		f := snap.Files[p]
		fmt.Fprintf(&b, "- %s [%s] last_modified_by=%s\n", f.Path, f.Status, f.LastModifiedByPhase)
	}
	return b.String()
}

func statusesFromFilter(filter ContextFilter) []model.TaskStatus {
	raw := filter["status"]
	if raw == "" {
		return nil
	}
	var out []model.TaskStatus
	for _, s := range strings.Split(raw, ",") {
		out = append(out, model.TaskStatus(strings.TrimSpace(s)))
	}
	return out
}

func statusMatches(want, got string) bool {
	for _, w := range strings.Split(want, ",") {
		if strings.TrimSpace(w) == got {
			return true
		}
	}
	return false
}

// truncateSection bounds a section's body, marking the cut point
// clearly rather than silently dropping content (spec.md §4.2 step 1).
func truncateSection(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	return s[:maxChars] + "\n(truncated)"
}
