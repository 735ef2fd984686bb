package tools

import (
	"fmt"
	"sort"
	"sync"

	"codenerd/internal/logging"
)

// Registry holds the catalog of tool schemas and their safety classes,
// plus in-memory usage counters. SnapshotUsage/RestoreUsage copy the
// counters out and back in, but nothing in this module calls them, so
// the counters start from zero on every restart.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]*Tool
	byCategory map[ToolCategory][]*Tool
	usage      map[string]*ToolUsage
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]*Tool),
		byCategory: make(map[ToolCategory][]*Tool),
		usage:      make(map[string]*ToolUsage),
	}
}

// Register adds tool to the catalog. Returns an error on duplicate name.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	if tool.Priority == 0 {
		tool.Priority = 50
	}

	r.tools[tool.Name] = tool
	r.byCategory[tool.Category] = append(r.byCategory[tool.Category], tool)
	if _, ok := r.usage[tool.Name]; !ok {
		r.usage[tool.Name] = &ToolUsage{ByPhase: make(map[string]int)}
	}

	logging.ToolsDebug("registered tool: %s (category=%s, safety=%s)", tool.Name, tool.Category, tool.SafetyClass)
	return nil
}

// MustRegister registers a tool and panics on error; use at init time.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolsFor resolves a set of categories to the concrete, callable
// schema set for a phase, excluding DENIED tools and any name present
// in denyList (a phase-specific deny-list per spec.md §4.2 step 3).
func (r *Registry) ToolsFor(categories []ToolCategory, denyList map[string]bool) []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []*Tool
	for _, cat := range categories {
		for _, t := range r.byCategory[cat] {
			if seen[t.Name] || t.SafetyClass == DENIED || denyList[t.Name] {
				continue
			}
			seen[t.Name] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// RecordUsage folds one call's outcome into the tool's usage counters.
func (r *Registry) RecordUsage(name, phase string, success bool, elapsedMs, nowMillis int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usage[name]
	if !ok {
		u = &ToolUsage{ByPhase: make(map[string]int)}
		r.usage[name] = u
	}
	u.record(phase, success, elapsedMs, nowMillis)
}

// Usage returns a copy of the usage counters for name, or a zero value
// if the tool has never been called.
func (r *Registry) Usage(name string) ToolUsage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.usage[name]
	if !ok {
		return ToolUsage{}
	}
	cp := *u
	cp.ByPhase = make(map[string]int, len(u.ByPhase))
	for k, v := range u.ByPhase {
		cp.ByPhase[k] = v
	}
	return cp
}

// SnapshotUsage returns a deep copy of every tool's usage counters. No
// caller in this module persists the snapshot.
func (r *Registry) SnapshotUsage() map[string]ToolUsage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ToolUsage, len(r.usage))
	for name, u := range r.usage {
		cp := *u
		cp.ByPhase = make(map[string]int, len(u.ByPhase))
		for k, v := range u.ByPhase {
			cp.ByPhase[k] = v
		}
		out[name] = cp
	}
	return out
}

// RestoreUsage replaces the counters of every tool named in snapshot
// with the snapshot's values; tools absent from snapshot keep theirs.
func (r *Registry) RestoreUsage(snapshot map[string]ToolUsage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, u := range snapshot {
		cp := u
		if cp.ByPhase == nil {
			cp.ByPhase = make(map[string]int)
		}
		r.usage[name] = &cp
	}
}
