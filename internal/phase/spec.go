// Package phase implements the declarative phase substrate of
// spec.md §4.2: PhaseSpec configuration, context gathering, the
// ConversationThread (§4.5), and the 8-step phase invocation that ties
// them to the ToolDispatcher, LLMClient, LoopDetector and PatternStore.
package phase

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ContextSource names one input the phase gathers before composing its
// user message, e.g. "architecture", "ipc.MASTER_PLAN", "state.tasks",
// "state.files", "analysis.complexity".
type ContextSource string

// ContextFilter narrows a context source, e.g. {"status": "QA_PENDING"}
// for state.tasks.
type ContextFilter map[string]string

// Spec is one phase's declarative configuration (spec.md §4.2).
type Spec struct {
	Name                         string                   `yaml:"name"`
	ContextSources               []ContextSource          `yaml:"context_sources"`
	ContextFilters               map[string]ContextFilter `yaml:"context_filters"`
	PromptTemplate               string                   `yaml:"prompt_template"`
	ToolCategories               []string                 `yaml:"tool_categories"`
	ResultHandlers               []string                 `yaml:"result_handlers"`
	LearningCategories           []string                 `yaml:"learning_categories"`
	ModelRole                    string                   `yaml:"model_role"`
	MaxIterationsWithoutProgress int                      `yaml:"max_iterations_without_progress"`
}

// Registry holds the closed set of 14 phase specs, resolved at startup
// from Go-literal defaults overlaid by optional YAML files under
// <project_dir>/phases/*.yaml.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds a Registry seeded with the compiled-in defaults.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]Spec, len(defaultSpecs))}
	for _, s := range defaultSpecs {
		r.specs[s.Name] = s
	}
	return r
}

// LoadOverrides walks dir for *.yaml/*.yml files, each containing one
// or an array of Spec documents, and overlays them onto the compiled-in
// defaults by name. A file that fails to parse is skipped with an
// error collected in the returned slice rather than aborting the load
// (mirrors the teacher's prompt-atom directory loader, which logs and
// continues past one bad file).
func (r *Registry) LoadOverrides(dir string) []error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return []error{fmt.Errorf("phase: read %s: %w", dir, err)}
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		specs, err := parseSpecFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, s := range specs {
			r.specs[s.Name] = s
		}
	}
	return errs
}

func parseSpecFile(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("phase: read %s: %w", path, err)
	}

	var many []Spec
	if err := yaml.Unmarshal(data, &many); err == nil && len(many) > 0 {
		return many, nil
	}

	var single Spec
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("phase: parse %s: %w", path, err)
	}
	if single.Name == "" {
		return nil, fmt.Errorf("phase: %s: spec missing name", path)
	}
	return []Spec{single}, nil
}

// Get returns the named phase's spec.
func (r *Registry) Get(name string) (Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Names returns every registered phase name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	return names
}
