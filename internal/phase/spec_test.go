package phase

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewRegistrySeedsFourteenDefaultPhases(t *testing.T) {
	r := NewRegistry()
	names := r.Names()
	if len(names) != len(defaultSpecs) {
		t.Fatalf("got %d registered specs, want %d", len(names), len(defaultSpecs))
	}
	for _, want := range []string{"planning", "coding", "qa", "debugging", "investigation", "refactoring"} {
		if _, ok := r.Get(want); !ok {
			t.Errorf("missing default phase %q", want)
		}
	}
}

func TestLoadOverridesOverlaysByName(t *testing.T) {
	dir := t.TempDir()
	yamlDoc := `
name: coding
model_role: coding
prompt_template: custom-coding-template
tool_categories: ["TOOLS_CODING"]
`
	if err := os.WriteFile(filepath.Join(dir, "coding.yaml"), []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if errs := r.LoadOverrides(dir); len(errs) != 0 {
		t.Fatalf("unexpected load errors: %v", errs)
	}

	s, ok := r.Get("coding")
	if !ok {
		t.Fatal("coding phase missing after override")
	}
	if s.PromptTemplate != "custom-coding-template" {
		t.Errorf("prompt_template = %q, want override applied", s.PromptTemplate)
	}
}

func TestLoadOverridesOnMissingDirIsNoop(t *testing.T) {
	r := NewRegistry()
	before := len(r.Names())
	errs := r.LoadOverrides(filepath.Join(t.TempDir(), "does-not-exist"))
	if len(errs) != 0 {
		t.Fatalf("expected no errors for missing dir, got %v", errs)
	}
	if len(r.Names()) != before {
		t.Errorf("registry mutated by missing override dir")
	}
}

func TestLoadOverridesSkipsBadFileButLoadsOthers(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("{{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	goodDoc := `
name: qa
model_role: qa
prompt_template: custom-qa-template
`
	if err := os.WriteFile(filepath.Join(dir, "qa.yaml"), []byte(goodDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	errs := r.LoadOverrides(dir)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1 for the broken file", len(errs))
	}
	s, ok := r.Get("qa")
	if !ok || s.PromptTemplate != "custom-qa-template" {
		t.Errorf("good override not applied despite sibling bad file: %+v ok=%v", s, ok)
	}
}

func TestParseSpecFileArrayForm(t *testing.T) {
	dir := t.TempDir()
	doc := `
- name: alpha
  model_role: alpha
- name: beta
  model_role: beta
`
	path := filepath.Join(dir, "multi.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	specs, err := parseSpecFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
}
