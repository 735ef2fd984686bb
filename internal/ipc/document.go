// Package ipc implements the markdown document contract of spec.md §6:
// section-scoped read/update/append against the project's IPC files
// (ipc/<PHASE>_READ.md, ipc/<PHASE>_WRITE.md) and the strategic
// documents (MASTER_PLAN.md, ARCHITECTURE.md, *_OBJECTIVES.md).
package ipc

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"codenerd/internal/logging"
)

// sectionHeading matches an H2 markdown heading ("## Title"); sections
// are delimited at this level, matching the teacher's convention of
// H2-scoped document regions in its own markdown assemblers.
var sectionHeading = regexp.MustCompile(`(?m)^##\s+(.+?)\s*$`)

// separator is inserted between an existing section body and appended
// content, per spec.md's "append ... preserved ... separated by a
// horizontal rule."
const separator = "\n\n---\n\n"

// Document is a parsed markdown file with front matter (everything
// before the first H2 heading) and an ordered list of named sections.
type Document struct {
	Path       string
	FrontMatter string
	order      []string
	sections   map[string]string
}

// Parse reads and splits raw markdown into front matter plus sections.
func Parse(path string, raw string) *Document {
	doc := &Document{Path: path, sections: make(map[string]string)}

	locs := sectionHeading.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) == 0 {
		doc.FrontMatter = raw
		return doc
	}

	doc.FrontMatter = raw[:locs[0][0]]
	for i, loc := range locs {
		title := strings.TrimSpace(raw[loc[2]:loc[3]])
		bodyStart := loc[1]
		bodyEnd := len(raw)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimSpace(raw[bodyStart:bodyEnd])
		if _, exists := doc.sections[title]; !exists {
			doc.order = append(doc.order, title)
		}
		doc.sections[title] = body
	}
	return doc
}

// Section returns a section's body and whether it exists.
func (d *Document) Section(title string) (string, bool) {
	body, ok := d.sections[title]
	return body, ok
}

// SetSection replaces a section's content, or appends a new section at
// the end of the document if title does not yet exist.
func (d *Document) SetSection(title, body string) {
	if _, exists := d.sections[title]; !exists {
		d.order = append(d.order, title)
	}
	d.sections[title] = strings.TrimRight(body, "\n")
}

// AppendSection adds content to the end of a section's existing body,
// separated by a horizontal rule, preserving identical-content
// idempotence (R2): appending the same content twice yields the body
// once plus the separator once, not twice.
func (d *Document) AppendSection(title, content string) {
	content = strings.TrimRight(content, "\n")
	existing, ok := d.sections[title]
	if !ok || strings.TrimSpace(existing) == "" {
		d.SetSection(title, content)
		return
	}
	if strings.HasSuffix(existing, content) {
		return
	}
	d.SetSection(title, existing+separator+content)
}

// Render serializes the document back to markdown, front matter first,
// then sections in their first-seen order.
func (d *Document) Render() string {
	var b strings.Builder
	b.WriteString(d.FrontMatter)
	for _, title := range d.order {
		if !strings.HasSuffix(b.String(), "\n\n") && b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## " + title + "\n\n")
		b.WriteString(d.sections[title])
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Store is the filesystem-backed IPC channel rooted at <project_dir>/ipc
// (for phase READ/WRITE pairs) or <project_dir> directly (for the
// strategic documents).
type Store struct {
	projectDir string
	ipcDir     string
}

// NewStore binds a Store to projectDir, ensuring the ipc/ subdirectory
// exists.
func NewStore(projectDir string) (*Store, error) {
	ipcDir := filepath.Join(projectDir, "ipc")
	if err := os.MkdirAll(ipcDir, 0o755); err != nil {
		return nil, fmt.Errorf("create ipc dir: %w", err)
	}
	return &Store{projectDir: projectDir, ipcDir: ipcDir}, nil
}

// ReadPath loads and parses the document at path, returning an empty
// Document (no error) if the file does not yet exist.
func (s *Store) ReadPath(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{Path: path, sections: make(map[string]string)}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(path, string(data)), nil
}

// WritePath serializes doc and writes it to its own Path.
func (s *Store) WritePath(doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(doc.Path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", doc.Path, err)
	}
	if err := os.WriteFile(doc.Path, []byte(doc.Render()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", doc.Path, err)
	}
	return nil
}

// phasePath returns the ipc/<PHASE>_<KIND>.md path for a phase name.
func (s *Store) phasePath(phase string, kind string) string {
	name := strings.ToUpper(phase) + "_" + kind + ".md"
	return filepath.Join(s.ipcDir, name)
}

// ReadPhaseInput reads a phase's READ document (written by the
// coordinator/other phases, consumed by this phase).
func (s *Store) ReadPhaseInput(phase string) (*Document, error) {
	return s.ReadPath(s.phasePath(phase, "READ"))
}

// ReadPhaseOutput reads a phase's WRITE document (what this phase last
// produced for downstream consumers).
func (s *Store) ReadPhaseOutput(phase string) (*Document, error) {
	return s.ReadPath(s.phasePath(phase, "WRITE"))
}

// UpdatePhaseOutputSection replaces one section of a phase's WRITE
// document and persists it.
func (s *Store) UpdatePhaseOutputSection(phase, section, body string) error {
	doc, err := s.ReadPhaseOutput(phase)
	if err != nil {
		return err
	}
	doc.SetSection(section, body)
	if err := s.WritePath(doc); err != nil {
		return err
	}
	logging.IPC("updated %s section of %s WRITE document", section, phase)
	return nil
}

// AppendPhaseOutputSection appends to one section of a phase's WRITE
// document and persists it.
func (s *Store) AppendPhaseOutputSection(phase, section, content string) error {
	doc, err := s.ReadPhaseOutput(phase)
	if err != nil {
		return err
	}
	doc.AppendSection(section, content)
	if err := s.WritePath(doc); err != nil {
		return err
	}
	logging.IPCDebug("appended to %s section of %s WRITE document", section, phase)
	return nil
}

// AppendPhaseInputSection appends to a section of a phase's READ
// document — how one phase hands context to the next.
func (s *Store) AppendPhaseInputSection(phase, section, content string) error {
	doc, err := s.ReadPhaseInput(phase)
	if err != nil {
		return err
	}
	doc.AppendSection(section, content)
	return s.WritePath(doc)
}
