package ipc

import (
	"os"
	"path/filepath"

	"codenerd/internal/logging"
)

// strategicTemplates are the initial contents of the five strategic
// documents, used only when the file does not yet exist. Once created,
// a phase only ever updates individual sections — never the whole file.
var strategicTemplates = map[string]string{
	"MASTER_PLAN.md": "" +
		"## Vision\n\n(not yet defined)\n\n" +
		"## Architecture Direction\n\n(not yet defined)\n\n" +
		"## Milestones\n\n(not yet defined)\n",
	"ARCHITECTURE.md": "" +
		"## Overview\n\n(not yet documented)\n\n" +
		"## Components\n\n(not yet documented)\n\n" +
		"## Decisions\n\n(not yet documented)\n",
	"PRIMARY_OBJECTIVES.md":   "",
	"SECONDARY_OBJECTIVES.md": "",
	"TERTIARY_OBJECTIVES.md":  "",
}

// EnsureStrategicDocuments creates any of the five strategic documents
// that do not already exist, seeded from strategicTemplates. Existing
// files are left untouched (spec.md §6: "never overwritten in full").
func (s *Store) EnsureStrategicDocuments() error {
	for name, template := range strategicTemplates {
		path := filepath.Join(s.projectDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return err
		}
		if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
			return err
		}
		logging.IPC("initialized strategic document %s from template", name)
	}
	return nil
}

// StrategicPath returns the absolute path of a strategic document.
func (s *Store) StrategicPath(name string) string {
	return filepath.Join(s.projectDir, name)
}

// ReadStrategic reads and parses a strategic document by file name
// (e.g. "MASTER_PLAN.md").
func (s *Store) ReadStrategic(name string) (*Document, error) {
	return s.ReadPath(s.StrategicPath(name))
}

// UpdateStrategicSection replaces one section of a strategic document,
// never touching the rest of the file.
func (s *Store) UpdateStrategicSection(name, section, body string) error {
	doc, err := s.ReadStrategic(name)
	if err != nil {
		return err
	}
	doc.SetSection(section, body)
	if err := s.WritePath(doc); err != nil {
		return err
	}
	logging.IPC("updated %s section of %s", section, name)
	return nil
}

// AppendStrategicSection appends to one section of a strategic document.
func (s *Store) AppendStrategicSection(name, section, content string) error {
	doc, err := s.ReadStrategic(name)
	if err != nil {
		return err
	}
	doc.AppendSection(section, content)
	return s.WritePath(doc)
}
