package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSplitsFrontMatterAndSections(t *testing.T) {
	raw := "front matter line\n\n## Context\n\nhello\n\n## Findings\n\nworld\n"
	doc := Parse("x.md", raw)

	assert.Equal(t, "front matter line\n\n", doc.FrontMatter)
	body, ok := doc.Section("Context")
	require.True(t, ok)
	assert.Equal(t, "hello", body)
	body, ok = doc.Section("Findings")
	require.True(t, ok)
	assert.Equal(t, "world", body)
}

func TestSetSectionReplacesOnlyThatSection(t *testing.T) {
	doc := Parse("x.md", "## A\n\none\n\n## B\n\ntwo\n")
	doc.SetSection("A", "one-updated")

	out := doc.Render()
	assert.Contains(t, out, "one-updated")
	assert.Contains(t, out, "two")
	assert.NotContains(t, out, "\none\n")
}

func TestAppendSectionAddsSeparatorOnce(t *testing.T) {
	doc := Parse("x.md", "## Log\n\nfirst entry\n")
	doc.AppendSection("Log", "second entry")

	body, _ := doc.Section("Log")
	assert.Equal(t, "first entry"+separator+"second entry", body)
}

func TestAppendSectionIdempotentForIdenticalContent(t *testing.T) {
	doc := Parse("x.md", "## Log\n\nfirst entry\n")
	doc.AppendSection("Log", "second entry")
	before := doc.Render()
	doc.AppendSection("Log", "second entry")
	after := doc.Render()

	assert.Equal(t, before, after)
}

func TestAppendSectionOnEmptySectionJustSets(t *testing.T) {
	doc := Parse("x.md", "## Log\n\n")
	doc.AppendSection("Log", "first")

	body, _ := doc.Section("Log")
	assert.Equal(t, "first", body)
}

func TestReadPathMissingReturnsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	doc, err := s.ReadPath(dir + "/nope.md")
	require.NoError(t, err)
	_, ok := doc.Section("anything")
	assert.False(t, ok)
}

func TestUpdateAndAppendPhaseOutputSectionPersist(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.UpdatePhaseOutputSection("coding", "Summary", "did the thing"))
	require.NoError(t, s.AppendPhaseOutputSection("coding", "Summary", "and another thing"))

	doc, err := s.ReadPhaseOutput("coding")
	require.NoError(t, err)
	body, ok := doc.Section("Summary")
	require.True(t, ok)
	assert.Contains(t, body, "did the thing")
	assert.Contains(t, body, "and another thing")
}

func TestEnsureStrategicDocumentsNeverOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.UpdateStrategicSection("MASTER_PLAN.md", "Vision", "custom vision"))
	require.NoError(t, s.EnsureStrategicDocuments())

	doc, err := s.ReadStrategic("MASTER_PLAN.md")
	require.NoError(t, err)
	body, _ := doc.Section("Vision")
	assert.Equal(t, "custom vision", body)
}
