package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codenerd/internal/model"
)

func sampleObjectives() []model.ObjectiveRecord {
	return []model.ObjectiveRecord{
		{
			ID:              "primary_001",
			Level:           model.ObjectivePrimary,
			Title:           "Ship the coordinator loop",
			Status:          "IN_PROGRESS",
			Priority:        model.PriorityHigh,
			Description:     "Build the control loop that selects phases.",
			SuccessCriteria: []string{"[x] design reviewed", "coordinator passes integration test"},
			Dependencies:    []string{"primary_000"},
			DimensionalProfile: model.DimensionalProfile{
				Temporal: 0.8, Functional: 0.9, Data: 0.2, State: 0.7,
				Error: 0.3, Context: 0.4, Integration: 0.6,
			},
			Tasks: []string{"T1", "T2", "T3"},
		},
		{
			ID:       "primary_002",
			Level:    model.ObjectivePrimary,
			Title:    "Harden the tool dispatcher",
			Status:   "NEW",
			Priority: model.PriorityNormal,
		},
	}
}

func TestRenderThenParseRoundTrips(t *testing.T) {
	records := sampleObjectives()
	raw := RenderObjectiveFile(records)

	parsed := ParseObjectiveFile(raw, model.ObjectivePrimary)
	require.Len(t, parsed, 2)

	assert.Equal(t, records[0].ID, parsed[0].ID)
	assert.Equal(t, records[0].Title, parsed[0].Title)
	assert.Equal(t, records[0].Status, parsed[0].Status)
	assert.Equal(t, records[0].Priority, parsed[0].Priority)
	assert.Equal(t, records[0].Description, parsed[0].Description)
	assert.Equal(t, records[0].SuccessCriteria, parsed[0].SuccessCriteria)
	assert.Equal(t, records[0].Dependencies, parsed[0].Dependencies)
	assert.Equal(t, records[0].DimensionalProfile, parsed[0].DimensionalProfile)
	assert.Equal(t, records[0].Tasks, parsed[0].Tasks)
}

func TestParseThenRenderIsIdempotent(t *testing.T) {
	records := sampleObjectives()
	first := RenderObjectiveFile(records)
	parsed := ParseObjectiveFile(first, model.ObjectivePrimary)
	second := RenderObjectiveFile(parsed)

	assert.Equal(t, first, second)
}

func TestParseObjectiveFileHandlesNoDependencies(t *testing.T) {
	records := sampleObjectives()
	raw := RenderObjectiveFile(records)

	parsed := ParseObjectiveFile(raw, model.ObjectivePrimary)
	require.Len(t, parsed, 2)
	assert.Empty(t, parsed[1].Dependencies)
}
