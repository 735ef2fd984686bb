package model

// ObjectiveLevel is one of the three objective tiers.
type ObjectiveLevel string

const (
	ObjectivePrimary   ObjectiveLevel = "primary"
	ObjectiveSecondary ObjectiveLevel = "secondary"
	ObjectiveTertiary  ObjectiveLevel = "tertiary"
)

// DimensionalProfile is seven floats in [0,1] describing an objective
// along fixed axes. It is pure data: §9 forbids using it to branch
// control flow in the core.
type DimensionalProfile struct {
	Temporal    float64 `json:"temporal"`
	Functional  float64 `json:"functional"`
	Data        float64 `json:"data"`
	State       float64 `json:"state"`
	Error       float64 `json:"error"`
	Context     float64 `json:"context"`
	Integration float64 `json:"integration"`
}

// ObjectiveRecord is a declared goal at one of the three levels.
type ObjectiveRecord struct {
	ID                string              `json:"id"`
	Level             ObjectiveLevel      `json:"level"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	Status            string              `json:"status"`
	Priority          Priority            `json:"priority"`
	SuccessCriteria   []string            `json:"success_criteria"`
	Dependencies      []string            `json:"dependencies"`
	DimensionalProfile DimensionalProfile `json:"dimensional_profile"`
	// Tasks is the authoritative link: a task with ObjectiveID set must
	// appear exactly once in its referenced objective's Tasks list (I2).
	Tasks []string `json:"tasks"`
}

// HasTask reports whether taskID is already linked to this objective.
func (o *ObjectiveRecord) HasTask(taskID string) bool {
	for _, id := range o.Tasks {
		if id == taskID {
			return true
		}
	}
	return false
}

// LinkTask appends taskID to Tasks if not already present, preserving
// insertion order and the "exactly once" invariant.
func (o *ObjectiveRecord) LinkTask(taskID string) {
	if !o.HasTask(taskID) {
		o.Tasks = append(o.Tasks, taskID)
	}
}
