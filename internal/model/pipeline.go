package model

import "time"

// PipelineState is the full aggregate state of one project's pipeline.
// Collections keyed by id are maps with insertion order irrelevant;
// sequences (tasks-within-an-objective, phase history) stay ordered
// slices so round-tripping preserves identity and order (§4.4, R1).
type PipelineState struct {
	Tasks      map[string]TaskState       `json:"tasks"`
	Files      map[string]FileState       `json:"files"`
	Phases     map[string]PhaseState      `json:"phases"`
	Objectives Objectives                 `json:"objectives"`
	Iteration  int                        `json:"iteration"`
	StartedAt  time.Time                  `json:"started_at"`
}

// Objectives groups the three ordered objective levels.
type Objectives struct {
	Primary   []ObjectiveRecord `json:"primary"`
	Secondary []ObjectiveRecord `json:"secondary"`
	Tertiary  []ObjectiveRecord `json:"tertiary"`
}

// NewPipelineState returns an empty, well-formed PipelineState.
func NewPipelineState() *PipelineState {
	return &PipelineState{
		Tasks:     make(map[string]TaskState),
		Files:     make(map[string]FileState),
		Phases:    make(map[string]PhaseState),
		StartedAt: time.Now().UTC(),
	}
}

// AllObjectives returns the three levels concatenated, primary first.
func (o *Objectives) AllObjectives() []ObjectiveRecord {
	all := make([]ObjectiveRecord, 0, len(o.Primary)+len(o.Secondary)+len(o.Tertiary))
	all = append(all, o.Primary...)
	all = append(all, o.Secondary...)
	all = append(all, o.Tertiary...)
	return all
}

// FindObjective locates an objective by id across all three levels,
// returning a pointer into the level's slice so callers can mutate it
// in place (used to maintain the objective/task link invariant, I2).
func (o *Objectives) FindObjective(id string) *ObjectiveRecord {
	for i := range o.Primary {
		if o.Primary[i].ID == id {
			return &o.Primary[i]
		}
	}
	for i := range o.Secondary {
		if o.Secondary[i].ID == id {
			return &o.Secondary[i]
		}
	}
	for i := range o.Tertiary {
		if o.Tertiary[i].ID == id {
			return &o.Tertiary[i]
		}
	}
	return nil
}

// TasksByStatus returns task ids whose status matches any of statuses,
// in no particular order (tasks are a map with insertion order
// irrelevant per §4.4).
func (p *PipelineState) TasksByStatus(statuses ...TaskStatus) []string {
	want := make(map[TaskStatus]struct{}, len(statuses))
	for _, s := range statuses {
		want[s] = struct{}{}
	}
	var ids []string
	for id, t := range p.Tasks {
		if _, ok := want[t.Status]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// EnsureFile returns the FileState for path, creating an UNKNOWN entry
// if absent, upholding I1 ("every TaskState.files[i] has a matching
// FileState").
func (p *PipelineState) EnsureFile(path string) FileState {
	if fs, ok := p.Files[path]; ok {
		return fs
	}
	fs := FileState{Path: path, Status: FileUnknown}
	p.Files[path] = fs
	return fs
}

// PutTask stores t and ensures every file it references has a FileState
// entry (I1).
func (p *PipelineState) PutTask(t TaskState) {
	p.Tasks[t.ID] = t
	for _, f := range t.Files {
		p.EnsureFile(f)
	}
}
