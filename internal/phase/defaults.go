package phase

// defaultSpecs are the compiled-in PhaseSpec definitions for the closed
// set of 14 concrete phases (spec.md §4.2a). These apply out of the box
// with no YAML present under <project_dir>/phases/; a YAML file of the
// same name overlays and replaces one wholesale.
var defaultSpecs = []Spec{
	{
		Name:            "planning",
		ContextSources:  []ContextSource{"architecture", "state.tasks", "state.files", "ipc.PRIMARY_OBJECTIVES"},
		ContextFilters:  map[string]ContextFilter{"tasks": {"status": "NEW,IN_PROGRESS"}},
		PromptTemplate:  "planning",
		ToolCategories:  []string{"TOOLS_ANALYSIS"},
		ResultHandlers:  []string{"task_creator", "ipc_sender"},
		ModelRole:       "planning",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "coding",
		ContextSources:  []ContextSource{"architecture", "state.tasks", "state.files"},
		ContextFilters:  map[string]ContextFilter{"tasks": {"status": "NEW,IN_PROGRESS,NEEDS_FIXES"}},
		PromptTemplate:  "coding",
		ToolCategories:  []string{"TOOLS_CODING", "TOOLS_ANALYSIS", "TOOLS_PROCESS"},
		ResultHandlers:  []string{"file_writer", "task_creator"},
		ModelRole:       "coding",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "qa",
		ContextSources:  []ContextSource{"state.tasks", "state.files"},
		ContextFilters:  map[string]ContextFilter{"tasks": {"status": "QA_PENDING"}, "files": {"status": "QA_PENDING"}},
		PromptTemplate:  "qa",
		ToolCategories:  []string{"TOOLS_QA", "TOOLS_ANALYSIS"},
		ResultHandlers:  []string{"qa_verdict", "task_creator", "ipc_sender"},
		ModelRole:       "qa",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "debugging",
		ContextSources:  []ContextSource{"state.tasks", "state.files"},
		ContextFilters:  map[string]ContextFilter{"tasks": {"status": "QA_FAILED,NEEDS_FIXES"}},
		PromptTemplate:  "debugging",
		ToolCategories:  []string{"TOOLS_CODING", "TOOLS_ANALYSIS", "TOOLS_EVAL", "TOOLS_PROCESS"},
		ResultHandlers:  []string{"file_writer", "task_creator"},
		ModelRole:       "debugging",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "investigation",
		ContextSources:  []ContextSource{"architecture", "state.files", "analysis.dead_code"},
		PromptTemplate:  "investigation",
		ToolCategories:  []string{"TOOLS_ANALYSIS"},
		ResultHandlers:  []string{"ipc_sender"},
		ModelRole:       "investigation",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "refactoring",
		ContextSources:  []ContextSource{"analysis.duplicates", "analysis.dead_code", "analysis.complexity", "analysis.drift"},
		PromptTemplate:  "refactoring",
		ToolCategories:  []string{"TOOLS_ANALYSIS", "TOOLS_CODING", "TOOLS_PROCESS"},
		ResultHandlers:  []string{"task_creator"},
		ModelRole:       "refactoring",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "documentation",
		ContextSources:  []ContextSource{"architecture", "state.files"},
		ContextFilters:  map[string]ContextFilter{"files": {"status": "VERIFIED"}},
		PromptTemplate:  "documentation",
		ToolCategories:  []string{"TOOLS_CODING"},
		ResultHandlers:  []string{"file_writer"},
		ModelRole:       "documentation",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "project_planning",
		ContextSources:  []ContextSource{"ipc.MASTER_PLAN", "ipc.PRIMARY_OBJECTIVES", "ipc.SECONDARY_OBJECTIVES"},
		PromptTemplate:  "project_planning",
		ToolCategories:  []string{"TOOLS_ANALYSIS"},
		ResultHandlers:  []string{"ipc_sender"},
		ModelRole:       "project_planning",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "prompt_design",
		ContextSources:  []ContextSource{"ipc.ARCHITECTURE"},
		PromptTemplate:  "prompt_design",
		ToolCategories:  []string{},
		ResultHandlers:  []string{"ipc_sender"},
		ModelRole:       "prompt_design",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "prompt_improvement",
		ContextSources:  []ContextSource{"ipc.ARCHITECTURE", "state.tasks"},
		PromptTemplate:  "prompt_improvement",
		ToolCategories:  []string{},
		ResultHandlers:  []string{"ipc_sender"},
		ModelRole:       "prompt_improvement",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "role_design",
		ContextSources:  []ContextSource{"ipc.ARCHITECTURE"},
		PromptTemplate:  "role_design",
		ToolCategories:  []string{},
		ResultHandlers:  []string{"ipc_sender"},
		ModelRole:       "role_design",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "role_improvement",
		ContextSources:  []ContextSource{"ipc.ARCHITECTURE", "state.tasks"},
		PromptTemplate:  "role_improvement",
		ToolCategories:  []string{},
		ResultHandlers:  []string{"ipc_sender"},
		ModelRole:       "role_improvement",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "tool_design",
		ContextSources:  []ContextSource{"architecture"},
		PromptTemplate:  "tool_design",
		ToolCategories:  []string{"TOOLS_ANALYSIS"},
		ResultHandlers:  []string{"ipc_sender"},
		ModelRole:       "tool_design",
		MaxIterationsWithoutProgress: 3,
	},
	{
		Name:            "tool_evaluation",
		ContextSources:  []ContextSource{"architecture", "state.files"},
		PromptTemplate:  "tool_evaluation",
		ToolCategories:  []string{"TOOLS_ANALYSIS", "TOOLS_EVAL"},
		ResultHandlers:  []string{"ipc_sender"},
		ModelRole:       "tool_evaluation",
		MaxIterationsWithoutProgress: 3,
	},
}
