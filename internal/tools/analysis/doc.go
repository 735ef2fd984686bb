// Package analysis provides the static-analysis tools the planning,
// coding, qa, debugging, investigation, refactoring, project_planning,
// tool_design, and tool_evaluation phases draw from the TOOLS_ANALYSIS
// category: a tree-sitter parser over a Go source file that reports
// per-function cyclomatic complexity and flags functions and methods,
// exported or not, whose name appears nowhere else in the file.
//
// Tools:
//   - analyze_complexity: Cyclomatic complexity per function in a file
//   - detect_dead_code: Declared symbols with no detected in-file reference
package analysis
