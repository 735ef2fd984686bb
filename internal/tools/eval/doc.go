// Package eval provides the eval_snippet tool the debugging and
// tool_evaluation phases use to run a small Go snippet through the
// yaegi interpreter instead of go build, avoiding compile hangs and
// missing-dependency failures for throwaway verification code. Only a
// stdlib import whitelist is permitted; no filesystem, network, or
// exec access is reachable from interpreted code.
//
// Tools:
//   - eval_snippet: Interpret a Go snippet defining func RunTool(input string) (string, error)
package eval
