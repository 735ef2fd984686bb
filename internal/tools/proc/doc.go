// Package proc provides the run_process tool (TOOLS_PROCESS) used by
// the coding, debugging, and refactoring phases to invoke external
// build/test/lint commands, and the concrete process supervisor the
// coordinator calls into on shutdown to kill whatever is still
// in-flight (coordinator.ProcessKiller).
package proc
