package main

import (
	"errors"

	"codenerd/internal/coordinator"
)

// usageError marks an argument/flag problem the user can fix without
// re-running anything, mapped to exit code 2 below.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func newUsageError(msg string) error { return usageError{msg: msg} }

// exitCodeFor maps a command's returned error to the process exit code
// spec.md §6 assigns: 0 success/quiescent, 1 generic error, 2 usage
// error. 130 (SIGINT) is reported by exitCodeForStatus once Run/Step
// return without an error, since a cooperative cancellation is not
// itself an error.
func exitCodeFor(err error) int {
	if err == nil {
		return coordinator.ExitOK
	}

	var usageErr usageError
	if errors.As(err, &usageErr) {
		return coordinator.ExitUsageError
	}

	return coordinator.ExitGeneralError
}

// exitCodeForStatus maps a terminal coordinator.Status to the exit code
// `run` reports when it stops without an error (quiescence or objective
// completion both count as success; Cancelled means SIGINT fired).
func exitCodeForStatus(status coordinator.Status) int {
	if status == coordinator.StatusCancelled {
		return coordinator.ExitInterrupted
	}
	return coordinator.ExitOK
}
