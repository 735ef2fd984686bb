package proc

import (
	"codenerd/internal/tools"
)

// RegisterAll registers run_process, bound to sup, with registry.
func RegisterAll(registry *tools.Registry, sup *Supervisor) error {
	return registry.Register(RunProcessTool(sup))
}
