package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codenerd/internal/coordinator"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline to quiescence or completion",
	Long: `run drives the coordinator's main loop (select phase, gather
context, call the model, dispatch tool calls, persist the outcome)
until every objective is satisfied, the pipeline goes quiescent, or it
is interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectDir, err := resolveWorkspace()
		if err != nil {
			return newUsageError(err.Error())
		}
		cfg, err := loadConfig(projectDir)
		if err != nil {
			return err
		}

		p, err := buildCoordinator(projectDir, cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		stop := p.coordinator.HandleSignals()
		defer stop()

		status, err := p.coordinator.Run(cmdContext(cmd))
		if err != nil {
			return err
		}

		if logger != nil {
			logger.Info("run finished", zap.String("status", string(status)))
		}
		lastStatus = status
		return nil
	},
}

// lastStatus lets main() translate the terminal coordinator.Status a
// command reached into the right process exit code after RunE returns
// cleanly (a cancelled run is not an error, but it still exits 130).
var lastStatus coordinator.Status
