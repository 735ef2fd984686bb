package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Run exactly one coordinator iteration",
	Long: `step selects a single phase, runs it once, persists the
outcome, and prints the result without looping further. Useful for
driving the pipeline under an external scheduler or for debugging a
single phase in isolation.`,
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

		res, err := p.coordinator.Step(cmdContext(cmd))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "phase=%s result=%s forced=%v terminated=%v status=%s\n",
			res.Phase, res.Result, res.Forced, res.Terminated, res.Status)

		if res.Terminated {
			lastStatus = res.Status
		}
		return nil
	},
}
