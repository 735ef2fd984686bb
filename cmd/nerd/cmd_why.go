package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whyCmd = &cobra.Command{
	Use:   "why",
	Short: "Explain which phase the coordinator would run next and why",
	Long: `why inspects the current task/objective/phase state and
reproduces the rule-table decision the coordinator's next Step would
make, including whether a stagnation forced transition would fire.
Read-only: it never selects a phase for real.`,
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

		fmt.Fprint(cmd.OutOrStdout(), p.coordinator.Explain())
		return nil
	},
}
