package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold state/ and ipc/ for a new project directory",
	Long: `init opens (and so creates, if absent) the state store's
state/ directory and patterns.db, then seeds the IPC store's strategic
documents (MASTER_PLAN.md, ARCHITECTURE.md, the three *_OBJECTIVES.md
files) from their templates if they don't already exist. Safe to run
against an already-initialized project: nothing already present is
overwritten.`,
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

		fmt.Fprintf(cmd.OutOrStdout(), "initialized project at %s\n", projectDir)
		return nil
	},
}
