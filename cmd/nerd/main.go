// Package main implements the nerd CLI: the process entry point that
// wires internal/statestore, internal/ipc, internal/tools, internal/phase,
// internal/llm, internal/loopdetect, and internal/pattern into an
// internal/coordinator.Coordinator and drives it from cobra subcommands.
//
// File index:
//   - main.go      - rootCmd, global flags, zap/file-logging bootstrap
//   - bootstrap.go - buildCoordinator(): wires every collaborator
//   - cmd_run.go   - `nerd run`
//   - cmd_step.go  - `nerd step`
//   - cmd_status.go - `nerd status`
//   - cmd_why.go   - `nerd why`
//   - cmd_init.go  - `nerd init`
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"codenerd/internal/config"
	"codenerd/internal/logging"
)

var (
	workspace  string
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nerd",
	Short: "nerd runs the autonomous software-engineering pipeline coordinator",
	Long: `nerd drives the planning/coding/qa/debugging/refactoring pipeline
against a project directory: a StateStore-backed coordinator repeatedly
selects a phase, gathers context, calls an LLM, dispatches its tool
calls, and records the outcome until every objective is satisfied.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the INI configuration file")

	rootCmd.AddCommand(runCmd, stepCmd, statusCmd, whyCmd, initCmd)
}

// cmdContext returns cmd's context, defaulting to Background when the
// command was not dispatched through ExecuteContext (e.g. unit tests).
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// resolveWorkspace returns the absolute project directory, defaulting
// to the current working directory.
func resolveWorkspace() (string, error) {
	if workspace == "" {
		return os.Getwd()
	}
	return filepath.Abs(workspace)
}

// loadConfig loads the INI file at configPath, or DefaultConfig if
// configPath is empty, and initializes internal/logging from it.
func loadConfig(projectDir string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logsDir := cfg.Paths.LogsDir
	if logsDir == "" {
		logsDir = filepath.Join("state", "logs")
	}
	if !filepath.IsAbs(logsDir) {
		logsDir = filepath.Join(projectDir, logsDir)
	}
	debug := cfg.Logging.DebugMode || verbose
	if err := logging.Initialize(logsDir, debug, cfg.Logging.Level, false); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	return cfg, nil
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCodeFor(err))
	}
	if lastStatus != "" {
		os.Exit(exitCodeForStatus(lastStatus))
	}
}
