package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWhenNoPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Limits.StagnationThreshold)
	require.Equal(t, "state/patterns.db", cfg.Database.PatternsPath)
}

func TestLoadParsesAllSections(t *testing.T) {
	path := writeConfig(t, `
[server]
endpoints = http://localhost:8000
endpoints = http://localhost:8001
discovery_ttl = 10m

[database]
patterns_path = state/patterns.db

[security]
denied_tools = run_process

[paths]
project_dir = /tmp/proj

[limits]
stagnation_threshold = 5
max_concurrent_tools = 2
tool_deadline_seconds = 60
context_window_tokens = 4096

[logging]
debug_mode = true
level = debug

[model_assignments]
coding = sonnet@primary, haiku@fallback
qa = sonnet@primary
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"http://localhost:8000", "http://localhost:8001"}, cfg.Server.Endpoints)
	require.Equal(t, "10m", cfg.Server.DiscoveryTTL)
	require.Equal(t, []string{"run_process"}, cfg.Security.DeniedTools)
	require.Equal(t, "/tmp/proj", cfg.Paths.ProjectDir)
	require.Equal(t, 5, cfg.Limits.StagnationThreshold)
	require.True(t, cfg.Logging.DebugMode)
	require.Equal(t, []string{"sonnet@primary", "haiku@fallback"}, cfg.ModelAssignments["coding"])
}

func TestLoadFailsOnMissingRequiredKey(t *testing.T) {
	path := writeConfig(t, `
[server]
discovery_ttl = 5m

[database]
patterns_path = state/patterns.db

[paths]
project_dir = .
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverridesApply(t *testing.T) {
	t.Setenv("APP_PATHS_PROJECT_DIR", "/overridden")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/overridden", cfg.Paths.ProjectDir)
}

func TestLimitsValidateRejectsOutOfRange(t *testing.T) {
	l := LimitsConfig{StagnationThreshold: 0}
	require.Error(t, l.Validate())
}
