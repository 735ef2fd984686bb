// Package config loads the pipeline's INI configuration file
// (spec.md §6: sections server, database, security, paths, limits,
// logging, and [model_assignments]).
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// ServerConfig is the [server] section: LLM endpoints the LLMClient
// discovers and probes.
type ServerConfig struct {
	Endpoints      []string `ini:"endpoints,,allowshadow"`
	DiscoveryTTL   string   `ini:"discovery_ttl"`
	RequestTimeout string   `ini:"request_timeout"`
}

// DatabaseConfig is the [database] section: where StateStore persists
// patterns.db (spec.md §4.4).
type DatabaseConfig struct {
	PatternsPath string `ini:"patterns_path"`
}

// SecurityConfig is the [security] section: tool safety-class defaults
// and the explicit deny list (spec.md §4.3).
type SecurityConfig struct {
	DeniedTools []string `ini:"denied_tools,,allowshadow"`
}

// PathsConfig is the [paths] section: the project directory layout
// roots (spec.md §6).
type PathsConfig struct {
	ProjectDir string `ini:"project_dir"`
	StateDir   string `ini:"state_dir"`
	IPCDir     string `ini:"ipc_dir"`
	LogsDir    string `ini:"logs_dir"`
}

// LoggingConfig is the [logging] section, mirroring the teacher's
// debug_mode/category-gated file logger (internal/logging).
type LoggingConfig struct {
	DebugMode bool   `ini:"debug_mode"`
	Level     string `ini:"level"`
}

// Config is the fully resolved pipeline configuration.
type Config struct {
	Server           ServerConfig
	Database         DatabaseConfig
	Security         SecurityConfig
	Paths            PathsConfig
	Limits           LimitsConfig
	Logging          LoggingConfig
	ModelAssignments map[string][]string // phase name -> ordered "model@server" candidates
}

// DefaultConfig returns sensible defaults so the pipeline can run with
// no configuration file present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			DiscoveryTTL:   "5m",
			RequestTimeout: "120s",
		},
		Database: DatabaseConfig{
			PatternsPath: "state/patterns.db",
		},
		Paths: PathsConfig{
			ProjectDir: ".",
			StateDir:   "state",
			IPCDir:     "ipc",
			LogsDir:    "state/logs",
		},
		Limits: LimitsConfig{
			StagnationThreshold: 3,
			MaxConcurrentTools:  4,
			ToolDeadlineSeconds: 120,
			ContextWindowTokens: 8000,
			ConversationFirstN:  5,
			ConversationLastN:   20,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
		ModelAssignments: map[string][]string{},
	}
}

// requiredKeys lists the keys that must be present in the file for
// startup to succeed, per section.
var requiredKeys = map[string][]string{
	"server":   {"endpoints"},
	"database": {"patterns_path"},
	"paths":    {"project_dir"},
}

// Load reads an INI file at path, falling back to DefaultConfig values
// for anything absent, then applies APP_<SECTION>_<KEY> environment
// overrides. Missing required keys fail startup with a clear message.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		applyEnvOverrides(cfg)
		return cfg, validate(cfg, nil)
	}

	file, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}

	if sec := file.Section("server"); sec != nil {
		cfg.Server.Endpoints = sec.Key("endpoints").ValueWithShadows()
		cfg.Server.DiscoveryTTL = orDefault(sec.Key("discovery_ttl").String(), cfg.Server.DiscoveryTTL)
		cfg.Server.RequestTimeout = orDefault(sec.Key("request_timeout").String(), cfg.Server.RequestTimeout)
	}
	if sec := file.Section("database"); sec != nil {
		cfg.Database.PatternsPath = orDefault(sec.Key("patterns_path").String(), cfg.Database.PatternsPath)
	}
	if sec := file.Section("security"); sec != nil {
		cfg.Security.DeniedTools = sec.Key("denied_tools").ValueWithShadows()
	}
	if sec := file.Section("paths"); sec != nil {
		cfg.Paths.ProjectDir = orDefault(sec.Key("project_dir").String(), cfg.Paths.ProjectDir)
		cfg.Paths.StateDir = orDefault(sec.Key("state_dir").String(), cfg.Paths.StateDir)
		cfg.Paths.IPCDir = orDefault(sec.Key("ipc_dir").String(), cfg.Paths.IPCDir)
		cfg.Paths.LogsDir = orDefault(sec.Key("logs_dir").String(), cfg.Paths.LogsDir)
	}
	if sec := file.Section("limits"); sec != nil {
		if err := sec.MapTo(&cfg.Limits); err != nil {
			return nil, fmt.Errorf("config: parse [limits]: %w", err)
		}
		fillDefaultLimits(cfg)
	}
	if sec := file.Section("logging"); sec != nil {
		if err := sec.MapTo(&cfg.Logging); err != nil {
			return nil, fmt.Errorf("config: parse [logging]: %w", err)
		}
	}
	if sec, err := file.GetSection("model_assignments"); err == nil {
		for _, key := range sec.Keys() {
			cfg.ModelAssignments[key.Name()] = splitCandidates(key.String())
		}
	}

	if err := checkRequired(file); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, validate(cfg, file)
}

// fillDefaultLimits restores defaults for any [limits] key the file
// left at its Go zero value, since ini.MapTo overwrites the whole
// struct including fields absent from the file.
func fillDefaultLimits(cfg *Config) {
	d := DefaultConfig().Limits
	if cfg.Limits.StagnationThreshold == 0 {
		cfg.Limits.StagnationThreshold = d.StagnationThreshold
	}
	if cfg.Limits.MaxConcurrentTools == 0 {
		cfg.Limits.MaxConcurrentTools = d.MaxConcurrentTools
	}
	if cfg.Limits.ToolDeadlineSeconds == 0 {
		cfg.Limits.ToolDeadlineSeconds = d.ToolDeadlineSeconds
	}
	if cfg.Limits.ContextWindowTokens == 0 {
		cfg.Limits.ContextWindowTokens = d.ContextWindowTokens
	}
	if cfg.Limits.ConversationFirstN == 0 {
		cfg.Limits.ConversationFirstN = d.ConversationFirstN
	}
	if cfg.Limits.ConversationLastN == 0 {
		cfg.Limits.ConversationLastN = d.ConversationLastN
	}
}

func splitCandidates(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func checkRequired(file *ini.File) error {
	for section, keys := range requiredKeys {
		sec, err := file.GetSection(section)
		if err != nil {
			return fmt.Errorf("config: missing required section [%s]", section)
		}
		for _, k := range keys {
			if !sec.HasKey(k) || sec.Key(k).String() == "" {
				return fmt.Errorf("config: missing required key %s.%s", section, k)
			}
		}
	}
	return nil
}

func validate(cfg *Config, _ *ini.File) error {
	if err := cfg.Limits.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// applyEnvOverrides resolves secrets from APP_<SECTION>_<KEY>
// environment variables, matching the teacher's env-first precedence
// for provider API keys (internal/config, legacy).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APP_DATABASE_PATTERNS_PATH"); v != "" {
		cfg.Database.PatternsPath = v
	}
	if v := os.Getenv("APP_PATHS_PROJECT_DIR"); v != "" {
		cfg.Paths.ProjectDir = v
	}
	if v := os.Getenv("APP_LOGGING_DEBUG_MODE"); v != "" {
		cfg.Logging.DebugMode = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("APP_SERVER_ENDPOINTS"); v != "" {
		cfg.Server.Endpoints = splitCandidates(v)
	}
}
