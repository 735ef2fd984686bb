package main

import (
	"fmt"
	"path/filepath"
	"time"

	"codenerd/internal/config"
	"codenerd/internal/coordinator"
	"codenerd/internal/ipc"
	"codenerd/internal/llm"
	"codenerd/internal/loopdetect"
	"codenerd/internal/pattern"
	"codenerd/internal/phase"
	"codenerd/internal/statestore"
	"codenerd/internal/tools"
	"codenerd/internal/tools/analysis"
	"codenerd/internal/tools/core"
	"codenerd/internal/tools/eval"
	"codenerd/internal/tools/proc"
	"codenerd/internal/tools/qa"
)

// pipeline bundles every collaborator buildCoordinator wires together,
// so callers can Close the durable ones and drive the coordinator.
type pipeline struct {
	store       *statestore.Store
	ipcStore    *ipc.Store
	coordinator *coordinator.Coordinator
	watcher     *statestore.Watcher
}

func (p *pipeline) Close() {
	if p.watcher != nil {
		p.watcher.Close()
	}
	if p.store != nil {
		p.store.Close()
	}
}

// buildCoordinator wires internal/statestore through internal/coordinator
// exactly as SPEC_FULL.md §2/§4 describes: StateStore -> IPC Store ->
// ToolRegistry/Dispatcher -> phase.Runner -> coordinator.Coordinator.
func buildCoordinator(projectDir string, cfg *config.Config) (*pipeline, error) {
	store, err := statestore.Open(projectDir)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	ipcStore, err := ipc.NewStore(projectDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open ipc store: %w", err)
	}
	if err := ipcStore.EnsureStrategicDocuments(); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure strategic documents: %w", err)
	}

	toolReg := tools.NewRegistry()
	sup := proc.NewSupervisor()
	for _, register := range []func(*tools.Registry) error{
		core.RegisterAll,
		qa.RegisterAll,
		analysis.RegisterAll,
		eval.RegisterAll,
	} {
		if err := register(toolReg); err != nil {
			store.Close()
			return nil, fmt.Errorf("register tools: %w", err)
		}
	}
	if err := proc.RegisterAll(toolReg, sup); err != nil {
		store.Close()
		return nil, fmt.Errorf("register proc tools: %w", err)
	}

	advisor := pattern.NewAdvisor(store)
	dispatcher := tools.NewDispatcher(toolReg, projectDir, store)

	requestTimeout, err := time.ParseDuration(cfg.Server.RequestTimeout)
	if err != nil || requestTimeout <= 0 {
		requestTimeout = 120 * time.Second
	}
	discoveryTTL, err := time.ParseDuration(cfg.Server.DiscoveryTTL)
	if err != nil || discoveryTTL <= 0 {
		discoveryTTL = 5 * time.Minute
	}
	client := llm.NewClient(cfg.Server.Endpoints, cfg.ModelAssignments, requestTimeout, discoveryTTL)

	registry := phase.NewRegistry()
	for _, loadErr := range registry.LoadOverrides(filepath.Join(projectDir, "phases")) {
		logWarn("phase override: %v", loadErr)
	}

	gatherer := phase.NewGatherer(store, ipcStore)
	loops := loopdetect.NewDetector()

	handlers := []phase.ResultHandler{
		phase.NewTaskCreatorHandler(store),
		phase.NewFileWriterHandler(store),
		phase.NewQAVerdictHandler(store),
		phase.NewIPCSenderHandler(ipcStore),
	}

	runner := phase.NewRunner(
		store,
		gatherer,
		toolReg,
		dispatcher,
		phase.LLMClientAdapter{Client: client},
		phase.LoopDetectorAdapter{Detector: loops},
		handlers,
		cfg.Limits.ContextWindowTokens,
	)

	coordCfg := coordinator.Config{
		StagnationThreshold: cfg.Limits.StagnationThreshold,
		ContextWindowTokens: cfg.Limits.ContextWindowTokens,
	}
	coord := coordinator.New(store, registry, runner, loops, advisor, ipcStore, toolReg, sup, coordCfg)

	watcher, err := statestore.NewWatcher(store)
	if err != nil {
		logWarn("filesystem watcher disabled: %v", err)
		watcher = nil
	}

	return &pipeline{store: store, ipcStore: ipcStore, coordinator: coord, watcher: watcher}, nil
}

func logWarn(format string, args ...any) {
	if logger != nil {
		logger.Sugar().Warnf(format, args...)
		return
	}
	fmt.Printf(format+"\n", args...)
}
